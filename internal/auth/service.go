package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notes-saas/internal/apperr"
	"notes-saas/internal/messaging"
	"notes-saas/internal/metrics"
	"notes-saas/internal/model"
	"notes-saas/internal/tenancy"
)

// UserStore is the identity storage the auth service needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	CreateUser(ctx context.Context, u *model.User) error
}

var (
	ErrInvalidCredentials = &apperr.Error{
		Code: apperr.EUnauthorized,
		Msg:  "Invalid credentials.",
	}
	ErrCredentialsRequired = &apperr.Error{
		Code: apperr.EInvalid,
		Msg:  "Email and password are required.",
	}
	ErrEmailRequired = &apperr.Error{
		Code: apperr.EInvalid,
		Msg:  "Email is required.",
	}
	ErrInvalidRole = &apperr.Error{
		Code: apperr.EInvalid,
		Msg:  "Role must be admin or member.",
	}
	ErrUserExists = &apperr.Error{
		Code: apperr.EConflict,
		Msg:  "User with this email already exists.",
	}
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type InviteRequest struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type TenantView struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Slug         string             `json:"slug"`
	Subscription model.Subscription `json:"subscription"`
	MaxNotes     *int               `json:"maxNotes,omitempty"`
}

type UserView struct {
	ID     uuid.UUID   `json:"id"`
	Email  string      `json:"email"`
	Role   model.Role  `json:"role"`
	Tenant *TenantView `json:"tenant,omitempty"`
}

type LoginResult struct {
	User  UserView
	Token string
}

type Service struct {
	users          UserStore
	tokens         *TokenManager
	hasher         *PasswordHasher
	events         messaging.Publisher
	invitePassword string
	log            *zap.Logger
}

func NewService(users UserStore, tokens *TokenManager, hasher *PasswordHasher, events messaging.Publisher, invitePassword string, log *zap.Logger) *Service {
	return &Service{
		users:          users,
		tokens:         tokens,
		hasher:         hasher,
		events:         events,
		invitePassword: invitePassword,
		log:            log.Named("auth"),
	}
}

// Login verifies the credentials and issues a session token. A correct
// password on an inactive tenant yields ETenantInactive, distinct from a
// credential failure.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.ENotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !s.hasher.Compare(user.PasswordHash, req.Password) {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	tenant, err := s.users.GetTenantByID(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		metrics.LoginAttempts.WithLabelValues("tenant_inactive").Inc()
		return nil, tenancy.ErrTenantInactive
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperr.Internal("auth.Login", err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.log.Info("user logged in", zap.Stringer("user_id", user.ID), zap.Stringer("tenant_id", tenant.ID))

	return &LoginResult{
		User: UserView{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
			Tenant: &TenantView{
				ID:           tenant.ID,
				Name:         tenant.Name,
				Slug:         tenant.Slug,
				Subscription: tenant.Subscription,
			},
		},
		Token: token,
	}, nil
}

// Profile describes the acting user and tenant.
func (s *Service) Profile(scope *tenancy.Scope) UserView {
	maxNotes := scope.Tenant.Settings.MaxNotes
	return UserView{
		ID:    scope.User.ID,
		Email: scope.User.Email,
		Role:  scope.User.Role,
		Tenant: &TenantView{
			ID:           scope.Tenant.ID,
			Name:         scope.Tenant.Name,
			Slug:         scope.Tenant.Slug,
			Subscription: scope.Tenant.Subscription,
			MaxNotes:     &maxNotes,
		},
	}
}

// Invite creates a user in the inviter's tenant with the configured default
// password. The invitee is expected to change it; there is no reset flow.
func (s *Service) Invite(ctx context.Context, scope *tenancy.Scope, req InviteRequest) (UserView, error) {
	if err := tenancy.RequireRole(scope, model.RoleAdmin); err != nil {
		return UserView{}, err
	}

	email := model.NormalizeEmail(req.Email)
	if email == "" {
		return UserView{}, ErrEmailRequired
	}
	role := model.Role(strings.ToLower(strings.TrimSpace(string(req.Role))))
	if role == "" {
		role = model.RoleMember
	}
	if !role.Valid() {
		return UserView{}, ErrInvalidRole
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return UserView{}, ErrUserExists
	} else if !apperr.Is(err, apperr.ENotFound) {
		return UserView{}, err
	}

	hash, err := s.hasher.Hash(s.invitePassword)
	if err != nil {
		return UserView{}, apperr.Internal("auth.Invite", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		TenantID:     scope.TenantID(),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if apperr.Is(err, apperr.EConflict) {
			return UserView{}, ErrUserExists
		}
		return UserView{}, err
	}

	s.log.Info("user invited",
		zap.Stringer("tenant_id", user.TenantID),
		zap.Stringer("user_id", user.ID),
		zap.String("role", string(role)))

	evt := model.NewEvent(user.TenantID, scope.UserID(), model.EventUserInvited, user.ID,
		map[string]string{"email": user.Email, "role": string(user.Role)})
	if err := s.events.PublishEvent(ctx, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", string(evt.Type)), zap.Error(err))
	}

	return UserView{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}
