package notes

import (
	"math"
	"strings"

	"go.uber.org/multierr"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type CreateNoteRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Tags     []string       `json:"tags"`
	Priority model.Priority `json:"priority"`
}

// Normalize trims text fields, normalizes tags and applies the default
// priority.
func (r CreateNoteRequest) Normalize() CreateNoteRequest {
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
	r.Tags = NormalizeTags(r.Tags)
	r.Priority = model.Priority(strings.ToLower(strings.TrimSpace(string(r.Priority))))
	if r.Priority == "" {
		r.Priority = model.PriorityMedium
	}
	return r
}

// Validate expects a normalized request.
func (r CreateNoteRequest) Validate() error {
	var errs error
	if r.Title == "" {
		errs = multierr.Append(errs, fieldError("title is required"))
	}
	if r.Content == "" {
		errs = multierr.Append(errs, fieldError("content is required"))
	}
	if !r.Priority.Valid() {
		errs = multierr.Append(errs, fieldError("priority must be low, medium or high"))
	}
	return invalid(errs)
}

// UpdateNoteRequest has partial semantics: nil fields are left unchanged.
type UpdateNoteRequest struct {
	Title      *string         `json:"title"`
	Content    *string         `json:"content"`
	Tags       *[]string       `json:"tags"`
	Priority   *model.Priority `json:"priority"`
	IsArchived *bool           `json:"isArchived"`
}

func (r UpdateNoteRequest) Validate() error {
	var errs error
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		errs = multierr.Append(errs, fieldError("title cannot be empty"))
	}
	if r.Content != nil && strings.TrimSpace(*r.Content) == "" {
		errs = multierr.Append(errs, fieldError("content cannot be empty"))
	}
	if r.Priority != nil && !model.Priority(strings.ToLower(strings.TrimSpace(string(*r.Priority)))).Valid() {
		errs = multierr.Append(errs, fieldError("priority must be low, medium or high"))
	}
	return invalid(errs)
}

// Apply copies the supplied fields onto n.
func (r UpdateNoteRequest) Apply(n *model.Note) {
	if r.Title != nil {
		n.Title = strings.TrimSpace(*r.Title)
	}
	if r.Content != nil {
		n.Content = strings.TrimSpace(*r.Content)
	}
	if r.Tags != nil {
		n.Tags = NormalizeTags(*r.Tags)
	}
	if r.Priority != nil {
		n.Priority = model.Priority(strings.ToLower(strings.TrimSpace(string(*r.Priority))))
	}
	if r.IsArchived != nil {
		n.IsArchived = *r.IsArchived
	}
}

func (r UpdateNoteRequest) Empty() bool {
	return r.Title == nil && r.Content == nil && r.Tags == nil && r.Priority == nil && r.IsArchived == nil
}

type ListNotesRequest struct {
	Page     int
	Limit    int
	Search   string
	Priority model.Priority
	Archived bool
}

func (r ListNotesRequest) Normalize() ListNotesRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 {
		r.Limit = DefaultPageSize
	}
	if r.Limit > MaxPageSize {
		r.Limit = MaxPageSize
	}
	// Keeps (Page-1)*Limit within int; such a page is simply empty.
	if maxPage := math.MaxInt / r.Limit; r.Page > maxPage {
		r.Page = maxPage
	}
	r.Search = strings.TrimSpace(r.Search)
	r.Priority = model.Priority(strings.ToLower(strings.TrimSpace(string(r.Priority))))
	return r
}

func (r ListNotesRequest) Validate() error {
	if r.Priority != "" && !r.Priority.Valid() {
		return invalid(fieldError("priority must be low, medium or high"))
	}
	return nil
}

func (r ListNotesRequest) Filter() model.NoteFilter {
	return model.NoteFilter{
		Search:   r.Search,
		Priority: r.Priority,
		Archived: r.Archived,
		Offset:   (r.Page - 1) * r.Limit,
		Limit:    r.Limit,
	}
}

// NormalizeTags trims and lowercases tags and drops empty ones. It is
// idempotent.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

type fieldError string

func (e fieldError) Error() string { return string(e) }

// invalid folds the collected field errors into one EInvalid error.
func invalid(errs error) error {
	if errs == nil {
		return nil
	}
	list := multierr.Errors(errs)
	msgs := make([]string, 0, len(list))
	for _, e := range list {
		msgs = append(msgs, e.Error())
	}
	msg := strings.Join(msgs, "; ")
	return &apperr.Error{
		Code: apperr.EInvalid,
		Msg:  strings.ToUpper(msg[:1]) + msg[1:] + ".",
		Err:  errs,
	}
}
