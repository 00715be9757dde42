// internal/storage/schema.go
package storage

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	slug         TEXT NOT NULL UNIQUE,
	subscription TEXT NOT NULL DEFAULT 'free' CHECK (subscription IN ('free', 'pro')),
	max_notes    INTEGER NOT NULL DEFAULT 3,
	theme        TEXT NOT NULL DEFAULT 'light',
	is_active    BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('admin', 'member')),
	tenant_id     UUID NOT NULL REFERENCES tenants(id),
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notes (
	id          UUID PRIMARY KEY,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL,
	tags        TEXT[] NOT NULL DEFAULT '{}',
	priority    TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
	tenant_id   UUID NOT NULL REFERENCES tenants(id),
	created_by  UUID NOT NULL REFERENCES users(id),
	is_archived BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS notes_tenant_created_idx ON notes (tenant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS events (
	id          UUID NOT NULL,
	tenant_id   UUID NOT NULL,
	actor_id    UUID NOT NULL,
	type        TEXT NOT NULL,
	resource_id UUID NOT NULL,
	payload     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (tenant_id, id)
) PARTITION BY LIST (tenant_id);
`

// Migrate creates the schema if it does not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
