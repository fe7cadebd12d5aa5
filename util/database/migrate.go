package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              UUID PRIMARY KEY,
		full_name       TEXT NOT NULL,
		email           TEXT NOT NULL,
		password_hash   TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user','admin')),
		date_of_birth   DATE,
		address         TEXT NOT NULL DEFAULT '',
		profile_picture TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS books (
		id               UUID PRIMARY KEY,
		title            TEXT NOT NULL,
		author           TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		category         TEXT NOT NULL,
		isbn             TEXT NOT NULL,
		publication_year INT NOT NULL,
		price            NUMERIC(10,2) NOT NULL CHECK (price > 0),
		total_copies     INT NOT NULL CHECK (total_copies >= 1),
		available_copies INT NOT NULL,
		ratings          NUMERIC(2,1) NOT NULL DEFAULT 0,
		borrowed_count   INT NOT NULL DEFAULT 0,
		image            TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (available_copies >= 0 AND available_copies <= total_copies)
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id         UUID PRIMARY KEY,
		book_id    UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		rating     INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS reviews_book_idx ON reviews (book_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS favorites (
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		book_id    UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, book_id)
	)`,
	`CREATE TABLE IF NOT EXISTS borrow_requests (
		id                   UUID PRIMARY KEY,
		user_id              UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		book_id              UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		status               TEXT NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expected_return_date TIMESTAMPTZ NOT NULL,
		actual_return_date   TIMESTAMPTZ,
		total_amount         NUMERIC(10,2) NOT NULL,
		fine_amount          NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (fine_amount >= 0)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS borrow_requests_active_key
		ON borrow_requests (user_id, book_id) WHERE status IN ('pending','approved')`,
	`CREATE INDEX IF NOT EXISTS borrow_requests_status_idx ON borrow_requests (status, expected_return_date)`,
	`CREATE TABLE IF NOT EXISTS password_resets (
		token_hash TEXT PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for i, s := range schema {
		if _, err := d.Pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate stmt %d: %w", i, err)
		}
	}
	return nil
}
