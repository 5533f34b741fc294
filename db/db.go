// Package db provides the database connection, schema migration, record types
// and the statement catalog used by the storage actor's callers.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection on the configured DSN. The returned
// handle must be given to exactly one store.Actor; nothing else may execute
// SQL on it.
func Connect(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables and indices.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS telegram_user (
			id BIGINT PRIMARY KEY,
			is_bot BOOLEAN NOT NULL,
			first_name TEXT NOT NULL,
			user_name TEXT,
			last_name TEXT,
			language_code TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS user_permissions (
			user_id BIGINT PRIMARY KEY REFERENCES telegram_user(id),
			is_admin BOOLEAN NOT NULL,
			is_user BOOLEAN NOT NULL,
			created_date TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS chat (
			id BIGINT PRIMARY KEY,
			user_id BIGINT REFERENCES telegram_user(id)
		)`,
		`CREATE TABLE IF NOT EXISTS bot_history (
			id SERIAL PRIMARY KEY,
			msg_text TEXT NOT NULL,
			user_id BIGINT REFERENCES telegram_user(id),
			created_date TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_created ON bot_history(created_date)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON bot_history(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_permissions_user ON user_permissions(is_user)`,
		`CREATE INDEX IF NOT EXISTS idx_permissions_admin ON user_permissions(is_admin)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate step %d failed: %w", i, err)
		}
	}
	return nil
}
