// Package testutil provides shared helpers for tests that need a real
// Postgres instance.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/EChistov/ydl-bot/db"
)

// SetupTestDB opens the database named by TEST_PG_DSN, applies the schema and
// truncates every table so each test starts clean. Tests are skipped when the
// variable is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping DB test")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	for _, table := range []string{"chat", "bot_history", "user_permissions", "telegram_user"} {
		if _, err := conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean table %s: %v", table, err)
		}
	}
	return conn
}
