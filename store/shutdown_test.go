package store_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"testing"

	"github.com/EChistov/ydl-bot/db"
	"github.com/EChistov/ydl-bot/store"
)

// nopDriver is an always-succeeding in-memory driver. It lets shutdown
// behavior be exercised without Postgres: database/sql itself refuses to
// begin or execute on a cancelled context, so any leak of an outer
// cancellation into the actor's SQL shows up as failed envelopes.
type nopDriver struct{}

func (nopDriver) Open(string) (driver.Conn, error) { return &nopConn{}, nil }

type nopConn struct{}

func (*nopConn) Prepare(string) (driver.Stmt, error) { return nopStmt{}, nil }
func (*nopConn) Close() error { return nil }
func (*nopConn) Begin() (driver.Tx, error) { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopStmt struct{}

func (nopStmt) Close() error { return nil }
func (nopStmt) NumInput() int { return -1 }
func (nopStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(1), nil
}
func (nopStmt) Query([]driver.Value) (driver.Rows, error) { return nopRows{}, nil }

type nopRows struct{}

func (nopRows) Columns() []string { return nil }
func (nopRows) Close() error { return nil }
func (nopRows) Next([]driver.Value) error { return io.EOF }

func init() { sql.Register("storenop", nopDriver{}) }

func TestWritesCommitAfterShutdownSignal(t *testing.T) {
	conn, err := sql.Open("storenop", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	actor := store.NewActor(conn)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		actor.Run(ctx)
	}()

	if !actor.InsertWait(db.User{ID: 1, FirstName: "a"}, store.StatusWait) {
		t.Fatal("insert before shutdown signal failed")
	}

	// The shutdown signal must not cancel in-flight or queued SQL; envelopes
	// submitted after it still commit, and only Quit stops the loop.
	cancel()
	if !actor.InsertWait(db.User{ID: 2, FirstName: "b"}, store.StatusWait) {
		t.Fatal("insert after shutdown signal failed; outer cancellation leaked into the actor's SQL")
	}
	if !actor.UpdateWait(db.User{ID: 2, FirstName: "c"}.UpdateStatement(), store.StatusWait) {
		t.Fatal("update after shutdown signal failed")
	}

	actor.Quit()
	<-done
}
