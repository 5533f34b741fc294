package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/EChistov/ydl-bot/db"
	"github.com/EChistov/ydl-bot/store"
	"github.com/EChistov/ydl-bot/testutil"
)

func startActor(t *testing.T, conn *sql.DB) *store.Actor {
	t.Helper()
	actor := store.NewActor(conn)
	ctx, cancel := context.WithCancel(context.Background())
	go actor.Run(ctx)
	t.Cleanup(func() {
		actor.Quit()
		cancel()
	})
	return actor
}

func TestInsertThenSelect(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	actor := startActor(t, conn)

	u := db.User{ID: 42, FirstName: "alice", UserName: "alice42", ChatID: 420}
	if !actor.InsertWait(u, store.StatusWait) {
		t.Fatal("insert was not acknowledged")
	}
	users, err := store.Select(actor, db.AllUsersQuery(), db.ScanUsers, store.SelectWait)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(users) != 1 || users[0].ID != 42 || users[0].FirstName != "alice" {
		t.Errorf("selected %+v, want the row inserted before", users)
	}

	// The cascaded chat row landed in the same transaction.
	var chatID int64
	if err := conn.QueryRow("SELECT id FROM chat WHERE user_id = 42").Scan(&chatID); err != nil {
		t.Fatalf("chat row missing: %v", err)
	}
	if chatID != 420 {
		t.Errorf("chat id = %d, want 420", chatID)
	}
}

func TestDeleteIsAllOrNothing(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	actor := startActor(t, conn)

	if !actor.InsertWait(db.User{ID: 1, FirstName: "a", ChatID: 1}, store.StatusWait) {
		t.Fatal("seed insert failed")
	}
	stmts := []store.Statement{
		{SQL: `DELETE FROM chat WHERE user_id = $1`, Args: []any{int64(1)}},
		{SQL: `DELETE FROM no_such_table`},
	}
	if actor.DeleteWait(stmts, store.DeleteWait) {
		t.Fatal("delete with a failing statement reported success")
	}
	var n int
	if err := conn.QueryRow("SELECT count(*) FROM chat WHERE user_id = 1").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Error("first statement's effect survived the rollback")
	}
}

func TestEnvelopesRunInSubmissionOrder(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	actor := startActor(t, conn)

	// Insert, update and read the same row back to back without waiting in
	// between. FIFO processing means the select observes both writes.
	u := db.User{ID: 5, FirstName: "before", ChatID: 5}
	actor.Insert(u)
	u.FirstName = "after"
	actor.Update(u.UpdateStatement())
	users, err := store.Select(actor, db.AllUsersQuery(), db.ScanUsers, store.SelectWait)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(users) != 1 || users[0].FirstName != "after" {
		t.Errorf("select saw %+v, want the updated row", users)
	}
}

func TestSelectEntriesAndCount(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	actor := startActor(t, conn)

	if !actor.InsertWait(db.User{ID: 9, FirstName: "h", ChatID: 9}, store.StatusWait) {
		t.Fatal("seed insert failed")
	}
	for i := 0; i < 7; i++ {
		if !actor.InsertWait(db.HistoryEntry{MsgText: fmt.Sprintf("link-%d", i), UserID: 9}, store.StatusWait) {
			t.Fatalf("history insert %d failed", i)
		}
	}
	rows, total, err := store.SelectEntriesAndCount(
		actor, db.HistoryPageQuery(0, 5), db.HistoryCountQuery(), db.ScanHistory, store.SelectWait)
	if err != nil {
		t.Fatalf("entries and count: %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
	if len(rows) != 5 {
		t.Errorf("page has %d rows, want 5", len(rows))
	}
	if len(rows) > 0 && rows[0].MsgText != "link-6" {
		t.Errorf("first row = %q, want newest entry link-6", rows[0].MsgText)
	}
}

func TestFailedSelectRepliesWithError(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	actor := startActor(t, conn)

	_, err := store.Select(actor,
		store.Statement{SQL: `SELECT broken FROM nowhere`}, db.ScanIDs, store.SelectWait)
	if err == nil {
		t.Fatal("select against a missing table reported success")
	}
	if errors.Is(err, store.ErrReplyTimeout) {
		t.Error("explicit failure was reported as a timeout")
	}
}

func TestAwaitTimesOutWithoutActor(t *testing.T) {
	// An actor that is never started services nothing; every waiting caller
	// must get the timeout outcome instead of hanging.
	actor := store.NewActor(nil)
	start := time.Now()
	_, err := store.Select(actor, store.Statement{SQL: `SELECT 1`}, db.ScanIDs, 50*time.Millisecond)
	if !errors.Is(err, store.ErrReplyTimeout) {
		t.Fatalf("err = %v, want ErrReplyTimeout", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout took far longer than the configured wait")
	}
	if actor.InsertWait(db.User{ID: 1}, 50*time.Millisecond) {
		t.Error("InsertWait reported success with no actor running")
	}
}
