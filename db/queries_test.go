package db

import (
	"context"
	"strings"
	"testing"
)

func TestUserInsertCascadesChat(t *testing.T) {
	u := User{ID: 7, FirstName: "x", ChatID: 70}
	stmts := u.InsertStatements()
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want user insert plus chat insert", len(stmts))
	}
	if !strings.Contains(stmts[0].SQL, "telegram_user") || !strings.Contains(stmts[1].SQL, "chat") {
		t.Errorf("unexpected statement order: %q then %q", stmts[0].SQL, stmts[1].SQL)
	}

	// Without a chat id there is nothing to cascade.
	u.ChatID = 0
	if got := len(u.InsertStatements()); got != 1 {
		t.Errorf("got %d statements without chat id, want 1", got)
	}
}

func TestUserEqualIgnoresChatID(t *testing.T) {
	a := User{ID: 1, FirstName: "n", ChatID: 10}
	b := a
	b.ChatID = 20
	if !a.Equal(b) {
		t.Error("chat id should not make users unequal")
	}
	b.FirstName = "m"
	if a.Equal(b) {
		t.Error("changed first name should make users unequal")
	}
}

func TestDeleteUsersStatements(t *testing.T) {
	stmts := DeleteUsersStatements([]int64{3, 5})
	if len(stmts) != 4 {
		t.Fatalf("got %d statements, want 4 ordered deletes", len(stmts))
	}
	wantOrder := []string{"chat", "bot_history", "user_permissions", "telegram_user"}
	for i, table := range wantOrder {
		if !strings.Contains(stmts[i].SQL, table) {
			t.Errorf("statement %d = %q, want it to target %s", i, stmts[i].SQL, table)
		}
		if len(stmts[i].Args) != 2 {
			t.Errorf("statement %d has %d args, want 2", i, len(stmts[i].Args))
		}
	}
	if DeleteUsersStatements(nil) != nil {
		t.Error("empty id list should produce no statements")
	}
}

func TestPlaceholderList(t *testing.T) {
	in, args := placeholderList([]int64{1, 2, 3})
	if in != "($1,$2,$3)" {
		t.Errorf("placeholder list = %q", in)
	}
	if len(args) != 3 || args[2] != int64(3) {
		t.Errorf("args = %v", args)
	}
}

func TestPermittedIDsQueryPerTier(t *testing.T) {
	if q := PermittedIDsQuery(TierUser); !strings.Contains(q.SQL, "is_user IS TRUE") {
		t.Errorf("user tier query = %q", q.SQL)
	}
	if q := PermittedIDsQuery(TierAdmin); !strings.Contains(q.SQL, "is_admin IS TRUE") {
		t.Errorf("admin tier query = %q", q.SQL)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := setupConn(t)
	// Schema was already applied by setup; a second run must be a no-op.
	if err := Migrate(context.Background(), conn); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}
