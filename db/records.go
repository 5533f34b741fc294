package db

import (
	"time"

	"github.com/EChistov/ydl-bot/store"
)

// User mirrors one telegram_user row plus the chat the user writes from.
// Inserting a User cascades the chat row inside the same transaction.
type User struct {
	ID           int64
	IsBot        bool
	FirstName    string
	UserName     string
	LastName     string
	LanguageCode string
	ChatID       int64
}

func (u User) InsertStatements() []store.Statement {
	stmts := []store.Statement{{
		SQL: `INSERT INTO telegram_user (id, is_bot, first_name, user_name, last_name, language_code)
			VALUES ($1,$2,$3,$4,$5,$6)`,
		Args: []any{u.ID, u.IsBot, u.FirstName, u.UserName, u.LastName, u.LanguageCode},
	}}
	if u.ChatID != 0 {
		stmts = append(stmts, store.Statement{
			SQL:  `INSERT INTO chat (id, user_id) VALUES ($1,$2)`,
			Args: []any{u.ChatID, u.ID},
		})
	}
	return stmts
}

// Equal compares the fields that arrive with every Telegram message and
// decide whether the stored row is stale.
func (u User) Equal(o User) bool {
	return u.FirstName == o.FirstName &&
		u.UserName == o.UserName &&
		u.LastName == o.LastName &&
		u.LanguageCode == o.LanguageCode &&
		u.IsBot == o.IsBot
}

// UpdateStatement refreshes the mutable telegram_user columns.
func (u User) UpdateStatement() store.Statement {
	return store.Statement{
		SQL: `UPDATE telegram_user SET is_bot=$2, first_name=$3, user_name=$4, last_name=$5, language_code=$6
			WHERE id=$1`,
		Args: []any{u.ID, u.IsBot, u.FirstName, u.UserName, u.LastName, u.LanguageCode},
	}
}

// Permission is one user_permissions row: two independent boolean grants.
type Permission struct {
	UserID  int64
	IsAdmin bool
	IsUser  bool
}

func (p Permission) InsertStatements() []store.Statement {
	return []store.Statement{{
		SQL:  `INSERT INTO user_permissions (user_id, is_admin, is_user) VALUES ($1,$2,$3)`,
		Args: []any{p.UserID, p.IsAdmin, p.IsUser},
	}}
}

// UpdateStatement rewrites both grants for an existing permission row.
func (p Permission) UpdateStatement() store.Statement {
	return store.Statement{
		SQL:  `UPDATE user_permissions SET is_admin=$2, is_user=$3 WHERE user_id=$1`,
		Args: []any{p.UserID, p.IsAdmin, p.IsUser},
	}
}

// HistoryEntry records one accepted download request.
type HistoryEntry struct {
	MsgText string
	UserID  int64
}

func (h HistoryEntry) InsertStatements() []store.Statement {
	return []store.Statement{{
		SQL:  `INSERT INTO bot_history (msg_text, user_id) VALUES ($1,$2)`,
		Args: []any{h.MsgText, h.UserID},
	}}
}

// HistoryRow is one page entry of the admin history view.
type HistoryRow struct {
	UserID    int64
	FirstName string
	MsgText   string
	CreatedAt time.Time
}

// UserRow is one page entry of the admin user-editing view. The permission
// pointers are nil when the user has no user_permissions row yet.
type UserRow struct {
	ID        int64
	UserName  string
	FirstName string
	LastName  string
	IsUser    *bool
	IsAdmin   *bool
}

// UserDetail extends UserRow with what the privilege editor needs to notify
// the affected user.
type UserDetail struct {
	UserRow
	ChatID       int64
	LanguageCode string
}
