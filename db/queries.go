package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/EChistov/ydl-bot/store"
)

// Tier selects which permission grant a query filters on.
type Tier string

const (
	TierUser  Tier = "is_user"
	TierAdmin Tier = "is_admin"
)

// PermittedIDsQuery lists the user ids holding the given grant.
func PermittedIDsQuery(t Tier) store.Statement {
	return store.Statement{SQL: fmt.Sprintf(`SELECT user_id FROM user_permissions WHERE %s IS TRUE`, t)}
}

// ScanIDs buffers a single-bigint-column result.
func ScanIDs(rows *sql.Rows) ([]int64, error) {
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// AllUsersQuery loads every telegram_user row for the known-users cache.
func AllUsersQuery() store.Statement {
	return store.Statement{SQL: `SELECT id, is_bot, first_name, COALESCE(user_name,''), COALESCE(last_name,''),
		COALESCE(language_code,'') FROM telegram_user`}
}

func ScanUsers(rows *sql.Rows) ([]User, error) {
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.IsBot, &u.FirstName, &u.UserName, &u.LastName, &u.LanguageCode); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// HistoryPageQuery returns one page of download history, newest first.
func HistoryPageQuery(offset, limit int) store.Statement {
	return store.Statement{
		SQL: `SELECT u.id, u.first_name, h.msg_text, h.created_date
			FROM bot_history h JOIN telegram_user u ON u.id = h.user_id
			ORDER BY h.created_date DESC OFFSET $1 LIMIT $2`,
		Args: []any{offset, limit},
	}
}

// HistoryCountQuery counts all history entries.
func HistoryCountQuery() store.Statement {
	return store.Statement{SQL: `SELECT count(*) FROM bot_history`}
}

func ScanHistory(rows *sql.Rows) ([]HistoryRow, error) {
	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.UserID, &h.FirstName, &h.MsgText, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// UsersPageQuery returns one page of users with their (possibly absent) grants.
func UsersPageQuery(offset, limit int) store.Statement {
	return store.Statement{
		SQL: `SELECT u.id, COALESCE(u.user_name,''), u.first_name, COALESCE(u.last_name,''), p.is_user, p.is_admin
			FROM telegram_user u LEFT JOIN user_permissions p ON p.user_id = u.id
			ORDER BY u.user_name OFFSET $1 LIMIT $2`,
		Args: []any{offset, limit},
	}
}

// UsersCountQuery counts all known users.
func UsersCountQuery() store.Statement {
	return store.Statement{SQL: `SELECT count(*) FROM telegram_user`}
}

func ScanUserRows(rows *sql.Rows) ([]UserRow, error) {
	var out []UserRow
	for rows.Next() {
		var r UserRow
		var isUser, isAdmin sql.NullBool
		if err := rows.Scan(&r.ID, &r.UserName, &r.FirstName, &r.LastName, &isUser, &isAdmin); err != nil {
			return nil, err
		}
		if isUser.Valid {
			r.IsUser = &isUser.Bool
		}
		if isAdmin.Valid {
			r.IsAdmin = &isAdmin.Bool
		}
		out = append(out, r)
	}
	return out, nil
}

// UserDetailQuery loads one user with grants, chat and language for the
// privilege editor.
func UserDetailQuery(userID int64) store.Statement {
	return store.Statement{
		SQL: `SELECT u.id, COALESCE(u.user_name,''), u.first_name, COALESCE(u.last_name,''), p.is_user, p.is_admin,
			c.id, COALESCE(u.language_code,'')
			FROM telegram_user u LEFT JOIN user_permissions p ON p.user_id = u.id
			JOIN chat c ON c.user_id = u.id
			WHERE u.id = $1`,
		Args: []any{userID},
	}
}

func ScanUserDetails(rows *sql.Rows) ([]UserDetail, error) {
	var out []UserDetail
	for rows.Next() {
		var d UserDetail
		var isUser, isAdmin sql.NullBool
		if err := rows.Scan(&d.ID, &d.UserName, &d.FirstName, &d.LastName, &isUser, &isAdmin, &d.ChatID, &d.LanguageCode); err != nil {
			return nil, err
		}
		if isUser.Valid {
			d.IsUser = &isUser.Bool
		}
		if isAdmin.Valid {
			d.IsAdmin = &isAdmin.Bool
		}
		out = append(out, d)
	}
	return out, nil
}

// UnauthorizedIDsQuery lists users without an active user grant; they are the
// target of the admin console's bulk delete.
func UnauthorizedIDsQuery() store.Statement {
	return store.Statement{SQL: `SELECT u.id FROM telegram_user u
		LEFT JOIN user_permissions p ON p.user_id = u.id
		WHERE p.is_user IS NOT TRUE`}
}

// DeleteHistoryStatements clears the whole bot_history table.
func DeleteHistoryStatements() []store.Statement {
	return []store.Statement{{SQL: `DELETE FROM bot_history`}}
}

// DeleteUsersStatements removes the given users and every dependent row,
// ordered so foreign keys hold; the storage actor runs the whole list in one
// transaction.
func DeleteUsersStatements(ids []int64) []store.Statement {
	if len(ids) == 0 {
		return nil
	}
	in, args := placeholderList(ids)
	return []store.Statement{
		{SQL: `DELETE FROM chat WHERE user_id IN ` + in, Args: args},
		{SQL: `DELETE FROM bot_history WHERE user_id IN ` + in, Args: args},
		{SQL: `DELETE FROM user_permissions WHERE user_id IN ` + in, Args: args},
		{SQL: `DELETE FROM telegram_user WHERE id IN ` + in, Args: args},
	}
}

func placeholderList(ids []int64) (string, []any) {
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return "(" + strings.Join(ph, ",") + ")", args
}
