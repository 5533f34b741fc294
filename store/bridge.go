package store

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

// ErrReplyTimeout marks a reply channel that was never written within the
// caller's deadline. It is distinguishable from an explicit failure reply.
var ErrReplyTimeout = errors.New("store: timed out waiting for reply")

// Default caller-side waits. Mutation acks come back quickly; selects may sit
// behind a burst of writes.
const (
	StatusWait = 3 * time.Second
	DeleteWait = 5 * time.Second
	SelectWait = 10 * time.Second
)

// await blocks on a reply channel with a deadline. Timeout is an explicit,
// distinguishable outcome, never a hang.
func await(reply chan Reply, timeout time.Duration) (any, error) {
	select {
	case r := <-reply:
		return r.Value, r.Err
	case <-time.After(timeout):
		return nil, ErrReplyTimeout
	}
}

// InsertWait enqueues an insert and reports whether it committed. Every
// failure mode, including timeout, collapses to false for the caller; the
// distinction is preserved in the log.
func (a *Actor) InsertWait(r Record, timeout time.Duration) bool {
	reply := NewReply()
	a.Enqueue(NewInsert(r, reply))
	if _, err := await(reply, timeout); err != nil {
		slog.Error("insert not acknowledged", slog.Any("err", err))
		return false
	}
	return true
}

// Insert enqueues a fire-and-forget insert.
func (a *Actor) Insert(r Record) { a.Enqueue(NewInsert(r, nil)) }

// UpdateWait enqueues an update and reports whether it committed.
func (a *Actor) UpdateWait(stmt Statement, timeout time.Duration) bool {
	reply := NewReply()
	a.Enqueue(NewUpdate(stmt, reply))
	if _, err := await(reply, timeout); err != nil {
		slog.Error("update not acknowledged", slog.Any("err", err))
		return false
	}
	return true
}

// Update enqueues a fire-and-forget update.
func (a *Actor) Update(stmt Statement) { a.Enqueue(NewUpdate(stmt, nil)) }

// DeleteWait executes the ordered statement list in one transaction and
// reports whether the whole list committed. All-or-nothing: one failing
// statement rolls back every other.
func (a *Actor) DeleteWait(stmts []Statement, timeout time.Duration) bool {
	reply := NewReply()
	a.Enqueue(NewDelete(stmts, reply))
	if _, err := await(reply, timeout); err != nil {
		slog.Error("delete not acknowledged", slog.Any("err", err))
		return false
	}
	return true
}

// Select runs one read query through the actor and returns the buffered
// result of scan. Callers get nil plus the error on any failure, timeout
// included; nothing is raised further.
func Select[T any](a *Actor, query Statement, scan func(*sql.Rows) (T, error), timeout time.Duration) (T, error) {
	var zero T
	reply := NewReply()
	a.Enqueue(NewSelect(query, func(rows *sql.Rows) (any, error) { return scan(rows) }, reply))
	v, err := await(reply, timeout)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, errors.New("store: unexpected select result shape")
	}
	return out, nil
}

// SelectEntriesAndCount issues a page query and its matching count query as
// two concurrent envelopes and joins both replies. This is the only place two
// actor calls are correlated into one logical request: if either leg times
// out or fails, the whole operation fails.
func SelectEntriesAndCount[T any](a *Actor, entries, count Statement, scan func(*sql.Rows) ([]T, error), timeout time.Duration) ([]T, int64, error) {
	entriesReply := NewReply()
	countReply := NewReply()
	a.Enqueue(NewSelect(entries, func(rows *sql.Rows) (any, error) { return scan(rows) }, entriesReply))
	a.Enqueue(NewSelect(count, func(rows *sql.Rows) (any, error) { return ScanCount(rows) }, countReply))

	ev, err := await(entriesReply, timeout)
	if err != nil {
		slog.Error("entries select failed", slog.Any("err", err))
		return nil, 0, err
	}
	cv, err := await(countReply, timeout)
	if err != nil {
		slog.Error("count select failed", slog.Any("err", err))
		return nil, 0, err
	}
	rows, ok := ev.([]T)
	if !ok {
		return nil, 0, errors.New("store: unexpected entries result shape")
	}
	n, ok := cv.(int64)
	if !ok {
		return nil, 0, errors.New("store: unexpected count result shape")
	}
	return rows, n, nil
}

// ScanCount normalizes a count(*) result. A count query that yields no rows
// is reported as an error rather than a guess.
func ScanCount(rows *sql.Rows) (int64, error) {
	if !rows.Next() {
		return 0, errors.New("store: count query returned no rows")
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
