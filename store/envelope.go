// Package store serializes all access to the relational store behind a single
// worker goroutine. Concurrent update handlers never touch the database
// directly; they enqueue command envelopes and, when they need a result,
// block on a single-use reply channel with a timeout.
package store

import "database/sql"

// Kind discriminates the command envelope variants.
type Kind int

const (
	KindInsert Kind = iota
	KindUpdate
	KindDelete
	KindSelect
	KindQuit
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindSelect:
		return "select"
	case KindQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Statement is one parameterized SQL statement.
type Statement struct {
	SQL  string
	Args []any
}

// Record is a domain value that knows how to insert itself. All returned
// statements run inside one transaction, so a record may cascade into
// several tables atomically.
type Record interface {
	InsertStatements() []Statement
}

// ScanFunc drains a result set into a detached value. It must consume the
// rows fully: the actor closes them right after the call, and the returned
// value is handed to a different goroutine.
type ScanFunc func(*sql.Rows) (any, error)

// Reply is the single value delivered for an envelope that carries a reply
// channel. Value is set only for Select envelopes.
type Reply struct {
	Value any
	Err   error
}

// Envelope is a tagged variant: only the fields of its kind are populated.
// Use the New* constructors; they keep the payload and the kind consistent.
type Envelope struct {
	kind   Kind
	record Record      // KindInsert
	stmt   Statement   // KindUpdate
	stmts  []Statement // KindDelete
	query  Statement   // KindSelect
	scan   ScanFunc    // KindSelect
	reply  chan Reply
}

// Kind returns the envelope's command kind.
func (e Envelope) Kind() Kind { return e.kind }

// NewReply makes the single-slot channel an envelope delivers its result on.
func NewReply() chan Reply { return make(chan Reply, 1) }

// NewInsert builds an insert envelope. reply may be nil for fire-and-forget.
func NewInsert(r Record, reply chan Reply) Envelope {
	return Envelope{kind: KindInsert, record: r, reply: reply}
}

// NewUpdate builds an update envelope. reply may be nil for fire-and-forget.
func NewUpdate(stmt Statement, reply chan Reply) Envelope {
	return Envelope{kind: KindUpdate, stmt: stmt, reply: reply}
}

// NewDelete builds a delete envelope executing every statement in one
// transaction, all-or-nothing. reply may be nil.
func NewDelete(stmts []Statement, reply chan Reply) Envelope {
	return Envelope{kind: KindDelete, stmts: stmts, reply: reply}
}

// NewSelect builds a read envelope. scan runs inside the actor and its result
// travels back on reply, which must not be nil.
func NewSelect(query Statement, scan ScanFunc, reply chan Reply) Envelope {
	return Envelope{kind: KindSelect, query: query, scan: scan, reply: reply}
}

// NewQuit builds the envelope that stops the actor once dequeued.
func NewQuit() Envelope { return Envelope{kind: KindQuit} }
