package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/EChistov/ydl-bot/telemetry"
)

// queueCapacity bounds the envelope queue. Producers block on a full queue,
// which only happens when the database has stalled for a long stretch.
const queueCapacity = 256

// Actor owns the sole handle to the relational store. Exactly one Actor per
// database exists for the process lifetime; its Run loop is the only
// goroutine that ever executes SQL.
type Actor struct {
	db    *sql.DB
	queue chan Envelope
}

// NewActor wraps the database handle. No other code path may use db after
// this call.
func NewActor(db *sql.DB) *Actor {
	telemetry.Init()
	return &Actor{db: db, queue: make(chan Envelope, queueCapacity)}
}

// Enqueue submits an envelope for processing in FIFO order.
// Envelopes submitted concurrently with a Quit may never be processed.
func (a *Actor) Enqueue(env Envelope) {
	a.queue <- env
	telemetry.SetStoreQueueDepth(len(a.queue))
}

// Quit asks the actor to stop after the work already dequeued completes.
func (a *Actor) Quit() { a.Enqueue(NewQuit()) }

// Run drains the queue one envelope at a time, each to completion before the
// next is dequeued, until a Quit envelope is observed. Per-envelope failures
// are logged and converted into reply values; nothing escapes the loop.
// In-flight SQL is never cancelled from outside: ctx values (correlation ids,
// trace state) carry through, but shutdown signals do not. Only the Quit
// envelope stops the loop, so writes queued before Quit still commit during
// shutdown instead of failing the drain.
func (a *Actor) Run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	slog.Info("storage actor started")
	for env := range a.queue {
		telemetry.SetStoreQueueDepth(len(a.queue))
		if env.kind == KindQuit {
			slog.Debug("storage actor received quit command")
			break
		}
		telemetry.StoreEnvelopes.Inc()
		switch env.kind {
		case KindInsert:
			a.deliverStatus(env.reply, a.execTx(ctx, env.record.InsertStatements()))
		case KindUpdate:
			a.deliverStatus(env.reply, a.execTx(ctx, []Statement{env.stmt}))
		case KindDelete:
			a.deliverStatus(env.reply, a.execTx(ctx, env.stmts))
		case KindSelect:
			a.runSelect(ctx, env)
		default:
			slog.Warn("storage actor dropped envelope of unknown kind", slog.String("kind", env.kind.String()))
		}
	}
	slog.Info("storage actor stopped")
}

// execTx runs every statement inside one transaction, all-or-nothing.
func (a *Actor) execTx(ctx context.Context, stmts []Statement) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.SQL, s.Args...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("rollback failed", slog.Any("err", rbErr))
			}
			return fmt.Errorf("exec: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// runSelect executes the query outside any transaction and buffers the whole
// result via the envelope's scan func before replying.
func (a *Actor) runSelect(ctx context.Context, env Envelope) {
	rows, err := a.db.QueryContext(ctx, env.query.SQL, env.query.Args...)
	if err != nil {
		telemetry.StoreFailures.Inc()
		slog.Error("select failed", slog.Any("err", err))
		env.reply <- Reply{Err: err}
		return
	}
	defer rows.Close()
	value, err := env.scan(rows)
	if err == nil {
		err = rows.Err()
	}
	if err != nil {
		telemetry.StoreFailures.Inc()
		slog.Error("select scan failed", slog.Any("err", err))
		env.reply <- Reply{Err: err}
		return
	}
	env.reply <- Reply{Value: value}
}

// deliverStatus reports a mutating envelope's outcome. The reply channel has
// capacity one, so the send never blocks and the caller sees exactly one value.
func (a *Actor) deliverStatus(reply chan Reply, err error) {
	if err != nil {
		telemetry.StoreFailures.Inc()
		slog.Error("store command failed", slog.Any("err", err))
	}
	if reply != nil {
		reply <- Reply{Err: err}
	}
}
