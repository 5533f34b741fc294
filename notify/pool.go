// Package notify drains a queue of "edit the previously sent status message"
// envelopes through a fixed pool of workers, keeping progress updates off the
// handler goroutines and inside the outbound API's rate limit. Frames that
// may be lost (intermediate progress bars) are dropped under load; frames
// that must land (the final 100%) go through the bounded-retry wrapper.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/EChistov/ydl-bot/retry"
	"github.com/EChistov/ydl-bot/telemetry"
)

// Messenger is the outbound chat API surface the pool needs. The Telegram
// client is stateless and shared by value across all workers.
type Messenger interface {
	EditMessageText(chatID int64, messageID int, text string) error
	DeleteMessage(chatID int64, messageID int) error
}

// Command discriminates notification envelope variants.
type Command int

const (
	CommandEdit Command = iota
	CommandDelete
	CommandQuit
)

// Target identifies one previously sent chat message.
type Target struct {
	ChatID    int64
	MessageID int
}

// Envelope is one queued notification operation.
type Envelope struct {
	Command Command
	Target  Target
	Text    string
	// WithRetry routes the call through the bounded-retry wrapper. Leave it
	// false for best-effort frames where the rate limit matters more than
	// delivery.
	WithRetry bool
}

// queueCapacity absorbs progress bursts; beyond it, best-effort frames drop.
const queueCapacity = 512

// Pool is the notification actor pool: n identical workers over one shared
// queue. Any worker may service any envelope; no cross-worker ordering is
// guaranteed.
type Pool struct {
	queue   chan Envelope
	msgr    Messenger
	workers int
	policy  retry.Policy
	wg      sync.WaitGroup
}

// NewPool sizes the pool. workers must be at least 1.
func NewPool(m Messenger, workers int, policy retry.Policy) *Pool {
	telemetry.Init()
	if workers < 1 {
		workers = 1
	}
	return &Pool{queue: make(chan Envelope, queueCapacity), msgr: m, workers: workers, policy: policy}
}

// Start launches the workers. ctx bounds the retry sleeps, not the loop:
// workers exit on Quit envelopes.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	slog.Info("notification pool started", slog.Int("workers", p.workers))
}

// Enqueue submits an envelope, blocking if the queue is momentarily full.
// Use it for envelopes that must not be lost.
func (p *Pool) Enqueue(env Envelope) {
	p.queue <- env
	telemetry.SetMsgQueueDepth(len(p.queue))
}

// TryEnqueue submits a best-effort envelope and reports whether it was
// accepted. A full queue drops the frame; the next sample supersedes it.
func (p *Pool) TryEnqueue(env Envelope) bool {
	select {
	case p.queue <- env:
		telemetry.SetMsgQueueDepth(len(p.queue))
		return true
	default:
		telemetry.EditsDropped.Inc()
		slog.Debug("notification frame dropped", slog.Int64("chat", env.Target.ChatID))
		return false
	}
}

// Close broadcasts one Quit per worker. Enqueuing fewer Quits than workers
// would leave workers running; envelopes racing the Quits may go unserviced.
func (p *Pool) Close() {
	for i := 0; i < p.workers; i++ {
		p.queue <- Envelope{Command: CommandQuit}
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for env := range p.queue {
		telemetry.SetMsgQueueDepth(len(p.queue))
		switch env.Command {
		case CommandQuit:
			slog.Debug("notification worker received quit command")
			return
		case CommandEdit:
			if env.Text == "" {
				continue
			}
			p.call(ctx, env, func() error {
				return p.msgr.EditMessageText(env.Target.ChatID, env.Target.MessageID, env.Text)
			})
		case CommandDelete:
			p.call(ctx, env, func() error {
				return p.msgr.DeleteMessage(env.Target.ChatID, env.Target.MessageID)
			})
		}
	}
}

// call applies one outbound operation, retried only when the envelope asks
// for it. Failures never escape the worker loop.
func (p *Pool) call(ctx context.Context, env Envelope, op func() error) {
	wrapped := func() error {
		telemetry.RetryAttempts.Inc()
		return op()
	}
	var err error
	if env.WithRetry {
		err = retry.Void(ctx, p.policy, wrapped)
	} else {
		err = op()
	}
	if err != nil {
		slog.Warn("notification call failed", slog.Int64("chat", env.Target.ChatID), slog.Any("err", err))
		return
	}
	telemetry.EditsSent.Inc()
}
