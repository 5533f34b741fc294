// Package bot wires the Telegram transport to the storage actor, the
// notification pool and the download pipeline. Each incoming update is
// handled on its own goroutine behind a semaphore so one slow download never
// blocks the poll loop or other users.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EChistov/ydl-bot/auth"
	"github.com/EChistov/ydl-bot/config"
	"github.com/EChistov/ydl-bot/notify"
	"github.com/EChistov/ydl-bot/store"
)

type Bot struct {
	api   *tgbotapi.BotAPI
	cfg   *config.Config
	actor *store.Actor
	pool  *notify.Pool
	auth  *auth.Checker
	known *userCache
	gate  chan struct{}
}

// New connects to Telegram and warms the known-user and permission caches.
func New(cfg *config.Config, actor *store.Actor, checker *auth.Checker) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	b := &Bot{
		api:   api,
		cfg:   cfg,
		actor: actor,
		auth:  checker,
		known: newUserCache(),
		gate:  make(chan struct{}, cfg.HandlerConcurrency),
	}
	if _, err := api.Request(tgbotapi.NewSetMyCommands(botCommands()...)); err != nil {
		slog.Warn("command menu registration failed", slog.Any("err", err))
	}
	b.known.warm(actor)
	checker.Refresh()
	slog.Info("telegram bot authorized", slog.String("username", api.Self.UserName))
	return b, nil
}

// botCommands lists the commands shown in the Telegram command menu.
func botCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "id", Description: "Show your Telegram id"},
		{Command: "admin", Description: "Open the admin menu"},
	}
}

// Messenger exposes the outbound surface the notification pool drains.
func (b *Bot) Messenger() notify.Messenger {
	return telegramMessenger{api: b.api}
}

// SetPool injects the notification pool. The pool needs the Messenger from an
// already-connected bot, so it cannot be a New argument; call this before Run.
func (b *Bot) SetPool(pool *notify.Pool) { b.pool = pool }

// Run polls for updates until ctx is cancelled. Handlers already in flight
// are allowed to finish.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.gate <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.gate }()
				b.dispatch(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic", slog.Any("panic", r))
		}
	}()
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}
