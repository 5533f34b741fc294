package bot

import (
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EChistov/ydl-bot/db"
	"github.com/EChistov/ydl-bot/store"
)

// userCache mirrors the telegram_user table so the per-message user check is
// a map lookup, not a query.
type userCache struct {
	mu    sync.RWMutex
	users map[int64]db.User
}

func newUserCache() *userCache {
	return &userCache{users: make(map[int64]db.User)}
}

// warm loads every known user from storage. The actor may not be running yet
// during startup failures; an error just leaves the cache cold and users are
// re-collected on first contact.
func (c *userCache) warm(actor *store.Actor) {
	users, err := store.Select(actor, db.AllUsersQuery(), db.ScanUsers, store.SelectWait)
	if err != nil {
		slog.Warn("user cache warmup failed", slog.Any("err", err))
		return
	}
	c.mu.Lock()
	for _, u := range users {
		c.users[u.ID] = u
	}
	c.mu.Unlock()
	slog.Info("user cache warmed", slog.Int("users", len(users)))
}

func (c *userCache) get(id int64) (db.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	return u, ok
}

func (c *userCache) put(u db.User) {
	c.mu.Lock()
	c.users[u.ID] = u
	c.mu.Unlock()
}

func (c *userCache) drop(id int64) {
	c.mu.Lock()
	delete(c.users, id)
	c.mu.Unlock()
}

// collectUser runs on every message before the handler proper. Unknown
// senders are inserted synchronously; known senders whose profile changed get
// a fire-and-forget update. ChatID rides along so the insert can cascade the
// chat row in the same transaction.
func (b *Bot) collectUser(from *tgbotapi.User, chatID int64) {
	incoming := db.User{
		ID:           from.ID,
		IsBot:        from.IsBot,
		FirstName:    from.FirstName,
		UserName:     from.UserName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
		ChatID:       chatID,
	}
	cached, ok := b.known.get(from.ID)
	if !ok {
		if b.actor.InsertWait(incoming, store.StatusWait) {
			b.known.put(incoming)
			slog.Info("new user collected", slog.Int64("id", incoming.ID), slog.String("username", incoming.UserName))
		}
		return
	}
	incoming.ChatID = cached.ChatID
	if cached.Equal(incoming) {
		return
	}
	b.actor.Update(incoming.UpdateStatement())
	b.known.put(incoming)
}
