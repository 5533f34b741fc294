// Package auth keeps in-memory permission caches so the hot path of every
// incoming update never touches the database. The caches are refreshed from
// the storage actor whenever grants change.
package auth

import (
	"log/slog"
	"sync"

	"github.com/EChistov/ydl-bot/db"
	"github.com/EChistov/ydl-bot/store"
)

// Checker answers "may this user talk to the bot" and "is this user an
// admin" from cached grant sets. Super admins come from configuration and
// bypass the database entirely.
type Checker struct {
	actor       *store.Actor
	superAdmins map[int64]struct{}

	mu     sync.RWMutex
	users  map[int64]struct{}
	admins map[int64]struct{}
}

func NewChecker(actor *store.Actor, superAdmins map[int64]struct{}) *Checker {
	return &Checker{
		actor:       actor,
		superAdmins: superAdmins,
		users:       make(map[int64]struct{}),
		admins:      make(map[int64]struct{}),
	}
}

// Refresh reloads both grant caches from storage. A failed or timed-out load
// leaves the corresponding cache empty rather than stale: denying everyone
// until the next refresh beats admitting someone whose grant was revoked.
func (c *Checker) Refresh() {
	users := c.load(db.TierUser)
	admins := c.load(db.TierAdmin)
	c.mu.Lock()
	c.users = users
	c.admins = admins
	c.mu.Unlock()
	slog.Debug("permission caches refreshed", slog.Int("users", len(users)), slog.Int("admins", len(admins)))
}

func (c *Checker) load(tier db.Tier) map[int64]struct{} {
	set := make(map[int64]struct{})
	ids, err := store.Select(c.actor, db.PermittedIDsQuery(tier), db.ScanIDs, store.SelectWait)
	if err != nil {
		slog.Warn("permission cache load failed", slog.String("tier", string(tier)), slog.Any("err", err))
		return set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IsUser reports whether the id may use the bot at all.
func (c *Checker) IsUser(id int64) bool {
	if _, ok := c.superAdmins[id]; ok {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.users[id]
	return ok
}

// IsAdmin reports whether the id may open the admin console.
func (c *Checker) IsAdmin(id int64) bool {
	if _, ok := c.superAdmins[id]; ok {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.admins[id]
	return ok
}

// IsSuperAdmin reports whether the id is a configured super admin. Super
// admin status cannot be granted or revoked at runtime.
func (c *Checker) IsSuperAdmin(id int64) bool {
	_, ok := c.superAdmins[id]
	return ok
}
