// Package notify holds transient user-visible notifications. Failures that
// do not block navigation surface here and dismiss themselves after a short
// TTL; guard failures never go through this package, they block the view
// instead.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the notification severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 6 * time.Second

// Notification is one transient message.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	expiresAt time.Time
}

// Center stores active notifications and sweeps expired ones on each clock
// tick.
type Center struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	active map[string]Notification
}

// NewCenter creates a Center. A non-positive ttl falls back to DefaultTTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		ttl:    ttl,
		now:    time.Now,
		active: make(map[string]Notification),
	}
}

// Push adds a notification and returns its id.
func (c *Center) Push(level Level, message string) string {
	now := c.now()
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		expiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	c.active[n.ID] = n
	c.mu.Unlock()
	return n.ID
}

// Dismiss removes a notification before its TTL elapses.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
}

// Active returns the live notifications, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.active))
	for _, n := range c.active {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Sweep drops notifications past their TTL. Wired as a clock ticker
// listener.
func (c *Center) Sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, n := range c.active {
		if !now.Before(n.expiresAt) {
			delete(c.active, id)
		}
	}
}
