// Package notifyclient mirrors a recipient's notification list on one client
// session. It applies server pushes, tracks a derived unread counter, and
// supports optimistic local mutations that roll back on server rejection.
// A cache is always re-initializable from the server's list endpoint, which
// is the catch-up path after a dropped realtime connection.
package notifyclient

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/Aninda2000/Royal-Media-sub001/internal/realtime"
	"github.com/google/uuid"
)

type opKind int

const (
	opMarkRead opKind = iota
	opDelete
	opClearAll
)

// pendingOp remembers enough pre-mutation state to undo one optimistic
// mutation if the server rejects it.
type pendingOp struct {
	kind opKind
	prev []models.Notification
}

// Cache is a per-session mirror of the recipient's notifications, newest
// first. All methods are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	items   []models.Notification
	pending map[string]pendingOp
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{pending: make(map[string]pendingOp)}
}

// Reset replaces the mirror with an authoritative list result. Pending
// optimistic mutations are discarded; the server state wins.
func (c *Cache) Reset(list []models.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]models.Notification(nil), list...)
	sortNewestFirst(c.items)
	c.pending = make(map[string]pendingOp)
}

// Items returns a copy of the mirrored list, newest first.
func (c *Cache) Items() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Notification(nil), c.items...)
}

// UnreadCount derives the unread counter from the mirrored list.
func (c *Cache) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unreadLocked()
}

func (c *Cache) unreadLocked() int {
	count := 0
	for i := range c.items {
		if c.items[i].ReadAt == nil {
			count++
		}
	}
	return count
}

// recordEvent is the payload of single-record server pushes.
type recordEvent struct {
	ID string `json:"id"`
}

// ApplyFrame decodes a realtime wire frame and applies it to the mirror.
func (c *Cache) ApplyFrame(frame []byte) error {
	var env realtime.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("malformed frame: %w", err)
	}
	return c.Apply(env.Type, env.Data)
}

// Apply applies one server event to the mirror.
func (c *Cache) Apply(event string, data json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event {
	case realtime.EventNotification:
		var n models.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		c.upsertLocked(n)
	case realtime.EventNotificationRead:
		var ev recordEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		if n := c.findLocked(ev.ID); n != nil && n.ReadAt == nil {
			now := time.Now().UTC()
			n.ReadAt = &now
		}
	case realtime.EventNotificationDeleted:
		var ev recordEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		c.removeLocked(ev.ID)
	case realtime.EventAllRead:
		now := time.Now().UTC()
		for i := range c.items {
			if c.items[i].ReadAt == nil {
				c.items[i].ReadAt = &now
			}
		}
	case realtime.EventAllCleared:
		c.items = nil
	default:
		return fmt.Errorf("unknown event %q", event)
	}
	return nil
}

// MarkRead optimistically marks a notification read and returns an op id to
// confirm or roll back once the server answers. ok is false when the id is
// not mirrored.
func (c *Cache) MarkRead(id string) (opID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.findLocked(id)
	if n == nil {
		return "", false
	}
	op := pendingOp{kind: opMarkRead, prev: []models.Notification{*n}}
	now := time.Now().UTC()
	if n.ReadAt == nil {
		n.ReadAt = &now
	}
	return c.trackLocked(op), true
}

// Delete optimistically removes a notification.
func (c *Cache) Delete(id string) (opID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.findLocked(id)
	if n == nil {
		return "", false
	}
	op := pendingOp{kind: opDelete, prev: []models.Notification{*n}}
	c.removeLocked(id)
	return c.trackLocked(op), true
}

// ClearAll optimistically empties the mirror.
func (c *Cache) ClearAll() (opID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op := pendingOp{kind: opClearAll, prev: append([]models.Notification(nil), c.items...)}
	c.items = nil
	return c.trackLocked(op)
}

// Confirm discards the undo state of an acknowledged mutation.
func (c *Cache) Confirm(opID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, opID)
}

// Rollback undoes a rejected optimistic mutation. Server pushes that arrived
// since the mutation are kept: restoration merges by id and the live record
// wins over the snapshot.
func (c *Cache) Rollback(opID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.pending[opID]
	if !ok {
		return
	}
	delete(c.pending, opID)

	switch op.kind {
	case opMarkRead:
		prev := op.prev[0]
		if n := c.findLocked(prev.ID); n != nil {
			n.ReadAt = prev.ReadAt
		}
	case opDelete, opClearAll:
		for _, prev := range op.prev {
			if c.findLocked(prev.ID) == nil {
				c.items = append(c.items, prev)
			}
		}
		sortNewestFirst(c.items)
	}
}

func (c *Cache) trackLocked(op pendingOp) string {
	id := uuid.New().String()
	c.pending[id] = op
	return id
}

func (c *Cache) findLocked(id string) *models.Notification {
	for i := range c.items {
		if c.items[i].ID == id {
			return &c.items[i]
		}
	}
	return nil
}

func (c *Cache) removeLocked(id string) {
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *Cache) upsertLocked(n models.Notification) {
	if existing := c.findLocked(n.ID); existing != nil {
		*existing = n
		return
	}
	c.items = append([]models.Notification{n}, c.items...)
	sortNewestFirst(c.items)
}

func sortNewestFirst(items []models.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
