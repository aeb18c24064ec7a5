package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Category is the fixed notification kind. The set is closed so the delivery
// gate's matrix lookup and the settings defaults stay exhaustive.
type Category string

const (
	CategoryLike          Category = "like"
	CategoryComment       Category = "comment"
	CategoryFollow        Category = "follow"
	CategoryMessage       Category = "message"
	CategoryMention       Category = "mention"
	CategoryPost          Category = "post"
	CategoryFriendRequest Category = "friend_request"
	CategorySystem        Category = "system"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryLike,
	CategoryComment,
	CategoryFollow,
	CategoryMessage,
	CategoryMention,
	CategoryPost,
	CategoryFriendRequest,
	CategorySystem,
}

// Valid reports whether c is one of the eight known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Priority controls quiet-hours bypass: urgent events are never suppressed.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// EntityRef is an optional polymorphic pointer to the object a notification
// is about (the liked post, the new follower, ...).
type EntityRef struct {
	Type string `json:"type" bson:"type" validate:"omitempty,oneof=post comment user conversation message"`
	ID   string `json:"id" bson:"id"`
}

// Notification is one delivered-or-pending event instance, stored in MongoDB.
// ExpiresAt backs a TTL index; reads additionally filter expired records so a
// record past its expiry is invisible even before Mongo reaps it.
type Notification struct {
	ID          string            `json:"id" bson:"_id"`
	RecipientID string            `json:"recipient_id" bson:"recipient_id"`
	Category    Category          `json:"category" bson:"category"`
	Title       string            `json:"title" bson:"title"`
	Message     string            `json:"message" bson:"message"`
	ActorID     string            `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Entity      *EntityRef        `json:"entity,omitempty" bson:"entity,omitempty"`
	Payload     map[string]string `json:"payload,omitempty" bson:"payload,omitempty"`
	ReadAt      *time.Time        `json:"read_at,omitempty" bson:"read_at,omitempty"`
	ClickedAt   *time.Time        `json:"clicked_at,omitempty" bson:"clicked_at,omitempty"`
	EmailSent   bool              `json:"email_sent" bson:"email_sent"`
	PushSent    bool              `json:"push_sent" bson:"push_sent"`
	Priority    Priority          `json:"priority" bson:"priority"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" bson:"updated_at"`
}

// Read reports whether the notification has been read.
func (n *Notification) Read() bool { return n.ReadAt != nil }

// Expired reports whether the record is logically gone as of now.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

// MaxTitleLen and MaxMessageLen bound user-visible notification text.
const (
	MaxTitleLen   = 200
	MaxMessageLen = 500
)

// Event is a producer event submitted to the delivery gate, either by a
// platform collaborator over HTTP or by a client session over the realtime
// channel. Both paths go through the same validation and preference checks.
type Event struct {
	RecipientID string            `json:"recipient_id" validate:"required"`
	Category    Category          `json:"category" validate:"required"`
	Priority    Priority          `json:"priority,omitempty"`
	ActorID     string            `json:"actor_id,omitempty"`
	Entity      *EntityRef        `json:"entity,omitempty"`
	Payload     map[string]string `json:"payload,omitempty"`
	Title       string            `json:"title" validate:"required,max=200"`
	Message     string            `json:"message" validate:"required,max=500"`
	TTLSeconds  int64             `json:"ttl_seconds,omitempty" validate:"omitempty,min=1"`
}

// TTL returns the requested record lifetime, zero when the event never expires.
func (e *Event) TTL() time.Duration {
	return time.Duration(e.TTLSeconds) * time.Second
}

// Normalize fills defaults and checks the closed enums. It runs on every
// inbound event regardless of origin.
func (e *Event) Normalize() error {
	if e.Priority == "" {
		e.Priority = PriorityNormal
	}
	if !e.Category.Valid() {
		return fmt.Errorf("unknown category %q: %w", e.Category, ErrValidation)
	}
	if !e.Priority.Valid() {
		return fmt.Errorf("unknown priority %q: %w", e.Priority, ErrValidation)
	}
	if e.RecipientID == "" || e.Title == "" || e.Message == "" {
		return fmt.Errorf("recipient, title and message are required: %w", ErrValidation)
	}
	// Character limits, not byte limits; matches the validate max tags,
	// which also count runes.
	if utf8.RuneCountInString(e.Title) > MaxTitleLen || utf8.RuneCountInString(e.Message) > MaxMessageLen {
		return fmt.Errorf("title or message too long: %w", ErrValidation)
	}
	if e.TTLSeconds < 0 {
		return fmt.Errorf("ttl must not be negative: %w", ErrValidation)
	}
	return nil
}
