package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
	// Quiet-hours evaluation needs timezone data even on scratch containers.
	_ "time/tzdata"
)

// Channel is an independent delivery path with its own per-category flag.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "inApp"
)

// Frequency is the batching cadence for email/push dispatch. In-app delivery
// and ledger creation are always immediate.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// ChannelMatrix maps each category to an enabled flag. Stored as jsonb.
type ChannelMatrix map[Category]bool

// Value implements driver.Valuer for the jsonb column.
func (m ChannelMatrix) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for the jsonb column.
func (m *ChannelMatrix) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = ChannelMatrix{}
		return nil
	}
	return fmt.Errorf("unsupported type %T for ChannelMatrix", src)
}

// QuietHours is a recipient-local window in which email/push dispatch is
// suppressed for non-urgent events.
type QuietHours struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"start_time" gorm:"size:5"`
	EndTime   string `json:"end_time" gorm:"size:5"`
	Timezone  string `json:"timezone" gorm:"size:64"`
}

// Contains reports whether now falls inside the window [start, end) in the
// configured timezone. end < start means the window wraps across midnight.
// A window that cannot be parsed never matches.
func (q QuietHours) Contains(now time.Time) bool {
	if !q.Enabled {
		return false
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		loc = time.UTC
	}
	start, err := minutesOfDay(q.StartTime)
	if err != nil {
		return false
	}
	end, err := minutesOfDay(q.EndTime)
	if err != nil {
		return false
	}
	local := now.In(loc)
	cur := local.Hour()*60 + local.Minute()
	if start == end {
		return false
	}
	if start < end {
		return cur >= start && cur < end
	}
	// Wraps midnight, e.g. 22:00-08:00.
	return cur >= start || cur < end
}

// minutesOfDay parses "HH:mm" into minutes since midnight.
func minutesOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// NotificationSettings is the per-recipient delivery matrix (PostgreSQL).
// Exactly one row per user; materialized lazily with defaults on first access.
type NotificationSettings struct {
	UserID             string        `json:"user_id" gorm:"primaryKey;size:128"`
	EmailNotifications ChannelMatrix `json:"email_notifications" gorm:"type:jsonb"`
	PushNotifications  ChannelMatrix `json:"push_notifications" gorm:"type:jsonb"`
	InAppNotifications ChannelMatrix `json:"in_app_notifications" gorm:"type:jsonb"`
	QuietHours         QuietHours    `json:"quiet_hours" gorm:"embedded;embeddedPrefix:quiet_"`
	Frequency          Frequency     `json:"frequency" gorm:"size:16"`
	CreatedAt          time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the table name explicit.
func (NotificationSettings) TableName() string { return "notification_settings" }

// DefaultSettings returns the matrix applied to recipients that never saved
// any preferences: email on for everything except posts, push additionally
// off for likes, in-app on for all categories.
func DefaultSettings(userID string) *NotificationSettings {
	email := ChannelMatrix{}
	push := ChannelMatrix{}
	inApp := ChannelMatrix{}
	for _, c := range Categories {
		email[c] = c != CategoryPost
		push[c] = c != CategoryPost && c != CategoryLike
		inApp[c] = true
	}
	return &NotificationSettings{
		UserID:             userID,
		EmailNotifications: email,
		PushNotifications:  push,
		InAppNotifications: inApp,
		QuietHours: QuietHours{
			Enabled:   false,
			StartTime: "22:00",
			EndTime:   "08:00",
			Timezone:  "UTC",
		},
		Frequency: FrequencyImmediate,
	}
}

// Enabled reports whether the given channel is on for the category.
func (s *NotificationSettings) Enabled(ch Channel, cat Category) bool {
	switch ch {
	case ChannelEmail:
		return s.EmailNotifications[cat]
	case ChannelPush:
		return s.PushNotifications[cat]
	case ChannelInApp:
		return s.InAppNotifications[cat]
	}
	return false
}

// QuietHoursPatch carries partial quiet-hours updates; nil fields are kept.
type QuietHoursPatch struct {
	Enabled   *bool   `json:"enabled,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
}

// SettingsPatch is the request body for PATCH /notifications/settings.
// Matrices are merged per category; keys not present are left untouched.
type SettingsPatch struct {
	EmailNotifications map[string]bool  `json:"email_notifications,omitempty"`
	PushNotifications  map[string]bool  `json:"push_notifications,omitempty"`
	InAppNotifications map[string]bool  `json:"in_app_notifications,omitempty"`
	QuietHours         *QuietHoursPatch `json:"quiet_hours,omitempty"`
	Frequency          *Frequency       `json:"frequency,omitempty"`
}

// Apply merges the patch into s. Unknown category keys, malformed times and
// unknown frequencies are rejected without applying anything.
func (s *NotificationSettings) Apply(p *SettingsPatch) error {
	if err := p.validate(); err != nil {
		return err
	}
	mergeMatrix(s.EmailNotifications, p.EmailNotifications)
	mergeMatrix(s.PushNotifications, p.PushNotifications)
	mergeMatrix(s.InAppNotifications, p.InAppNotifications)
	if q := p.QuietHours; q != nil {
		if q.Enabled != nil {
			s.QuietHours.Enabled = *q.Enabled
		}
		if q.StartTime != nil {
			s.QuietHours.StartTime = *q.StartTime
		}
		if q.EndTime != nil {
			s.QuietHours.EndTime = *q.EndTime
		}
		if q.Timezone != nil {
			s.QuietHours.Timezone = *q.Timezone
		}
	}
	if p.Frequency != nil {
		s.Frequency = *p.Frequency
	}
	return nil
}

func (p *SettingsPatch) validate() error {
	for _, m := range []map[string]bool{p.EmailNotifications, p.PushNotifications, p.InAppNotifications} {
		for key := range m {
			if !Category(key).Valid() {
				return fmt.Errorf("unknown category %q: %w", key, ErrValidation)
			}
		}
	}
	if q := p.QuietHours; q != nil {
		for _, t := range []*string{q.StartTime, q.EndTime} {
			if t == nil {
				continue
			}
			if _, err := minutesOfDay(*t); err != nil {
				return fmt.Errorf("%v: %w", err, ErrValidation)
			}
		}
		if q.Timezone != nil {
			if _, err := time.LoadLocation(*q.Timezone); err != nil {
				return fmt.Errorf("unknown timezone %q: %w", *q.Timezone, ErrValidation)
			}
		}
	}
	if p.Frequency != nil && !p.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q: %w", *p.Frequency, ErrValidation)
	}
	return nil
}

func mergeMatrix(dst ChannelMatrix, patch map[string]bool) {
	for key, enabled := range patch {
		dst[Category(key)] = enabled
	}
}
