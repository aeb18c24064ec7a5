package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/Aninda2000/Royal-Media-sub001/internal/realtime"
)

type stubSettings struct {
	settings *models.NotificationSettings
}

func (s *stubSettings) Get(string) (*models.NotificationSettings, error) {
	return s.settings, nil
}

type memLedger struct {
	created []*models.Notification
}

func (l *memLedger) Create(_ context.Context, n *models.Notification) error {
	l.created = append(l.created, n)
	return nil
}

type recordPusher struct {
	events []string
}

func (p *recordPusher) Push(_ string, event string, _ interface{}) {
	p.events = append(p.events, event)
}

type recordDeferrer struct {
	entries []BatchEntry
	freqs   []models.Frequency
}

func (d *recordDeferrer) Defer(_ context.Context, freq models.Frequency, e BatchEntry) error {
	d.freqs = append(d.freqs, freq)
	d.entries = append(d.entries, e)
	return nil
}

func newTestGate(settings *models.NotificationSettings) (*Gate, *memLedger, *recordPusher, *recordDeferrer) {
	ledger := &memLedger{}
	pusher := &recordPusher{}
	deferrer := &recordDeferrer{}
	g := NewGate(&stubSettings{settings: settings}, ledger, pusher, nil, deferrer)
	return g, ledger, pusher, deferrer
}

func commentEvent() *models.Event {
	return &models.Event{
		RecipientID: "u1",
		Category:    models.CategoryComment,
		Title:       "New comment",
		Message:     "Someone replied to your post",
	}
}

func hasChannel(channels []models.Channel, ch models.Channel) bool {
	for _, c := range channels {
		if c == ch {
			return true
		}
	}
	return false
}

func TestEvaluateAllChannelsDisabledCreatesNothing(t *testing.T) {
	settings := models.DefaultSettings("u1")
	settings.EmailNotifications[models.CategoryComment] = false
	settings.PushNotifications[models.CategoryComment] = false
	settings.InAppNotifications[models.CategoryComment] = false
	g, ledger, pusher, _ := newTestGate(settings)

	decision, err := g.Evaluate(context.Background(), commentEvent())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Notification != nil {
		t.Error("no record should be created when every channel is off")
	}
	if len(ledger.created) != 0 || len(pusher.events) != 0 {
		t.Error("nothing should reach the ledger or the hub")
	}
}

func TestEvaluatePushDisabledInAppEnabled(t *testing.T) {
	settings := models.DefaultSettings("u1")
	settings.EmailNotifications[models.CategoryComment] = false
	settings.PushNotifications[models.CategoryComment] = false
	g, ledger, pusher, _ := newTestGate(settings)

	decision, err := g.Evaluate(context.Background(), commentEvent())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	n := decision.Notification
	if n == nil {
		t.Fatal("record should be created for the in-app channel")
	}
	if n.PushSent || n.EmailSent {
		t.Errorf("sent flags should be false, got email=%v push=%v", n.EmailSent, n.PushSent)
	}
	if len(ledger.created) != 1 {
		t.Fatalf("ledger writes=%d", len(ledger.created))
	}
	if len(pusher.events) != 1 || pusher.events[0] != realtime.EventNotification {
		t.Errorf("hub events=%v", pusher.events)
	}
	if !hasChannel(decision.Dispatched, models.ChannelInApp) {
		t.Errorf("dispatched=%v", decision.Dispatched)
	}
}

func TestEvaluateQuietHoursSuppressEmailAndPush(t *testing.T) {
	settings := models.DefaultSettings("u1")
	settings.QuietHours.Enabled = true // 22:00-08:00 UTC
	g, ledger, _, deferrer := newTestGate(settings)
	g.now = func() time.Time {
		return time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	}

	decision, err := g.Evaluate(context.Background(), commentEvent())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	n := decision.Notification
	if n == nil {
		t.Fatal("in-app record should still be created during quiet hours")
	}
	if n.EmailSent || n.PushSent {
		t.Error("quiet hours must suppress email and push")
	}
	if hasChannel(decision.Dispatched, models.ChannelEmail) || hasChannel(decision.Dispatched, models.ChannelPush) {
		t.Errorf("dispatched=%v", decision.Dispatched)
	}
	if len(decision.Deferred) != 0 || len(deferrer.entries) != 0 {
		t.Error("suppressed is not deferred")
	}
	if len(ledger.created) != 1 {
		t.Fatalf("ledger writes=%d", len(ledger.created))
	}
}

func TestEvaluateUrgentBypassesQuietHours(t *testing.T) {
	settings := models.DefaultSettings("u1")
	settings.QuietHours.Enabled = true
	g, _, _, _ := newTestGate(settings)
	g.now = func() time.Time {
		return time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	}

	ev := commentEvent()
	ev.Priority = models.PriorityUrgent
	decision, err := g.Evaluate(context.Background(), ev)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	n := decision.Notification
	if n == nil {
		t.Fatal("urgent event should be delivered")
	}
	if !n.EmailSent || !n.PushSent {
		t.Error("urgent priority must bypass quiet hours")
	}
}

func TestEvaluateQuietHoursCanSuppressWholeDelivery(t *testing.T) {
	settings := models.DefaultSettings("u1")
	settings.QuietHours.Enabled = true
	settings.InAppNotifications[models.CategoryComment] = false
	g, ledger, _, _ := newTestGate(settings)
	g.now = func() time.Time {
		return time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	}

	decision, err := g.Evaluate(context.Background(), commentEvent())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Notification != nil || len(ledger.created) != 0 {
		t.Error("no channel survives suppression, so no record may exist")
	}
}

func TestEvaluateFrequencyDefersEmailAndPush(t *testing.T) {
	settings := models.DefaultSettings("u1")
	settings.Frequency = models.FrequencyHourly
	g, _, pusher, deferrer := newTestGate(settings)

	decision, err := g.Evaluate(context.Background(), commentEvent())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	n := decision.Notification
	if n == nil {
		t.Fatal("record should be created")
	}
	if n.EmailSent || n.PushSent {
		t.Error("deferred channels must not be flagged sent at creation")
	}
	if !hasChannel(decision.Deferred, models.ChannelEmail) || !hasChannel(decision.Deferred, models.ChannelPush) {
		t.Errorf("deferred=%v", decision.Deferred)
	}
	if len(deferrer.entries) != 2 {
		t.Fatalf("deferred entries=%d", len(deferrer.entries))
	}
	for _, freq := range deferrer.freqs {
		if freq != models.FrequencyHourly {
			t.Errorf("freq=%s", freq)
		}
	}
	// In-app is unaffected by frequency.
	if len(pusher.events) != 1 {
		t.Errorf("hub events=%v", pusher.events)
	}
}

func TestEvaluateRejectsMalformedEvent(t *testing.T) {
	g, ledger, _, _ := newTestGate(models.DefaultSettings("u1"))

	ev := commentEvent()
	ev.Category = "comments"
	_, err := g.Evaluate(context.Background(), ev)
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("err=%v, want validation error", err)
	}
	if len(ledger.created) != 0 {
		t.Error("rejected event must not be partially applied")
	}
}

func TestEvaluateSetsExpiry(t *testing.T) {
	g, _, _, _ := newTestGate(models.DefaultSettings("u1"))
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	ev := commentEvent()
	ev.TTLSeconds = 3600
	decision, err := g.Evaluate(context.Background(), ev)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	n := decision.Notification
	if n.ExpiresAt == nil {
		t.Fatal("expiry not set")
	}
	if !n.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Errorf("expires_at=%v", n.ExpiresAt)
	}
}
