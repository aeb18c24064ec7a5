package delivery

import (
	"context"
	"log"
	"time"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/Aninda2000/Royal-Media-sub001/internal/realtime"
	"github.com/google/uuid"
)

// SettingsSource resolves a recipient's delivery matrix.
type SettingsSource interface {
	Get(userID string) (*models.NotificationSettings, error)
}

// Ledger is the slice of the notification store the gate writes to.
type Ledger interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Pusher fans a ledger mutation out to the recipient's live sessions.
type Pusher interface {
	Push(recipientID, event string, data interface{})
}

// Deferrer queues an email/push dispatch into a batching window.
type Deferrer interface {
	Defer(ctx context.Context, freq models.Frequency, e BatchEntry) error
}

// Decision is the gate's output: the created record (nil when every channel
// was off) plus which channels were dispatched inline versus deferred.
type Decision struct {
	Notification *models.Notification `json:"notification,omitempty"`
	Dispatched   []models.Channel     `json:"dispatched"`
	Deferred     []models.Channel     `json:"deferred"`
}

// Gate decides, per recipient and channel, whether and when an event is
// delivered. It is the only component that creates ledger records.
type Gate struct {
	settings   SettingsSource
	ledger     Ledger
	hub        Pusher
	dispatcher Dispatcher
	batcher    Deferrer
	now        func() time.Time
}

// NewGate wires a delivery gate. dispatcher and batcher may be nil in tests;
// decisions are still recorded, dispatch is skipped.
func NewGate(settings SettingsSource, ledger Ledger, hub Pusher, dispatcher Dispatcher, batcher Deferrer) *Gate {
	return &Gate{
		settings:   settings,
		ledger:     ledger,
		hub:        hub,
		dispatcher: dispatcher,
		batcher:    batcher,
		now:        time.Now,
	}
}

// Evaluate runs the preference matrix, quiet hours and frequency rules for
// one event. It creates exactly one ledger record when at least one channel
// survives suppression, and none otherwise.
func (g *Gate) Evaluate(ctx context.Context, ev *models.Event) (*Decision, error) {
	if err := ev.Normalize(); err != nil {
		return nil, err
	}

	settings, err := g.settings.Get(ev.RecipientID)
	if err != nil {
		return nil, err
	}

	email := settings.Enabled(models.ChannelEmail, ev.Category)
	push := settings.Enabled(models.ChannelPush, ev.Category)
	inApp := settings.Enabled(models.ChannelInApp, ev.Category)
	if !email && !push && !inApp {
		return &Decision{}, nil
	}

	now := g.now().UTC()

	// Quiet hours silence email and push for non-urgent events. In-app
	// delivery is pull-based and never suppressed.
	if ev.Priority != models.PriorityUrgent && settings.QuietHours.Contains(now) {
		email, push = false, false
	}
	if !email && !push && !inApp {
		return &Decision{}, nil
	}

	deferDispatch := settings.Frequency != models.FrequencyImmediate

	n := &models.Notification{
		ID:          uuid.New().String(),
		RecipientID: ev.RecipientID,
		Category:    ev.Category,
		Title:       ev.Title,
		Message:     ev.Message,
		ActorID:     ev.ActorID,
		Entity:      ev.Entity,
		Payload:     ev.Payload,
		Priority:    ev.Priority,
		EmailSent:   email && !deferDispatch,
		PushSent:    push && !deferDispatch,
	}
	if ttl := ev.TTL(); ttl > 0 {
		expiry := now.Add(ttl)
		n.ExpiresAt = &expiry
	}

	if err := g.ledger.Create(ctx, n); err != nil {
		return nil, err
	}

	if inApp && g.hub != nil {
		g.hub.Push(n.RecipientID, realtime.EventNotification, n)
	}

	decision := &Decision{Notification: n, Dispatched: nil, Deferred: nil}
	if inApp {
		decision.Dispatched = append(decision.Dispatched, models.ChannelInApp)
	}
	for _, ch := range []models.Channel{models.ChannelEmail, models.ChannelPush} {
		eligible := (ch == models.ChannelEmail && email) || (ch == models.ChannelPush && push)
		if !eligible {
			continue
		}
		if deferDispatch {
			decision.Deferred = append(decision.Deferred, ch)
			if g.batcher != nil {
				entry := BatchEntry{NotificationID: n.ID, RecipientID: n.RecipientID, Channel: ch}
				if err := g.batcher.Defer(ctx, settings.Frequency, entry); err != nil {
					log.Printf("delivery: deferring %s for %s failed: %v", ch, n.ID, err)
				}
			}
			continue
		}
		decision.Dispatched = append(decision.Dispatched, ch)
		if g.dispatcher != nil {
			// Provider calls are fire-and-forget; they never run under the
			// fanout lock and their failures stay out of the request path.
			go g.dispatch(ch, n)
		}
	}
	return decision, nil
}

func (g *Gate) dispatch(ch models.Channel, n *models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var err error
	switch ch {
	case models.ChannelEmail:
		err = g.dispatcher.SendEmail(ctx, n)
	case models.ChannelPush:
		err = g.dispatcher.SendPush(ctx, n)
	}
	if err != nil {
		log.Printf("delivery: %s dispatch for %s failed: %v", ch, n.ID, err)
	}
}
