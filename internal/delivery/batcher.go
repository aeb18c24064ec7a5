package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// BatchEntry is one deferred email/push dispatch waiting for its window.
type BatchEntry struct {
	NotificationID string         `json:"notification_id"`
	RecipientID    string         `json:"recipient_id"`
	Channel        models.Channel `json:"channel"`
}

// BatchLedger is the ledger slice the batcher needs: re-fetch the record at
// flush time (so expired records are skipped) and raise its sent flags.
type BatchLedger interface {
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	SetSentFlags(ctx context.Context, id string, email, push bool) error
}

// Batcher holds deferred dispatches in Redis lists, one per frequency, and
// drains them when the window's cron job fires.
type Batcher struct {
	rdb        *redis.Client
	ledger     BatchLedger
	dispatcher Dispatcher
}

// NewBatcher creates a Batcher.
func NewBatcher(rdb *redis.Client, ledger BatchLedger, dispatcher Dispatcher) *Batcher {
	return &Batcher{rdb: rdb, ledger: ledger, dispatcher: dispatcher}
}

func batchKey(freq models.Frequency) string {
	return fmt.Sprintf("notify:deferred:%s", freq)
}

// Defer queues an entry for the given frequency window.
func (b *Batcher) Defer(ctx context.Context, freq models.Frequency, e BatchEntry) error {
	if freq == models.FrequencyImmediate {
		return fmt.Errorf("immediate dispatch is never deferred")
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.RPush(ctx, batchKey(freq), raw).Err()
}

// Flush drains the frequency's queue, dispatches every entry whose record is
// still visible and records the sent flag. Returns how many were dispatched.
func (b *Batcher) Flush(ctx context.Context, freq models.Frequency) (int, error) {
	dispatched := 0
	for {
		raw, err := b.rdb.LPop(ctx, batchKey(freq)).Bytes()
		if err == redis.Nil {
			return dispatched, nil
		}
		if err != nil {
			return dispatched, err
		}

		var entry BatchEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			log.Printf("delivery: dropping malformed batch entry: %v", err)
			continue
		}

		n, err := b.ledger.GetByID(ctx, entry.NotificationID)
		if err != nil {
			// Expired or deleted while deferred; the window is simply missed.
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			log.Printf("delivery: batch fetch %s failed: %v", entry.NotificationID, err)
			continue
		}

		var sendErr error
		switch entry.Channel {
		case models.ChannelEmail:
			sendErr = b.dispatcher.SendEmail(ctx, n)
		case models.ChannelPush:
			sendErr = b.dispatcher.SendPush(ctx, n)
		default:
			continue
		}
		if sendErr != nil {
			log.Printf("delivery: batched %s dispatch for %s failed: %v", entry.Channel, n.ID, sendErr)
			continue
		}

		email := entry.Channel == models.ChannelEmail
		push := entry.Channel == models.ChannelPush
		if err := b.ledger.SetSentFlags(ctx, n.ID, email, push); err != nil {
			log.Printf("delivery: recording sent flag for %s failed: %v", n.ID, err)
		}
		dispatched++
	}
}

// ExpirySweeper reaps logically expired ledger records.
type ExpirySweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RegisterExpirySweep schedules a daily sweep backing up the store's own TTL
// reaping, which runs on its own lazy schedule.
func RegisterExpirySweep(c *cron.Cron, sweeper ExpirySweeper) error {
	_, err := c.AddFunc("30 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		reaped, err := sweeper.DeleteExpired(ctx)
		if err != nil {
			log.Printf("delivery: expiry sweep failed: %v", err)
			return
		}
		if reaped > 0 {
			log.Printf("delivery: expiry sweep removed %d records", reaped)
		}
	})
	return err
}

// RegisterCronJobs schedules the batch windows: hourly on the hour, daily at
// 08:00, weekly Monday 08:00.
func RegisterCronJobs(c *cron.Cron, b *Batcher) error {
	schedules := map[models.Frequency]string{
		models.FrequencyHourly: "0 * * * *",
		models.FrequencyDaily:  "0 8 * * *",
		models.FrequencyWeekly: "0 8 * * 1",
	}
	for freq, schedule := range schedules {
		freq := freq
		if _, err := c.AddFunc(schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			sent, err := b.Flush(ctx, freq)
			if err != nil {
				log.Printf("delivery: %s batch flush failed after %d sends: %v", freq, sent, err)
				return
			}
			if sent > 0 {
				log.Printf("delivery: %s batch flushed %d dispatches", freq, sent)
			}
		}); err != nil {
			return err
		}
	}
	return nil
}
