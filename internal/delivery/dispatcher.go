package delivery

import (
	"context"
	"log"

	"firebase.google.com/go/v4/messaging"
	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
)

// Dispatcher hands a decided delivery to the external email/push providers.
// The engine only decides "send via channel X"; provider retries, deadlines
// and exactly-once semantics are the integration's concern.
type Dispatcher interface {
	SendEmail(ctx context.Context, n *models.Notification) error
	SendPush(ctx context.Context, n *models.Notification) error
}

// FCMDispatcher sends push via Firebase Cloud Messaging, addressing the
// per-user topic the mobile clients subscribe to. Email goes to the platform
// mailer queue; until that integration lands it is logged only.
type FCMDispatcher struct {
	messaging *messaging.Client
}

// NewFCMDispatcher creates a dispatcher backed by an FCM client.
func NewFCMDispatcher(client *messaging.Client) *FCMDispatcher {
	return &FCMDispatcher{messaging: client}
}

// SendPush delivers the notification to the recipient's FCM topic.
func (d *FCMDispatcher) SendPush(ctx context.Context, n *models.Notification) error {
	msg := &messaging.Message{
		Topic: "user-" + n.RecipientID,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: map[string]string{
			"notification_id": n.ID,
			"category":        string(n.Category),
			"priority":        string(n.Priority),
		},
	}
	_, err := d.messaging.Send(ctx, msg)
	return err
}

// SendEmail records the email decision for the recipient.
func (d *FCMDispatcher) SendEmail(_ context.Context, n *models.Notification) error {
	log.Printf("delivery: email %s queued for %s (%s)", n.ID, n.RecipientID, n.Category)
	return nil
}
