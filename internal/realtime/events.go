package realtime

import "encoding/json"

// Server-to-client event names pushed to every live session of a recipient.
const (
	EventNotification        = "notification"
	EventNotificationRead    = "notificationRead"
	EventNotificationDeleted = "notificationDeleted"
	EventAllRead             = "allNotificationsRead"
	EventAllCleared          = "allNotificationsCleared"
)

// EventSendRequest is the only client-to-server event: a producer-event
// payload routed through the delivery gate like any other producer.
const EventSendRequest = "sendNotification"

// Envelope is the wire frame for both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an event name and payload into a wire frame.
func Encode(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: event, Data: raw})
}
