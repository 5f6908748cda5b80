package events

import (
	"time"

	"classroom-quiz-service/internal/domain"
)

const (
	eventSource  = "classroom-quiz-service"
	eventVersion = "1.0"
)

// NotificationEvent is the envelope published for every notification.
type NotificationEvent struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Source    string              `json:"source"`
	Version   string              `json:"version"`
	Data      domain.Notification `json:"data"`
	Metadata  map[string]string   `json:"metadata,omitempty"`
}

func newNotificationEvent(id string, n domain.Notification, now time.Time) NotificationEvent {
	meta := map[string]string{"recipient_id": n.RecipientID}
	if n.RelatedID != "" {
		meta["related_id"] = n.RelatedID
		meta["related_model"] = string(n.RelatedModel)
	}
	return NotificationEvent{
		ID:        id,
		Type:      string(n.Type),
		Timestamp: now.UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      n,
		Metadata:  meta,
	}
}
