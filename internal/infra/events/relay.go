package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"classroom-quiz-service/internal/domain"
)

// Sink receives decoded notifications.
type Sink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Relay consumes notification events from a topic and hands them to a sink,
// typically the in-memory inbox that feeds websocket clients.
type Relay struct {
	subscriber message.Subscriber
	topic      string
	sink       Sink
	logger     *slog.Logger
}

func NewRelay(sub message.Subscriber, topic string, sink Sink, logger *slog.Logger) *Relay {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{subscriber: sub, topic: topic, sink: sink, logger: logger}
}

// Run blocks until ctx is cancelled or the subscription closes.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, r.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.topic, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg)
		}
	}
}

func (r *Relay) handle(ctx context.Context, msg *message.Message) {
	var event NotificationEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		r.logger.Warn("dropping malformed notification event", "message_id", msg.UUID, "error", err)
		msg.Ack()
		return
	}
	if err := r.sink.Notify(ctx, event.Data); err != nil {
		r.logger.Warn("notification sink failed", "event_id", event.ID, "error", err)
	}
	msg.Ack()
}
