package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"classroom-quiz-service/internal/domain"
)

// DefaultTopic carries quiz notifications.
const DefaultTopic = "quiz.notifications"

// Publisher turns notifications into watermill messages. It satisfies
// app.Notifier.
type Publisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
	now       func() time.Time
}

func NewPublisher(pub message.Publisher, topic string, logger *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{publisher: pub, topic: topic, logger: logger, now: time.Now}
}

// NewGoChannel builds the in-process pub/sub used when no broker is configured.
func NewGoChannel(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewSlogLogger(logger))
}

// NewKafkaPublisher connects a watermill publisher to the given brokers.
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (message.Publisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return pub, nil
}

func (p *Publisher) Notify(ctx context.Context, n domain.Notification) error {
	event := newNotificationEvent(uuid.NewString(), n, p.now())
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))
	msg.Metadata.Set("recipient_id", n.RecipientID)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.logger.Error("publish notification failed", "event_id", event.ID, "event_type", event.Type, "error", err)
		return fmt.Errorf("publish notification event: %w", err)
	}
	p.logger.Debug("published notification", "event_id", event.ID, "event_type", event.Type, "topic", p.topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.publisher.Close()
}
