package app

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type settings struct {
	now             func() time.Time
	newID           func() string
	logger          *slog.Logger
	notifier        Notifier
	enforceDuration bool
	fanOut          int
}

// Option customizes a service.
type Option func(*settings)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *settings) { s.newID = newID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func WithNotifier(n Notifier) Option {
	return func(s *settings) { s.notifier = n }
}

// WithDurationEnforcement rejects answers submitted after startedAt + duration.
func WithDurationEnforcement(enabled bool) Option {
	return func(s *settings) { s.enforceDuration = enabled }
}

// WithFanOutLimit bounds concurrent notification deliveries.
func WithFanOutLimit(n int) Option {
	return func(s *settings) { s.fanOut = n }
}

func newSettings(opts []Option) settings {
	s := settings{
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		notifier: NopNotifier{},
		fanOut:   8,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
