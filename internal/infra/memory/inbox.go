package memory

import (
	"context"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// Inbox stores notifications per recipient and pushes them to live
// subscribers. It satisfies app.Notifier.
type Inbox struct {
	mu          sync.RWMutex
	messages    map[string][]domain.Notification
	subscribers map[string]map[chan domain.Notification]struct{}
}

func NewInbox() *Inbox {
	return &Inbox{
		messages:    make(map[string][]domain.Notification),
		subscribers: make(map[string]map[chan domain.Notification]struct{}),
	}
}

func (i *Inbox) Notify(_ context.Context, n domain.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.messages[n.RecipientID] = append(i.messages[n.RecipientID], n)
	for ch := range i.subscribers[n.RecipientID] {
		select {
		case ch <- n:
		default:
			// slow subscriber: drop its oldest pending message
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
	return nil
}

// List returns the notifications received by a recipient, oldest first.
func (i *Inbox) List(recipientID string) []domain.Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]domain.Notification(nil), i.messages[recipientID]...)
}

// Subscribe streams notifications for a recipient until cancel is called.
func (i *Inbox) Subscribe(recipientID string) (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, 8)

	i.mu.Lock()
	if i.subscribers[recipientID] == nil {
		i.subscribers[recipientID] = make(map[chan domain.Notification]struct{})
	}
	i.subscribers[recipientID][ch] = struct{}{}
	i.mu.Unlock()

	cancel := func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		subs := i.subscribers[recipientID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(i.subscribers, recipientID)
			}
		}
	}
	return ch, cancel
}
