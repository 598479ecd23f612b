package notifications

import (
	"sync"

	"medconnect-server/internal/models"
)

const subscriberBuffer = 16

// Broadcaster fans new notifications out to live stream subscribers, keyed by recipient.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]map[chan models.Notification]struct{}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]map[chan models.Notification]struct{}),
	}
}

// Subscribe registers a client for recipientID. The returned function
// unregisters it and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe(recipientID string) (<-chan models.Notification, func()) {
	ch := make(chan models.Notification, subscriberBuffer)

	b.mu.Lock()
	if b.clients[recipientID] == nil {
		b.clients[recipientID] = make(map[chan models.Notification]struct{})
	}
	b.clients[recipientID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.clients[recipientID], ch)
			if len(b.clients[recipientID]) == 0 {
				delete(b.clients, recipientID)
			}
			close(ch)
		})
	}
}

// Publish delivers n to the recipient's subscribers without blocking.
// A subscriber with a full buffer misses the event. It returns the number
// of subscribers reached.
func (b *Broadcaster) Publish(n models.Notification) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for ch := range b.clients[n.RecipientID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of open streams for recipientID.
func (b *Broadcaster) Subscribers(recipientID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients[recipientID])
}
