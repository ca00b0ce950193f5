package service

import (
	"sync"

	"enclosure_gateway/internal/models"
)

// Notifier fans appended log entries out to live subscribers. Slow
// subscribers miss entries rather than block the core.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan models.LogEntry
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan models.LogEntry)}
}

// Subscribe returns a channel of future entries and a cancel func that closes it.
func (n *Notifier) Subscribe(buffer int) (<-chan models.LogEntry, func()) {
	ch := make(chan models.LogEntry, buffer)

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (n *Notifier) publish(e models.LogEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
