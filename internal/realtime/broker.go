// Package realtime carries persisted messages to every connected socket,
// possibly across server instances.
package realtime

import (
	"context"
	"sync"

	"github.com/Vasu1712/lounge-backend/internal/models"
)

// Broker publishes messages after they are persisted. Publishing is best
// effort: the store remains the source of truth and clients reconcile from
// history.
type Broker interface {
	Publish(ctx context.Context, msg models.Message) error
	// Subscribe returns a channel fed until ctx is done, then closed.
	Subscribe(ctx context.Context) (<-chan models.Message, error)
}

type subscriber struct {
	ch   chan models.Message
	done <-chan struct{}
}

// MemoryBroker fans messages out inside a single process.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	buffer int
}

func NewMemoryBroker(buffer int) *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]*subscriber), buffer: buffer}
}

// Publish blocks until every live subscriber accepted msg, so a single
// publisher's messages arrive in order.
func (b *MemoryBroker) Publish(ctx context.Context, msg models.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context) (<-chan models.Message, error) {
	s := &subscriber{ch: make(chan models.Message, b.buffer), done: ctx.Done()}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(s.ch)
	}()
	return s.ch, nil
}
