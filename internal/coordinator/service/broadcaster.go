package service

import (
	"sync"

	"reservd/pkg/logger"
	"reservd/pkg/model"
)

// broadcaster fans a resource's status payload out to every live
// subscriber. Publishing never blocks: a subscriber whose buffer is full
// is dropped and its channel closed, without affecting other subscribers
// or the mutation that triggered the push.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]chan model.StatusPayload
	nextID uint64
	buffer int
	closed bool
	log    *logger.Logger
}

func newBroadcaster(buffer int, log *logger.Logger) *broadcaster {
	if buffer <= 0 {
		buffer = 1
	}
	return &broadcaster{
		subs:   make(map[uint64]chan model.StatusPayload),
		buffer: buffer,
		log:    log,
	}
}

// subscribe registers a new subscriber whose first delivery is the given
// current payload. The returned cancel func is idempotent.
func (b *broadcaster) subscribe(current model.StatusPayload) (<-chan model.StatusPayload, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.StatusPayload, b.buffer)

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch <- current
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (b *broadcaster) publish(payload model.StatusPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- payload:
		default:
			// Subscriber is not keeping up; drop it so the mutation
			// path stays non-blocking.
			delete(b.subs, id)
			close(ch)
			b.log.Warn("Dropped slow status subscriber",
				"tenant_id", payload.TenantID,
				"kind", payload.Kind,
				"resource_id", payload.ResourceID,
				"subscriber_id", id,
			)
		}
	}
}

func (b *broadcaster) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
