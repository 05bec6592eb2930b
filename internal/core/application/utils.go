package application

import (
	"context"
	"sync"

	"github.com/ark-network/lottery/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

const subscriberBufferSize = 64

// eventsBroker fans committed round events out to every live subscriber.
// A subscriber that does not keep up loses events instead of stalling the
// writer.
type eventsBroker struct {
	lock        *sync.RWMutex
	subscribers map[chan domain.RoundEvent]struct{}
	closed      bool
}

func newEventsBroker() *eventsBroker {
	return &eventsBroker{
		lock:        &sync.RWMutex{},
		subscribers: make(map[chan domain.RoundEvent]struct{}),
	}
}

func (b *eventsBroker) subscribe(ctx context.Context) <-chan domain.RoundEvent {
	b.lock.Lock()
	defer b.lock.Unlock()

	ch := make(chan domain.RoundEvent, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(ch)
	}()

	return ch
}

func (b *eventsBroker) unsubscribe(ch chan domain.RoundEvent) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *eventsBroker) publish(events []domain.RoundEvent) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	for ch := range b.subscribers {
		for _, event := range events {
			select {
			case ch <- event:
			default:
				log.Warnf("subscriber too slow, dropped %s event", event.GetType())
			}
		}
	}
}

func (b *eventsBroker) close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[chan domain.RoundEvent]struct{})
	b.closed = true
}
