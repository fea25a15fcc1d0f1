package progress

import (
	"fmt"
	"sync"

	"github.com/swsreview/engine/internal/infrastructure/logger"
)

// Bus fans out progress events to registered observers, non-blocking and
// panic-recovered per observer so one misbehaving subscriber (e.g. a
// disconnected SSE client) can't stall or crash the producer.
type Bus struct {
	observers []Observer
	logger    *logger.Logger
	mu        sync.RWMutex
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report observer failures.
func WithLogger(l *logger.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{observers: make([]Observer, 0)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Register(o Observer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.observers {
		if existing.Name() == o.Name() {
			return fmt.Errorf("observer %q already registered", o.Name())
		}
	}
	b.observers = append(b.observers, o)
	return nil
}

func (b *Bus) Unregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, o := range b.observers {
		if o.Name() == name {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// Publish notifies all registered observers of event. Each observer is
// notified from its own goroutine; Publish itself never blocks on them.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	observersCopy := make([]Observer, len(b.observers))
	copy(observersCopy, b.observers)
	b.mu.RUnlock()

	for _, o := range observersCopy {
		go b.notify(o, event)
	}
}

func (b *Bus) notify(o Observer, event Event) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("progress observer panic recovered",
				"observer", o.Name(),
				"event_type", string(event.Type),
				"panic", r,
			)
		}
	}()
	o.OnEvent(event)
}
