package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PhaseChange is published whenever the evaluated phase differs from the last one published
type PhaseChange struct {
	From Phase
	To   Phase
	At   time.Time
}

type PhaseHandler func(PhaseChange)

// Dispatcher delivers phase changes to subscribers
type Dispatcher interface {
	Publish(ctx context.Context, change PhaseChange)
	Subscribe(handler PhaseHandler) (unsubscribe func())
}

// inMemoryDispatcher calls handlers synchronously in subscription order.
// A panicking handler is logged and does not stop the others.
type inMemoryDispatcher struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]PhaseHandler
	order    []int
	logger   zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) Dispatcher {
	return &inMemoryDispatcher{
		handlers: make(map[int]PhaseHandler),
		logger:   logger,
	}
}

func (d *inMemoryDispatcher) Publish(_ context.Context, change PhaseChange) {
	d.mu.RLock()
	handlers := make([]PhaseHandler, 0, len(d.order))
	for _, id := range d.order {
		handlers = append(handlers, d.handlers[id])
	}
	d.mu.RUnlock()

	for _, handler := range handlers {
		d.deliver(handler, change)
	}
}

func (d *inMemoryDispatcher) deliver(handler PhaseHandler, change PhaseChange) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("to", change.To.String()).Msg("phase change handler panicked")
		}
	}()
	handler(change)
}

func (d *inMemoryDispatcher) Subscribe(handler PhaseHandler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.handlers[id] = handler
	d.order = append(d.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { d.unsubscribe(id) })
	}
}

func (d *inMemoryDispatcher) unsubscribe(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.handlers, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}
