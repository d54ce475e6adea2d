package events

import (
	"context"
	"log/slog"
	"sync"
)

// Buffered decouples event emission from delivery. Emit enqueues and returns
// immediately; a single worker drains the queue to the underlying sink.
// Close stops accepting events and blocks until the queue is drained.
type Buffered struct {
	sink   Publisher
	logger *slog.Logger

	inbox chan Event
	done  chan struct{}

	closeOnce sync.Once
}

// NewBuffered wraps sink with an asynchronous queue of the given size.
func NewBuffered(sink Publisher, size int, logger *slog.Logger) *Buffered {
	b := &Buffered{
		sink:   sink,
		logger: logger,
		inbox:  make(chan Event, size),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Buffered) run() {
	defer close(b.done)
	for event := range b.inbox {
		if err := b.sink.Emit(context.Background(), event); err != nil {
			b.logger.Error("event delivery failed",
				"event_id", event.ID,
				"event_type", event.Type,
				"error", err,
			)
		}
	}
}

// Emit enqueues the event. When the queue is full the event is delivered
// synchronously so nothing is dropped.
func (b *Buffered) Emit(ctx context.Context, event Event) error {
	select {
	case b.inbox <- event:
		return nil
	default:
		return b.sink.Emit(ctx, event)
	}
}

// Close drains pending events and closes the underlying sink.
func (b *Buffered) Close() error {
	b.closeOnce.Do(func() {
		close(b.inbox)
	})
	<-b.done
	return b.sink.Close()
}
