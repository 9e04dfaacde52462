package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"docflow/internal/logging"
)

const (
	asyncBuffer  = 64
	asyncTimeout = 15 * time.Second
)

type message struct {
	event   Event
	payload Payload
}

// Async publishes on a background goroutine. Publish never blocks; events
// arriving while the buffer is full are dropped with a warning.
type Async struct {
	next   Service
	logger *slog.Logger

	msgs      chan message
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsync wraps next in a fire-and-forget publisher.
func NewAsync(next Service, logger *slog.Logger) *Async {
	if next == nil {
		next = noopService{}
	}
	a := &Async{
		next:   next,
		logger: logging.NewComponentLogger(logger, "notifications"),
		msgs:   make(chan message, asyncBuffer),
		done:   make(chan struct{}),
	}
	go a.loop()
	return a
}

// Publish queues the event and returns immediately. It always returns nil.
func (a *Async) Publish(_ context.Context, event Event, payload Payload) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.msgs <- message{event: event, payload: payload}:
	default:
		logging.WarnWithContext(a.logger, "notification dropped", "notification_dropped",
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "ntfy server is slow or unreachable"),
			logging.String(logging.FieldImpact, "operators miss this notification"),
		)
	}
	return nil
}

// Close stops accepting events and waits for queued ones to be sent.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.msgs)
		a.mu.Unlock()
		<-a.done
	})
}

func (a *Async) loop() {
	defer close(a.done)
	for msg := range a.msgs {
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		if err := a.next.Publish(ctx, msg.event, msg.payload); err != nil {
			logging.WarnWithContext(a.logger, "notification delivery failed", "notification_failed",
				logging.String("event", string(msg.event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "operators miss this notification"),
			)
		}
		cancel()
	}
}
