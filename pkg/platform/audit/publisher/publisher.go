// Package publisher provides the audit publisher used by the verification services.
//
// Without a buffer, Emit writes synchronously to the store. With
// WithAsyncBuffer, Emit enqueues and a background worker persists; a full
// buffer drops the event and returns ErrBufferFull so the verification path
// never blocks on audit I/O. After Close, Emit returns ErrClosed.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "trustboard/pkg/platform/audit"
	"trustboard/pkg/platform/audit/worker"
)

var (
	// ErrBufferFull is returned when the async buffer cannot accept an event.
	ErrBufferFull = errors.New("audit buffer full")
	// ErrClosed is returned by Emit once the publisher has been closed.
	ErrClosed = errors.New("audit publisher closed")
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	buffer int
	inbox  chan audit.Event
	done   chan struct{}
	now    func() time.Time

	// mu guards closed and the inbox against a send racing Close.
	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.buffer = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer > 0 {
		p.inbox = make(chan audit.Event, p.buffer)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records an event, stamping Timestamp and Category when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.WarnContext(ctx, "audit buffer full, dropping event", "action", event.Action)
	}
	return ErrBufferFull
}

// Close drains pending events in async mode. Safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		if p.inbox != nil {
			close(p.inbox)
		}
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}
