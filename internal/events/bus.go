// Package events fans workflow events out to collaborators without making
// the engine wait on them.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"docflow/internal/logging"
	"docflow/internal/workflow"
)

// Handler reacts to one workflow event.
type Handler func(ctx context.Context, event workflow.Event) error

// Bus delivers published events to subscribers asynchronously. Each
// subscriber has its own ordered queue drained by a dedicated goroutine, so a
// slow subscriber delays only itself.
type Bus struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	subs    []*subscriber
	pending inflight
	closed  bool
}

// inflight counts queued deliveries. Unlike sync.WaitGroup it allows add
// and wait to run concurrently.
type inflight struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func (f *inflight) add(n int) {
	f.mu.Lock()
	f.n += n
	f.mu.Unlock()
}

func (f *inflight) done() {
	f.mu.Lock()
	f.n--
	if f.n == 0 {
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

func (f *inflight) wait() {
	f.mu.Lock()
	for f.n > 0 {
		f.cond.Wait()
	}
	f.mu.Unlock()
}

type delivery struct {
	ctx   context.Context
	event workflow.Event
}

type subscriber struct {
	name    string
	kinds   []workflow.EventKind
	handler Handler

	mu     sync.Mutex
	queue  []delivery
	signal chan struct{}
	done   chan struct{}
}

// NewBus constructs an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	b := &Bus{logger: logging.NewComponentLogger(logger, "events")}
	b.pending.cond = sync.NewCond(&b.pending.mu)
	return b
}

// Subscribe registers handler for the given kinds; no kinds means every
// event. Events published before Subscribe are not replayed.
func (b *Bus) Subscribe(name string, handler Handler, kinds ...workflow.EventKind) {
	sub := &subscriber{
		name:    name,
		kinds:   slices.Clone(kinds),
		handler: handler,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	go b.run(sub)
}

// Publish queues events for every interested subscriber and returns
// immediately. Request-scoped values on ctx are kept; its cancellation is not.
func (b *Bus) Publish(ctx context.Context, events ...workflow.Event) {
	if len(events) == 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		var batch []delivery
		for _, event := range events {
			if sub.wants(event.Kind) {
				batch = append(batch, delivery{ctx: ctx, event: event})
			}
		}
		if len(batch) == 0 {
			continue
		}
		b.pending.add(len(batch))
		sub.mu.Lock()
		sub.queue = append(sub.queue, batch...)
		sub.mu.Unlock()
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until no deliveries are queued or running. Events published
// concurrently with Wait may or may not be waited for.
func (b *Bus) Wait() {
	b.pending.wait()
}

// Close drains outstanding deliveries and stops subscriber goroutines.
// Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.mu.Unlock()

	b.pending.wait()
	for _, sub := range subs {
		close(sub.signal)
		<-sub.done
	}
}

func (s *subscriber) wants(kind workflow.EventKind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, kind)
}

func (b *Bus) run(sub *subscriber) {
	defer close(sub.done)
	for range sub.signal {
		for {
			sub.mu.Lock()
			if len(sub.queue) == 0 {
				sub.mu.Unlock()
				break
			}
			next := sub.queue[0]
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()

			b.deliver(sub, next)
			b.pending.done()
		}
	}
}

func (b *Bus) deliver(sub *subscriber, d delivery) {
	logger := logging.WithContext(d.ctx, b.logger).With(
		logging.String("subscriber", sub.name),
		logging.String(logging.FieldEpisodeID, d.event.EpisodeID),
		logging.String(logging.FieldPhase, string(d.event.Phase)),
		logging.String("event", string(d.event.Kind)),
	)
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(logger, "event handler panicked", "event_handler_panic",
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "inspect the subscriber for a nil dereference"),
			)
		}
	}()
	if err := sub.handler(d.ctx, d.event); err != nil {
		logging.WarnWithContext(logger, "event handler failed", "event_handler_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the workflow change is persisted; only this side effect was lost"),
		)
		return
	}
	logger.Debug("event delivered")
}
