package audit

import (
	"context"
	"maps"
	"sync"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of waiting.
	DropIfFull bool
	// Critical lists event types that are never discarded for lack of space.
	// With DropIfFull they wait like every event does without it.
	Critical []string
}

// Dispatcher relays events to a sink from one goroutine. Losses are counted per
// event type. A nil Dispatcher accepts and discards events.
type Dispatcher struct {
	sink     Sink
	queue    chan Event
	wait     bool
	critical map[string]bool
	idle     chan struct{}

	// mu guards closed and the queue close. Emit holds it shared.
	mu     sync.RWMutex
	closed bool

	lossMu sync.Mutex
	lost   map[string]uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:     sink,
		queue:    make(chan Event, max(cfg.BufferSize, 1)),
		wait:     !cfg.DropIfFull,
		critical: make(map[string]bool, len(cfg.Critical)),
		idle:     make(chan struct{}),
		lost:     make(map[string]uint64),
	}
	for _, t := range cfg.Critical {
		d.critical[t] = true
	}

	go d.deliver()
	return d
}

// deliver runs until Close closes the queue, so everything accepted is flushed.
func (d *Dispatcher) deliver() {
	defer close(d.idle)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. Events that may wait block until there is space or ctx
// ends; an event abandoned by ctx counts as lost. Other events are lost at once
// when the buffer is full.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if !d.wait && !d.critical[event.EventType] {
		select {
		case d.queue <- event:
		default:
			d.lose(event.EventType)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.lose(event.EventType)
	}
}

func (d *Dispatcher) lose(eventType string) {
	d.lossMu.Lock()
	d.lost[eventType]++
	d.lossMu.Unlock()
}

// Close stops accepting events and returns once queued events reached the sink.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.idle
}

// Dropped returns the number of lost events keyed by event type.
func (d *Dispatcher) Dropped() map[string]uint64 {
	if d == nil {
		return map[string]uint64{}
	}
	d.lossMu.Lock()
	defer d.lossMu.Unlock()
	return maps.Clone(d.lost)
}
