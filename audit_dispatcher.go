package lendconsole

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher hands audit events to the sink on one goroutine so that
// login, logout and fault handling never wait on sink I/O.
//
// Every event passed to Emit is either delivered to the sink or counted in
// Dropped, including events emitted after Close: the console keeps calling
// Logout and fault handlers while it shuts down.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	// gate guards queue against close. Senders hold it for reading while
	// they enqueue; shutdown takes it for writing before closing queue.
	gate     sync.RWMutex
	shutdown bool
	queue    chan AuditEvent

	stopped chan struct{}
	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, size),
		stopped:    make(chan struct{}),
	}
	go d.deliver()
	return d
}

// deliver runs until queue is closed and empty.
func (d *auditDispatcher) deliver() {
	defer close(d.stopped)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. With dropIfFull a full queue drops it at once;
// otherwise Emit waits for room until ctx is done. A nil dispatcher
// discards silently.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}

	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.shutdown {
		d.dropped.Add(1)
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close waits for in-flight Emit calls, then delivers everything queued
// and returns once the sink has seen the last event. It is idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.gate.Lock()
	if !d.shutdown {
		d.shutdown = true
		close(d.queue)
	}
	d.gate.Unlock()
	<-d.stopped
}

// Dropped reports events that never reached the sink.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
