package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher relays authentication events to a Sink off the caller's
// goroutine. Sign-in, guard, and tracker paths enqueue and move on; a
// slow or stalled sink can never hold up a credential exchange. When
// dropIfFull is set a full queue sheds events and counts them instead of
// applying backpressure.
type Dispatcher struct {
	sink       Sink
	queue      chan Event
	stop       chan struct{}
	dropIfFull bool

	worker   sync.WaitGroup
	dropped  atomic.Uint64
	stopping atomic.Bool
	stopOnce sync.Once
}

// NewDispatcher starts a dispatcher draining into sink. bufferSize is
// clamped to at least one slot; a nil sink discards events.
func NewDispatcher(bufferSize int, dropIfFull bool, sink Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		queue:      make(chan Event, bufferSize),
		stop:       make(chan struct{}),
		dropIfFull: dropIfFull,
	}

	d.worker.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.worker.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain flushes whatever is still queued at shutdown so the tail of an
// auth flow (signout, account_deleted) is not lost.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit enqueues one event. Events arriving without a timestamp are
// stamped here, at the point the auth path handed them off. Safe on a
// nil receiver and after Close; both discard silently.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stopping.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops the worker after flushing the queue. Idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopping.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

// Dropped reports how many events were shed due to a full queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
