package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// ContactBook resolves the contact address of a label.
type ContactBook interface {
	Lookup(label string) (string, bool)
}

// Dispatcher fans events out to sinks from a single goroutine.
type Dispatcher struct {
	sinks    []Sink
	contacts ContactBook
	queue    chan Event
	done     chan struct{}

	mu     sync.RWMutex
	closed bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
	failures  atomic.Uint64
}

// DispatcherStats counts dispatcher outcomes.
type DispatcherStats struct {
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Failures  uint64 `json:"failures"`
	Sinks     int    `json:"sinks"`
}

// NewDispatcher starts a dispatcher with a queue of the given size. contacts
// may be nil.
func NewDispatcher(size int, contacts ContactBook, sinks ...Sink) *Dispatcher {
	if size < 1 {
		size = 1
	}
	d := &Dispatcher{
		sinks:    sinks,
		contacts: contacts,
		queue:    make(chan Event, size),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify queues an event. It never blocks: when the queue is full or the
// dispatcher is closed the event is dropped.
func (d *Dispatcher) Notify(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		log.WithFields(log.Fields{"kind": ev.Kind, "label": ev.Label}).Warn("Alert queue full, dropping event")
	}
}

// Close stops accepting events and waits until the queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

// Stats returns delivery counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Failures:  d.failures.Load(),
		Sinks:     len(d.sinks),
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for ev := range d.queue {
		if d.contacts != nil && ev.Contact == "" {
			if addr, ok := d.contacts.Lookup(ev.Label); ok {
				ev.Contact = addr
			}
		}

		for _, sink := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err := sink.Publish(ctx, ev)
			cancel()
			if err != nil {
				d.failures.Add(1)
				log.WithFields(log.Fields{
					"sink":  sink.Name(),
					"kind":  ev.Kind,
					"label": ev.Label,
					"error": err,
				}).Warn("Alert delivery failed")
				continue
			}
			d.delivered.Add(1)
		}
	}
}
