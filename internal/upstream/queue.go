// Package upstream publishes best-effort state to the wider system: a
// retained snapshot of current conditions and batched event tranches over
// MQTT. Everything here is advisory; the control loop neither waits on nor
// fails with this channel.
package upstream

import (
	"sync"

	"github.com/spriggler/sprig-core/internal/event"
)

// Queue is a bounded FIFO of events awaiting upstream delivery. When full
// it drops the oldest entry to admit the newest: recent context beats a
// complete but unsendable backlog.
type Queue struct {
	mu       sync.Mutex
	items    []event.Event
	capacity int
	dropped  uint64
}

// NewQueue creates a Queue with the given capacity (minimum 1).
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{capacity: capacity}
}

// Push appends an event, evicting the oldest entry if the queue is full.
func (q *Queue) Push(e event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		over := len(q.items) - q.capacity + 1
		q.items = q.items[over:]
		q.dropped += uint64(over)
	}
	q.items = append(q.items, e)
}

// Record makes Queue usable as an event sink.
func (q *Queue) Record(e event.Event) { q.Push(e) }

// Drain removes and returns up to max events from the front.
func (q *Queue) Drain(max int) []event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if max <= 0 || max > len(q.items) {
		max = len(q.items)
	}
	if max == 0 {
		return nil
	}
	out := make([]event.Event, max)
	copy(out, q.items[:max])
	q.items = append(q.items[:0], q.items[max:]...)
	return out
}

// Requeue puts events back at the front after a failed delivery, subject
// to the same capacity bound.
func (q *Queue) Requeue(events []event.Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := append(append([]event.Event(nil), events...), q.items...)
	if len(merged) > q.capacity {
		over := len(merged) - q.capacity
		q.dropped += uint64(over)
		merged = merged[over:]
	}
	q.items = merged
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many events have been evicted so far.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
