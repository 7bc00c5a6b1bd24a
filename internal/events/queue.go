package events

import (
	"context"

	"github.com/sasha-s/go-deadlock"
)

// Queue buffers events for a consumer that polls or waits for them. When full
// the oldest event is dropped.
type Queue struct {
	mu      deadlock.Mutex
	events  []Event
	limit   int
	dropped int
	notify  chan struct{}
}

// NewQueue returns a queue holding at most limit events.
func NewQueue(limit int) *Queue {
	if limit < 1 {
		limit = 1
	}
	return &Queue{limit: limit, notify: make(chan struct{}, 1)}
}

func (q *Queue) Emit(e Event) {
	q.mu.Lock()
	if len(q.events) == q.limit {
		q.events = q.events[1:]
		q.dropped++
	}
	q.events = append(q.events, e)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Poll pops the oldest event without blocking.
func (q *Queue) Poll() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e, true
}

// Wait blocks until an event is available or ctx is done.
func (q *Queue) Wait(ctx context.Context) (Event, error) {
	for {
		if e, ok := q.Poll(); ok {
			return e, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Len is the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped counts events discarded because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
