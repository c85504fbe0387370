package midi

import "sync/atomic"

// Queue is a bounded single-producer single-consumer ring of events.
// Push must be called from one goroutine and Pop from another. Neither
// blocks nor allocates.
type Queue struct {
	tail atomic.Uint64
	_    [56]byte
	head atomic.Uint64
	_    [56]byte

	mask   uint64
	events []Event
}

// NewQueue returns a queue that holds at least capacity events.
func NewQueue(capacity int) *Queue {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Queue{
		mask:   uint64(size - 1),
		events: make([]Event, size),
	}
}

// Push adds event to the queue. It returns false if the queue is full.
func (q *Queue) Push(e Event) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == uint64(len(q.events)) {
		return false
	}
	q.events[tail&q.mask] = e
	q.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest event from the queue. It returns false if the
// queue is empty.
func (q *Queue) Pop() (Event, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Event{}, false
	}
	e := q.events[head&q.mask]
	q.head.Store(head + 1)
	return e, true
}

// Len returns number of queued events.
func (q *Queue) Len() int {
	head := q.head.Load()
	return int(q.tail.Load() - head)
}

// Cap returns the capacity of the queue.
func (q *Queue) Cap() int {
	return len(q.events)
}
