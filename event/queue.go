package event

import "sync"

// Queue is an unbounded FIFO. Get never blocks.
type Queue struct {
	mu    sync.Mutex
	items []Event
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Put(e Event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
}

// Get pops the oldest event. ok is false when the queue is empty.
func (q *Queue) Get() (e Event, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	e = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return e, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Empty() bool { return q.Len() == 0 }
