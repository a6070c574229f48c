package pqueue

import (
	"sort"
)

// WithOrderDesc pops the highest priority first.
func WithOrderDesc() Option {
	return func(q *Queue) {
		q.desc = true
	}
}

// WithCap keeps at most size items, dropping the lowest ranked ones.
func WithCap(size uint) Option {
	return func(q *Queue) {
		q.cap = int(size)
	}
}

type Option func(*Queue)

type item struct {
	value interface{}
	prior float64
}

func New(opts ...Option) *Queue {
	q := &Queue{cap: -1}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Queue keeps values ordered by priority. Values of equal priority stay in
// insertion order.
type Queue struct {
	desc  bool
	cap   int
	items []item
}

// Push inserts val after every item ranked at or above priority.
func (q *Queue) Push(val interface{}, priority float64) {
	idx := sort.Search(len(q.items), func(i int) bool {
		if q.desc {
			return q.items[i].prior < priority
		}
		return q.items[i].prior > priority
	})
	if q.cap >= 0 && idx >= q.cap {
		return
	}
	q.items = append(q.items, item{})
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = item{value: val, prior: priority}
	if q.cap >= 0 && len(q.items) > q.cap {
		q.items = q.items[:q.cap]
	}
}

// PopAll returns the values in rank order and empties the queue.
func (q *Queue) PopAll() []interface{} {
	pulled := make([]interface{}, len(q.items))
	for i := range q.items {
		pulled[i] = q.items[i].value
	}
	q.items = q.items[:0]
	return pulled
}

func (q *Queue) Len() int { return len(q.items) }
