package queue

import (
	"context"
	"sync"

	"github.com/lysyi3m/newsgram/app/feed"
)

// Delivery is one queued unit of work: an article together with the name of
// the feed it came from.
type Delivery struct {
	Article feed.Article
	Source  string
}

// Queue is an unbounded FIFO buffer between the fetch cycle and the delivery
// worker. Enqueue never blocks; Dequeue blocks until an item arrives or the
// context is cancelled. Done acknowledges completion of the last dequeued
// item so Len reflects outstanding work.
type Queue struct {
	mu       sync.Mutex
	items    []Delivery
	inflight int
	signal   chan struct{}
}

func New() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
	}
}

func (q *Queue) Enqueue(d Delivery) {
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue) Dequeue(ctx context.Context) (Delivery, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			d := q.items[0]
			q.items = q.items[1:]
			q.inflight++
			remaining := len(q.items)
			q.mu.Unlock()

			if remaining > 0 {
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			return d, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Delivery{}, false
		case <-q.signal:
		}
	}
}

// Done acknowledges completion of a dequeued item, success or failure.
func (q *Queue) Done() {
	q.mu.Lock()
	if q.inflight > 0 {
		q.inflight--
	}
	q.mu.Unlock()
}

// Len counts queued plus in-flight items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) + q.inflight
}
