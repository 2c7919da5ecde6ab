package pubsub

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/quizroom/internal/platform/timeouts"
	"github.com/louisbranch/quizroom/internal/quiz/event"
)

// maxPublishAttempts bounds retries before an event is dropped with a log.
const maxPublishAttempts = 5

// Queue delivers events to a Publisher one at a time, in enqueue order.
// A publish failure after a committed state change is retried with capped
// backoff and never surfaced to the operation that caused the event.
type Queue struct {
	publisher Publisher

	mu      sync.Mutex
	cond    *sync.Cond
	pending []queued
	closed  bool

	closing chan struct{}
	done    chan struct{}
}

type queued struct {
	channel string
	name    event.Name
	payload any
}

// NewQueue creates a queue and starts its delivery goroutine.
func NewQueue(publisher Publisher) *Queue {
	q := &Queue{
		publisher: publisher,
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Enqueue appends one event for ordered delivery. Enqueue never blocks on
// publisher I/O, so callers may hold their own locks while enqueueing.
func (q *Queue) Enqueue(channel string, name event.Name, payload any) {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		log.Printf("pubsub: event dropped after queue close channel=%s event=%s", channel, name)
		return
	}
	q.pending = append(q.pending, queued{channel: channel, name: name, payload: payload})
	q.cond.Signal()
}

// Close stops accepting events, drains what is already queued, and waits
// for the delivery goroutine to exit.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.closing)
	q.cond.Signal()
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.deliver(next)
	}
}

func (q *Queue) deliver(item queued) {
	backoff := timeouts.PublishRetryBase
	for attempt := 1; ; attempt++ {
		err := q.publisher.Publish(context.Background(), item.channel, item.name, item.payload)
		if err == nil {
			return
		}
		if attempt >= maxPublishAttempts {
			log.Printf("pubsub: event dropped after %d attempts channel=%s event=%s err=%v",
				attempt, item.channel, item.name, err)
			return
		}
		log.Printf("pubsub: publish retry attempt=%d channel=%s event=%s err=%v",
			attempt, item.channel, item.name, err)
		// A draining queue gets every event one attempt, but shutdown
		// does not wait out the backoff of a dead publisher.
		select {
		case <-q.closing:
			log.Printf("pubsub: retry abandoned on close channel=%s event=%s err=%v",
				item.channel, item.name, err)
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > timeouts.PublishRetryCap {
			backoff = timeouts.PublishRetryCap
		}
	}
}
