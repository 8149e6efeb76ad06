package stream

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler defers a frame. The returned stop func cancels the call and
// reports whether it was still pending.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// ClockScheduler runs deferred frames on timer goroutines of a clock.
type ClockScheduler struct {
	clock clockwork.Clock
}

// NewClockScheduler creates a scheduler on c. A nil clock means real time.
func NewClockScheduler(c clockwork.Clock) *ClockScheduler {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &ClockScheduler{clock: c}
}

func (s *ClockScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return s.clock.AfterFunc(d, f).Stop
}

// FrameQueue holds deferred frames until its owner calls RunDue. It suits
// render loops that must issue every draw call from one goroutine.
type FrameQueue struct {
	clock clockwork.Clock

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]queuedFrame
}

type queuedFrame struct {
	id  uint64
	due time.Time
	f   func()
}

// NewFrameQueue creates a queue measuring due times on c. A nil clock means real time.
func NewFrameQueue(c clockwork.Clock) *FrameQueue {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &FrameQueue{clock: c, pending: make(map[uint64]queuedFrame)}
}

func (q *FrameQueue) AfterFunc(d time.Duration, f func()) func() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextID
	q.nextID++
	q.pending[id] = queuedFrame{id: id, due: q.clock.Now().Add(d), f: f}

	return func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		_, ok := q.pending[id]
		delete(q.pending, id)
		return ok
	}
}

// RunDue runs every frame whose due time has passed, oldest first, on the
// calling goroutine. Frames scheduled while running wait for the next call.
func (q *FrameQueue) RunDue() int {
	now := q.clock.Now()

	q.mu.Lock()
	var due []queuedFrame
	for id, qf := range q.pending {
		if !qf.due.After(now) {
			due = append(due, qf)
			delete(q.pending, id)
		}
	}
	q.mu.Unlock()

	slices.SortFunc(due, func(a, b queuedFrame) int {
		if c := a.due.Compare(b.due); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	for _, qf := range due {
		qf.f()
	}
	return len(due)
}

// Len returns the number of pending frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
