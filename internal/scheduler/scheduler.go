// Package scheduler runs self-paced loop entries. Every entry keeps its own
// interval and next fire time; the owner drives Tick from its main loop.
package scheduler

import (
	"container/heap"
	"time"
)

// Entry is one registered loop.
type Entry struct {
	ID       string
	fire     func()
	interval func() time.Duration

	last    time.Time
	next    time.Time
	counter int
	index   int // heap position
}

// Stat is the loops-per-second figure of one entry.
type Stat struct {
	ID    string
	Count int
}

// Scheduler holds the entries in registration order and in a min-heap keyed
// by next fire time.
type Scheduler struct {
	entries []*Entry
	queue   entryQueue
}

func New() *Scheduler { return &Scheduler{} }

// Add registers a loop and returns its handle. The first tick happens on the
// next call to Tick.
func (s *Scheduler) Add(id string, fire func(), interval func() time.Duration) int {
	e := &Entry{ID: id, fire: fire, interval: interval}
	s.entries = append(s.entries, e)
	heap.Push(&s.queue, e)
	return len(s.entries) - 1
}

// Len returns the number of entries.
func (s *Scheduler) Len() int { return len(s.entries) }

// Tick fires every due entry once. An entry is rescheduled one interval after
// its due time, so late passes do not accumulate drift; if that is already in
// the past the entry restarts from now instead of bursting.
func (s *Scheduler) Tick(now time.Time) int {
	fired := 0
	var due []*Entry
	for s.queue.Len() > 0 {
		e := s.queue[0]
		if !e.next.IsZero() && e.next.After(now) {
			break
		}
		heap.Pop(&s.queue)
		due = append(due, e)
	}
	for _, e := range due {
		e.fire()
		e.counter++
		fired++

		iv := e.interval()
		if iv < 0 {
			iv = 0
		}
		scheduled := e.next
		if scheduled.IsZero() {
			scheduled = now
		}
		e.last = now
		e.next = scheduled.Add(iv)
		if !e.next.After(now) && iv > 0 {
			e.next = now.Add(iv)
		}
		if iv == 0 {
			// every pass, but never twice in the same one
			e.next = now.Add(time.Nanosecond)
		}
		heap.Push(&s.queue, e)
	}
	return fired
}

// NextDue returns the earliest next fire time, zero when nothing is queued.
func (s *Scheduler) NextDue() time.Time {
	if s.queue.Len() == 0 {
		return time.Time{}
	}
	return s.queue[0].next
}

// IDs returns the entry ids in registration order.
func (s *Scheduler) IDs() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.ID
	}
	return out
}

// Flush1s returns the invocation counters in registration order and resets them.
func (s *Scheduler) Flush1s() []Stat {
	out := make([]Stat, len(s.entries))
	for i, e := range s.entries {
		out[i] = Stat{ID: e.ID, Count: e.counter}
		e.counter = 0
	}
	return out
}

// LastTick returns when the entry with handle h last fired.
func (s *Scheduler) LastTick(h int) time.Time {
	if h < 0 || h >= len(s.entries) {
		return time.Time{}
	}
	return s.entries[h].last
}

type entryQueue []*Entry

func (q entryQueue) Len() int { return len(q) }

func (q entryQueue) Less(i, j int) bool {
	// zero next means never fired: first in line
	if q[i].next.IsZero() != q[j].next.IsZero() {
		return q[i].next.IsZero()
	}
	return q[i].next.Before(q[j].next)
}

func (q entryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *entryQueue) Push(x any) {
	e := x.(*Entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *entryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
