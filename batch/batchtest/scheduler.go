package batchtest

import (
	"sort"
	"sync"
	"time"

	"github.com/tarmac-project/remotelog/batch"
)

// task is one scheduled function.
type task struct {
	seq     int
	due     time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// handle implements the dispatcher's Timer interface for a task.
type handle struct {
	s *ManualScheduler
	t *task
}

func (h handle) Stop() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.t.fired || h.t.stopped {
		return false
	}
	h.t.stopped = true
	return true
}

// ManualScheduler runs scheduled tasks only when told to. It is safe for concurrent use.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	tasks  []*task
	delays []time.Duration
}

// Ensure ManualScheduler satisfies the dispatcher's Scheduler interface at compile time.
var _ batch.Scheduler = (*ManualScheduler)(nil)

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule records fn to run delay after the current fake time.
func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) batch.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &task{seq: s.seq, due: s.now + delay, fn: fn}
	s.tasks = append(s.tasks, t)
	s.delays = append(s.delays, delay)
	return handle{s: s, t: t}
}

// Pending returns the number of tasks waiting to run.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Delays returns the delay of every task ever scheduled, in order.
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

// Fire runs the earliest pending task regardless of its due time and advances
// the clock to it. It reports whether a task ran.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	t := s.popLocked(-1)
	s.mu.Unlock()

	if t == nil {
		return false
	}
	t.fn()
	return true
}

// FireAll runs pending tasks, including ones scheduled by the tasks it runs,
// until none remain or limit tasks ran. It returns the number of tasks run.
func (s *ManualScheduler) FireAll(limit int) int {
	n := 0
	for n < limit && s.Fire() {
		n++
	}
	return n
}

// Advance moves the fake clock forward by d, running every task that becomes
// due in due-time order.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	n := 0
	for {
		s.mu.Lock()
		t := s.popLocked(target)
		if t == nil {
			s.now = target
			s.mu.Unlock()
			return n
		}
		s.mu.Unlock()

		t.fn()
		n++
	}
}

// popLocked removes and returns the earliest runnable task due at or before
// limit, or any task when limit is negative.
func (s *ManualScheduler) popLocked(limit time.Duration) *task {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.tasks = live

	if len(s.tasks) == 0 {
		return nil
	}

	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].due != s.tasks[j].due {
			return s.tasks[i].due < s.tasks[j].due
		}
		return s.tasks[i].seq < s.tasks[j].seq
	})

	t := s.tasks[0]
	if limit >= 0 && t.due > limit {
		return nil
	}

	s.tasks = s.tasks[1:]
	t.fired = true
	if t.due > s.now {
		s.now = t.due
	}
	return t
}
