// Package timer implements the deferred-callback timer and the
// interrupt-to-thread handoff workqueue described in spec.md 4.D.
package timer

import (
	"sync"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/util/callback"
)

// JobState is a timer job's lifecycle state.
type JobState int

const (
	Ready JobState = iota
	Terminated
)

// Job is one scheduled callback. WakeTick is compared against the
// current system-tick counter by Execute; Terminated jobs are inert
// until Modify revives them.
type Job struct {
	ID       uint32
	State    JobState
	WakeTick uint64
	Callback callback.Callback
}

// Timer is a list of jobs driven by the systick ISR.
type Timer struct {
	mu      sync.Mutex
	jobs    []*Job
	idCount uint32
	dbg     *debug.Debug
}

// New returns a Timer logging setup/exit through dbg (nil is
// permitted, matching the package-level nil tolerance elsewhere).
func New(dbg *debug.Debug) *Timer {
	return &Timer{dbg: dbg}
}

// Setup logs readiness. The caller (internal/kernel) is responsible
// for wiring Execute to the systick IRQ via the interrupt controller.
func (t *Timer) Setup() {
	if t.dbg != nil {
		t.dbg.Info("Timer setup done!")
	}
}

// Exit clears every job.
func (t *Timer) Exit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs = nil
}

// Create allocates a job bound to cb, in Terminated state until the
// first Modify gives it a wake-tick.
func (t *Timer) Create(cb callback.Callback) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.idCount
	t.idCount++
	job := &Job{ID: id, State: Terminated, Callback: cb}
	t.jobs = append(t.jobs, job)
	return job
}

// Modify arms job to fire once the tick counter reaches currentTick+ticks.
func (t *Timer) Modify(job *Job, ticks uint64, currentTick uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.ID == job.ID {
			j.WakeTick = currentTick + ticks
			j.State = Ready
			return
		}
	}
}

// Delete removes job from the table.
func (t *Timer) Delete(job *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, j := range t.jobs {
		if j.ID == job.ID {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			return
		}
	}
}

// Execute is the systick ISR body: every Ready job whose WakeTick has
// elapsed fires once and transitions to Terminated.
func (t *Timer) Execute(currentTick uint64) {
	t.mu.Lock()
	due := make([]*Job, 0)
	for _, j := range t.jobs {
		if j.State == Ready && currentTick >= j.WakeTick {
			j.State = Terminated
			due = append(due, j)
		}
	}
	t.mu.Unlock()

	for _, j := range due {
		j.Callback.Invoke()
	}
}
