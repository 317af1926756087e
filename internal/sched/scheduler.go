package sched

import (
	"sync"
)

// Scheduler owns the thread table and drives the cooperative
// round-robin context switch described in spec.md 4.C. Exactly one
// task's entry code is ever executing at a time; Step (and the Start
// loop built on it) hands control to the next Ready task and blocks
// until that task reaches a cooperative checkpoint (Yield, Sleep,
// Block, or return).
type Scheduler struct {
	mu       sync.Mutex
	tasks    []*Task
	byID     map[ID]*Task
	nextID   ID
	cursor   int
	current  *Task
	idle     *Task
	ready    bool
	tick     uint64
	msPerTick uint64
	idleHook func()
}

// New returns a Scheduler with its idle task created (ID 0, already
// Ready; Step falls back to it whenever no other task is Ready).
func New(msPerTick uint64) *Scheduler {
	if msPerTick == 0 {
		msPerTick = 10
	}
	s := &Scheduler{byID: make(map[ID]*Task), msPerTick: msPerTick, nextID: 1}
	s.idle = s.newTask(0, "idle", func(t *Task) {
		for {
			if s.idleHook != nil {
				s.idleHook()
			}
			s.Yield(t)
		}
	})
	s.idle.state = Ready
	return s
}

// SetIdleHook installs fn to run once per idle-task iteration, ahead
// of its Yield — the kernel facade uses this to drive the extension
// registry's Program-class entries (spec.md 4.J) once per idle pass,
// the Go equivalent of the original's director-owned idle Process().
func (s *Scheduler) SetIdleHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleHook = fn
}

func (s *Scheduler) newTask(id ID, name string, entry EntryFunc) *Task {
	t := &Task{
		ID: id, Name: name, entry: entry,
		state:   Suspended,
		run:     make(chan struct{}),
		pauseCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.tasks = append(s.tasks, t)
	s.byID[id] = t
	go func() {
		<-t.run
		t.entry(t)
		s.finish(t)
		close(t.done)
		t.pause() <- struct{}{}
	}()
	return t
}

// CreateTask records the stack region [stackEnd, stackStart) for a
// new task, appends it to the thread table in Suspended state, and
// returns its ID. It allocates nothing: the caller supplies the
// already-allocated stack bounds (runner.ProgRunner takes them from
// mem.Allocator.StackAlloc) so this package has no dependency on the
// memory subsystem.
func (s *Scheduler) CreateTask(name string, stackEnd, stackStart uint32, entry EntryFunc) ID {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	t := s.newTask(id, name, entry)
	s.mu.Lock()
	t.StackStart = stackStart
	t.StackEnd = stackEnd
	t.PSP = stackStart
	s.mu.Unlock()
	return id
}

// StartTask transitions tid from Suspended to Ready.
func (s *Scheduler) StartTask(tid ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[tid]
	if !ok || t.state != Suspended {
		return false
	}
	t.state = Ready
	return true
}

// StopTask marks tid Terminated from any state. Its stack is not
// reclaimed here (DeleteTask does that) — storage reclaim is lazy,
// matching spec.md 4.C.
func (s *Scheduler) StopTask(tid ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[tid]
	if !ok || t.state == Terminated {
		return false
	}
	t.state = Terminated
	s.exitBlockedLocked(tid)
	return true
}

// DeleteTask removes tid from the thread table entirely. Returns the
// freed stack range so the caller can release it back to the
// allocator.
func (s *Scheduler) DeleteTask(tid ID) (stackEnd, stackStart uint32, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, present := s.byID[tid]
	if !present {
		return 0, 0, false
	}
	delete(s.byID, tid)
	for i, existing := range s.tasks {
		if existing.ID == tid {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	return t.StackEnd, t.StackStart, true
}

// IsTaskAlive reports whether tid exists and has not terminated.
func (s *Scheduler) IsTaskAlive(tid ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[tid]
	return ok && t.state != Terminated
}

// WaitForTask blocks caller (self) until tid terminates. Must be
// called from within caller's own task goroutine (i.e. from code
// running as caller's EntryFunc). Returns false if tid does not
// exist.
func (s *Scheduler) WaitForTask(self *Task, tid ID) bool {
	s.mu.Lock()
	target, ok := s.byID[tid]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if target.state == Terminated {
		s.mu.Unlock()
		return true
	}
	target.waiters = append(target.waiters, self.ID)
	self.waitTarget = tid
	s.mu.Unlock()

	s.parkSelf(self, Blocked)
	return true
}

// ExitBlocked unblocks every task waiting on tid (transitions them
// Blocked -> Ready). Called automatically when a task terminates; also
// exposed so callers can unblock waiters early (e.g. a forced kill).
func (s *Scheduler) ExitBlocked(tid ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitBlockedLocked(tid)
}

func (s *Scheduler) exitBlockedLocked(tid ID) {
	target, ok := s.byID[tid]
	if !ok {
		return
	}
	for _, wid := range target.waiters {
		if w, ok := s.byID[wid]; ok && w.state == Blocked {
			w.state = Ready
			w.waitTarget = 0
		}
	}
	target.waiters = nil
}

// Sleep blocks self until at least ms milliseconds of ticks have
// elapsed. Must be called from self's own task goroutine.
func (s *Scheduler) Sleep(self *Task, ms uint64) {
	s.mu.Lock()
	ticks := (ms + s.msPerTick - 1) / s.msPerTick
	if ticks == 0 {
		ticks = 1
	}
	self.wakeTick = s.tick + ticks
	s.mu.Unlock()

	s.parkSelf(self, Blocked)
}

// Block transitions self to Blocked indefinitely; a later
// ExitBlocked(self.ID) (or another task targeting it) is required to
// wake it.
func (s *Scheduler) Block(self *Task) {
	s.parkSelf(self, Blocked)
}

// Yield voluntarily gives up the remainder of self's turn, staying
// Ready so it is reconsidered on the next round.
func (s *Scheduler) Yield(self *Task) {
	s.parkSelf(self, Ready)
}

// Sched is the software-triggered "int $31"-equivalent: a no-op
// before the scheduler is marked ready, otherwise equivalent to
// Yield. Safe to call from a tick ISR callback.
func (s *Scheduler) Sched(self *Task) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		return
	}
	s.Yield(self)
}

// parkSelf is the task-side half of the context switch: set state,
// hand control back to the dispatcher, and block until resumed.
func (s *Scheduler) parkSelf(t *Task, next State) {
	s.mu.Lock()
	t.state = next
	s.mu.Unlock()

	t.pause() <- struct{}{}
	<-t.run
}

// Exit terminates self immediately without returning from its
// EntryFunc — the task-exit path a program's runner uses once the
// loaded entry point returns, instead of letting the Go function
// itself return (which would otherwise have to unwind through
// arbitrary loader/runner call frames). The calling goroutine never
// resumes past this call.
func (s *Scheduler) Exit(self *Task) {
	s.finish(self)
	self.pause() <- struct{}{}
	select {}
}

// finish marks t Terminated and wakes its waiters. Called when t's
// entry function returns, or from Exit.
func (s *Scheduler) finish(t *Task) {
	s.mu.Lock()
	t.state = Terminated
	s.exitBlockedLocked(t.ID)
	s.mu.Unlock()
}

// Tick advances the tick counter and wakes any task sleeping past it.
// Safe to call from the timer ISR.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick++
	for _, t := range s.tasks {
		if t.state == Blocked && t.waitTarget == 0 && t.wakeTick != 0 && t.wakeTick <= s.tick {
			t.state = Ready
			t.wakeTick = 0
		}
	}
}

// CurrentTick returns the tick counter Tick advances, the time base
// internal/timer.Timer.Execute compares job wake-ticks against.
func (s *Scheduler) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// selectNextLocked implements round-robin selection over Ready tasks,
// falling back to idle when none are ready. Caller holds s.mu.
func (s *Scheduler) selectNextLocked() *Task {
	n := len(s.tasks)
	for i := 0; i < n; i++ {
		idx := (s.cursor + 1 + i) % n
		if s.tasks[idx].state == Ready && s.tasks[idx].ID != 0 {
			s.cursor = idx
			return s.tasks[idx]
		}
	}
	return s.idle
}

// Step runs exactly one scheduling decision: pick the next Ready
// task (or idle), run it until its next checkpoint, and return. Start
// is Step looped forever; tests call Step directly for determinism.
func (s *Scheduler) Step() {
	s.mu.Lock()
	next := s.selectNextLocked()
	next.state = Running
	s.current = next
	s.mu.Unlock()

	next.run <- struct{}{}
	<-next.pause()
}

// Start marks the scheduler ready, enables preemption, and runs the
// dispatcher loop forever — matching spec.md's "never returns".
// Callers that need to stop (tests, graceful shutdown) should not
// call Start; use Step in a loop with their own exit condition
// instead.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	for {
		s.Step()
	}
}

// Current returns the task the most recent Step ran, or nil before
// the first Step.
func (s *Scheduler) Current() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Tasks returns a snapshot of the thread table in creation order,
// for the `ts`/`ps` console command.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}
