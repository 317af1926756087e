package timer

import (
	"sync"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/util/callback"
)

// work is one deferred callback registered with the WorkQueue.
type work struct {
	id  uint32
	cb  callback.Callback
	run bool
}

// WorkQueue separates bounded ISR work from unbounded driver work:
// an ISR that needs to do real work calls Sched(id) to mark a
// pre-created job runnable, and a dedicated worker task drains the
// queue with interrupts enabled via Drain.
type WorkQueue struct {
	mu      sync.Mutex
	items   []*work
	idCount uint32
	pending chan struct{}
	dbg     *debug.Debug
}

// NewWorkQueue returns an empty WorkQueue. pending is buffered 1 so Sched from
// an ISR never blocks; Drain coalesces bursts into a single wakeup.
func NewWorkQueue(dbg *debug.Debug) *WorkQueue {
	return &WorkQueue{pending: make(chan struct{}, 1), dbg: dbg}
}

// Setup logs readiness.
func (w *WorkQueue) Setup() {
	if w.dbg != nil {
		w.dbg.Info("Work queue setup done!")
	}
}

// Exit drops every registered job.
func (w *WorkQueue) Exit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = nil
}

// Create registers cb and returns its job id for later Sched/Delete.
func (w *WorkQueue) Create(cb callback.Callback) uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.idCount
	w.idCount++
	w.items = append(w.items, &work{id: id, cb: cb})
	return id
}

// Delete removes a registered job.
func (w *WorkQueue) Delete(id uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, it := range w.items {
		if it.id == id {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return
		}
	}
}

// Sched marks id runnable and wakes the drain loop. Safe to call from
// an ISR: it never blocks and never invokes the callback itself.
func (w *WorkQueue) Sched(id uint32) {
	w.mu.Lock()
	for _, it := range w.items {
		if it.id == id {
			it.run = true
			break
		}
	}
	w.mu.Unlock()

	select {
	case w.pending <- struct{}{}:
	default:
	}
}

// Drain blocks until at least one job is runnable, then invokes every
// runnable job in registration order and clears their run flags. The
// worker task calls this in a loop; invocation happens with
// interrupts enabled since Drain itself holds no ISR-side lock while
// calling out.
func (w *WorkQueue) Drain() {
	<-w.pending
	w.drainPending()
}

// drainPending invokes every currently-runnable job and clears their
// run flags, without waiting on pending — the part Drain and Run
// share.
func (w *WorkQueue) drainPending() {
	w.mu.Lock()
	due := make([]callback.Callback, 0)
	for _, it := range w.items {
		if it.run {
			it.run = false
			due = append(due, it.cb)
		}
	}
	w.mu.Unlock()

	for _, cb := range due {
		cb.Invoke()
	}
}

// Run is the dedicated worker task's entry point (spec.md 4.D's
// "queue of deferred callbacks executed by a dedicated task at task
// priority"): it drains until stop is closed. internal/kernel runs
// this in its own goroutine, since it blocks between bursts of
// scheduled work the same way Drain does.
func (w *WorkQueue) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-w.pending:
			w.drainPending()
		}
	}
}
