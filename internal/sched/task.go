// Package sched implements the scheduler and thread table: task
// lifecycle, round-robin selection, and the PendSV-style context
// switch. A real PendSV handler saves/restores CPU registers across
// an arbitrary instruction boundary; pure Go cannot do that without a
// patched runtime (the reason the teacher, biscuit, ships one). This
// package instead switches tasks at well-defined cooperative
// checkpoints (Yield, Sleep, Block, task exit, and the systick-driven
// Tick) — see DESIGN.md for the open-question writeup.
package sched

import "fmt"

// State is a task's position in its lifecycle.
type State int

const (
	Ready State = iota
	Running
	Suspended
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Blocked:
		return "blocked"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ID identifies a task. 0 is reserved for the idle task.
type ID uint64

// EntryFunc is a task's entry point. It runs on the scheduler's
// single logical CPU; it must call Yield/Sleep/Block at cooperative
// points so other Ready tasks get a turn.
type EntryFunc func(t *Task)

// Task is one entry in the thread table.
type Task struct {
	ID         ID
	Name       string
	StackStart uint32 // high address: top of the task's stack region
	StackEnd   uint32 // low address: base of the task's stack region
	PSP        uint32 // saved stack pointer between preemptions

	state      State
	entry      EntryFunc
	waitTarget ID
	wakeTick   uint64
	waiters    []ID

	run     chan struct{}
	pauseCh chan struct{}
	done    chan struct{}
}

// pause returns the channel the task signals on to hand control back
// to the dispatcher.
func (t *Task) pause() chan struct{} { return t.pauseCh }

// State reports the task's current lifecycle state. Safe to call
// without the scheduler's lock only because callers go through
// Scheduler methods that hold it; exported for the `ps`/`ts` console
// command's read-only snapshot.
func (t *Task) State() State { return t.state }
