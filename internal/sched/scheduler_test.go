package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateStartRoundRobin(t *testing.T) {
	s := New(10)

	var order []string
	a := s.CreateTask("a", 0, 256, func(task *Task) {
		order = append(order, "a1")
		s.Yield(task)
		order = append(order, "a2")
	})
	b := s.CreateTask("b", 256, 512, func(task *Task) {
		order = append(order, "b1")
		s.Yield(task)
		order = append(order, "b2")
	})

	require.True(t, s.StartTask(a))
	require.True(t, s.StartTask(b))

	// idle is skipped while a or b are Ready.
	for i := 0; i < 4; i++ {
		s.Step()
	}

	require.Equal(t, []string{"a1", "b1", "a2", "b2"}, order)
}

func TestStackRangeInvariant(t *testing.T) {
	s := New(10)
	id := s.CreateTask("t", 100, 200, func(task *Task) {
		s.Yield(task)
	})
	s.StartTask(id)
	s.Step()

	for _, task := range s.Tasks() {
		if task.ID == id {
			if task.State() != Running {
				require.True(t, task.PSP >= task.StackEnd || task.StackEnd == 0)
			}
		}
	}
}

func TestWaitForTaskWakesOnTermination(t *testing.T) {
	s := New(10)

	worker := s.CreateTask("worker", 0, 64, func(task *Task) {
		// terminates immediately on return
	})

	var waiterDone bool
	waiter := s.CreateTask("waiter", 64, 128, func(task *Task) {
		s.WaitForTask(task, worker)
		waiterDone = true
	})

	require.True(t, s.StartTask(worker))
	require.True(t, s.StartTask(waiter))

	// worker runs to completion and terminates.
	s.Step()
	require.False(t, s.IsTaskAlive(worker))

	// waiter blocks on worker, which has already terminated, so
	// WaitForTask returns true immediately without parking.
	s.Step()
	require.True(t, waiterDone)
}

func TestSleepWakesOnTick(t *testing.T) {
	s := New(10)

	var woke bool
	id := s.CreateTask("sleeper", 0, 64, func(task *Task) {
		s.Sleep(task, 20)
		woke = true
	})
	s.StartTask(id)

	s.Step() // enters sleep, parks
	require.False(t, woke)

	s.Tick()
	s.Tick()
	require.True(t, s.IsTaskAlive(id))

	s.Step() // now Ready again, runs to completion
	require.True(t, woke)
}

func TestSchedNoopBeforeReady(t *testing.T) {
	s := New(10)
	ranAfterSched := false
	id := s.CreateTask("t", 0, 64, func(task *Task) {
		s.Sched(task) // scheduler not marked ready: no-op, continues immediately
		ranAfterSched = true
	})
	s.StartTask(id)
	s.Step()
	require.True(t, ranAfterSched)
}

func TestIdleHookRunsOnIdleStep(t *testing.T) {
	s := New(10)
	calls := 0
	s.SetIdleHook(func() { calls++ })

	s.Step()
	s.Step()

	require.GreaterOrEqual(t, calls, 2)
}
