package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/village-kernel/village-go/internal/util/callback"
)

func TestSchedWakesDrain(t *testing.T) {
	wq := NewWorkQueue(nil)
	var ran []int
	a := wq.Create(callback.New(func(any, any) { ran = append(ran, 1) }, nil, nil))
	b := wq.Create(callback.New(func(any, any) { ran = append(ran, 2) }, nil, nil))

	wq.Sched(a)
	wq.Drain()
	require.Equal(t, []int{1}, ran)

	wq.Sched(b)
	wq.Drain()
	require.Equal(t, []int{1, 2}, ran)
}

func TestDeleteDropsJobBeforeSched(t *testing.T) {
	wq := NewWorkQueue(nil)
	var ran bool
	id := wq.Create(callback.New(func(any, any) { ran = true }, nil, nil))
	wq.Delete(id)
	wq.Sched(id)

	select {
	case <-wq.pending:
	default:
		t.Fatal("expected Sched to still signal pending even for a deleted id")
	}
	require.False(t, ran)
}

func TestSchedCoalescesBurstsIntoOnePendingSignal(t *testing.T) {
	wq := NewWorkQueue(nil)
	a := wq.Create(callback.New(func(any, any) {}, nil, nil))
	wq.Sched(a)
	wq.Sched(a) // second Sched before any Drain must not block
	wq.Drain()
}

func TestRunDrainsUntilStopped(t *testing.T) {
	wq := NewWorkQueue(nil)
	ran := make(chan int, 1)
	a := wq.Create(callback.New(func(any, any) { ran <- 1 }, nil, nil))

	stop := make(chan struct{})
	go wq.Run(stop)

	wq.Sched(a)
	select {
	case got := <-ran:
		require.Equal(t, 1, got)
	case <-time.After(time.Second):
		t.Fatal("expected Run to drain the scheduled job")
	}

	close(stop)
}
