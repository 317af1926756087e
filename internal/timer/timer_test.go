package timer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/village-kernel/village-go/internal/util/callback"
)

func TestExecuteFiresDueJobAndTerminates(t *testing.T) {
	tm := New(nil)
	var fired int
	job := tm.Create(callback.New(func(any, any) { fired++ }, nil, nil))
	tm.Modify(job, 5, 0)

	tm.Execute(4)
	require.Equal(t, 0, fired)
	require.Equal(t, Ready, job.State)

	tm.Execute(5)
	require.Equal(t, 1, fired)
	require.Equal(t, Terminated, job.State)

	tm.Execute(6)
	require.Equal(t, 1, fired, "terminated jobs do not re-fire")
}

func TestModifyRevivesTerminatedJob(t *testing.T) {
	tm := New(nil)
	var fired int
	job := tm.Create(callback.New(func(any, any) { fired++ }, nil, nil))
	tm.Modify(job, 1, 0)
	tm.Execute(1)
	require.Equal(t, 1, fired)

	tm.Modify(job, 1, 1)
	require.Equal(t, Ready, job.State)
	tm.Execute(2)
	require.Equal(t, 2, fired)
}

func TestDeleteRemovesJob(t *testing.T) {
	tm := New(nil)
	var fired int
	job := tm.Create(callback.New(func(any, any) { fired++ }, nil, nil))
	tm.Modify(job, 0, 0)
	tm.Delete(job)
	tm.Execute(0)
	require.Equal(t, 0, fired)
}
