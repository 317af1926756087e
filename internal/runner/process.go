package runner

import "github.com/village-kernel/village-go/internal/debug"

// Process is the kernel's Process capability (vk_process.rs): setup
// and teardown logging only — executor/library builder registration
// is owned directly by Director, reached through the kernel facade's
// own accessor rather than proxied through Process.
type Process struct {
	dbg *debug.Debug
}

// NewProcess returns a Process.
func NewProcess(dbg *debug.Debug) *Process {
	return &Process{dbg: dbg}
}

// Setup logs readiness.
func (p *Process) Setup() {
	if p.dbg != nil {
		p.dbg.Info("Process setup done!")
	}
}

// Exit has nothing to release.
func (p *Process) Exit() {}
