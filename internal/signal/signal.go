// Package signal implements the kernel's Signal capability
// (vk_signal.rs): coarse power actions (sleep/standby/shutdown/reboot)
// raised through Raising and forwarded to the kernel.
package signal

import "github.com/village-kernel/village-go/internal/debug"

// Kind enumerates the signals a caller can raise.
type Kind int

const (
	None Kind = iota
	Sleep
	Standby
	Shutdown
	Reboot
	Kill
)

// Kernel is the subset of the kernel facade Signal needs: IRQ
// bracketing around the action plus the action itself. Keeping this
// as a narrow interface (rather than importing internal/kernel
// directly) avoids an import cycle, since the facade holds a Signal.
type Kernel interface {
	EnableIRQ()
	DisableIRQ()
	Sleep()
	Standby()
	Shutdown()
	Reboot()
}

// Signal is the kernel's Signal capability.
type Signal struct {
	kernel Kernel
	dbg    *debug.Debug
}

// New returns a Signal that raises actions against kernel.
func New(kernel Kernel, dbg *debug.Debug) *Signal {
	return &Signal{kernel: kernel, dbg: dbg}
}

// Setup logs readiness.
func (s *Signal) Setup() {
	if s.dbg != nil {
		s.dbg.Info("Signal setup completed!")
	}
}

// Exit has nothing to release.
func (s *Signal) Exit() {}

// Raising dispatches signal to the matching kernel-facade action,
// with interrupts disabled for the duration (vk_signal.rs brackets
// every raise with disable_irq/enable_irq since standby/reboot are
// not safely interruptible). Kill and None have no kernel-facade
// counterpart yet and are no-ops, matching the original's `todo!()`
// arms left unimplemented.
func (s *Signal) Raising(signal Kind) {
	if s.kernel == nil {
		return
	}
	s.kernel.DisableIRQ()
	switch signal {
	case Sleep:
		s.kernel.Sleep()
	case Standby:
		s.kernel.Standby()
	case Shutdown:
		s.kernel.Shutdown()
	case Reboot:
		s.kernel.Reboot()
	}
	s.kernel.EnableIRQ()
}
