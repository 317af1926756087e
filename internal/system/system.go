// Package system implements the kernel's System capability
// (vk_system.rs): the systick counter backing the scheduler's time
// base, millisecond busy-wait delay, and the coarse power actions
// (sleep/standby/shutdown/reboot) that signal.Signal.Raising reaches
// through the kernel facade.
package system

import (
	"time"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/interrupt"
	"github.com/village-kernel/village-go/internal/util/callback"
)

// PIT ports and command byte for channel 0, mode 3, 1ms tick
// (1193182 Hz / 1000 == the original's `freq = 1000` divider).
const (
	timerCmd  = 0x43
	timerCh0  = 0x40
	pitFreq   = 1193182
	sysTickHz = 1000
)

// sysTickIRQ is the PIT's remapped vector: IRQ0 on the master PIC
// lands at interrupt.IRQBase after remapPIC runs.
const sysTickIRQ = interrupt.IRQBase

// System is the kernel's System capability.
type System struct {
	port     interrupt.Port
	irq      *interrupt.Controller
	dbg      *debug.Debug
	systicks uint32
	period   time.Duration
}

// New returns a System driving the PIT through port and registering
// its systick ISR with irq. period is the real-world interval
// RunHeartbeat fires the systick IRQ at; zero falls back to 10ms,
// matching sched.New's own msPerTick default so a caller that leaves
// both at zero still gets a consistent tick rate end to end.
func New(port interrupt.Port, irq *interrupt.Controller, dbg *debug.Debug, period time.Duration) *System {
	if period == 0 {
		period = 10 * time.Millisecond
	}
	return &System{port: port, irq: irq, dbg: dbg, period: period}
}

// Setup installs the systick ISR and programs the PIT divider.
func (s *System) Setup() {
	if s.irq != nil {
		s.irq.SetISR(sysTickIRQ, callback.New(func(instance any, _ any) {
			instance.(*System).systicks++
		}, s, nil))
	}
	s.configureClock()
	if s.dbg != nil {
		s.dbg.Info("System setup completed!")
	}
}

// Exit removes the systick ISR.
func (s *System) Exit() {
	if s.irq != nil {
		s.irq.ClearISR(sysTickIRQ)
	}
}

// RunHeartbeat fires the systick IRQ every period until stop is
// closed, standing in for the real PIT interrupt vk_scheduler.rs and
// vk_timer.rs both register against on actual hardware. The kernel
// facade runs this in its own goroutine from Start, never from
// Setup, so unit tests that drive ticks by hand through irq.Handler
// stay deterministic.
func (s *System) RunHeartbeat(stop <-chan struct{}) {
	if s.irq == nil {
		return
	}
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.irq.Handler(interrupt.Registers{Irq: sysTickIRQ})
		}
	}
}

func (s *System) configureClock() {
	s.systicks = 0
	if s.port == nil {
		return
	}
	divider := uint16(pitFreq / sysTickHz)
	s.port.Out(timerCmd, 0x36)
	s.port.Out(timerCh0, uint8(divider))
	s.port.Out(timerCh0, uint8(divider>>8))
}

// SysTickCounter returns the raw tick count (vk_system.rs's
// `systick_counter`, distinct from GetSysClkCounts which the original
// exposes as the same field through a second trait method name).
func (s *System) SysTickCounter() uint32 { return s.systicks }

// GetSysClkCounts returns the tick count.
func (s *System) GetSysClkCounts() uint32 { return s.systicks }

// DelayMs busy-waits for millis systicks (1 tick == 1ms at 1000Hz).
func (s *System) DelayMs(millis uint32) {
	start := s.systicks
	for s.systicks-start < millis {
	}
}

// EnableIRQ and DisableIRQ are no-ops on the simulated board — there
// is no real CPU interrupt flag to toggle — kept to satisfy the
// System capability's shape for callers (internal/signal) that
// bracket a power action with them.
func (s *System) EnableIRQ()  {}
func (s *System) DisableIRQ() {}

// Sleep, Standby, Shutdown, Reboot are placeholders for the real
// board's power-management hooks (ACPI/SoC-specific), matching the
// original's empty bodies — the kernel facade's own Sleep/Standby/
// Shutdown/Reboot forward here, and internal/signal's Raising
// forwards to the facade.
func (s *System) Sleep()    {}
func (s *System) Standby()  {}
func (s *System) Shutdown() {}
func (s *System) Reboot()   {}
