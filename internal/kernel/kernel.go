// Package kernel implements the kernel facade (vk_village.rs): the
// singleton that aggregates every subsystem behind its own Go type
// and drives the ordered bring-up/teardown sequence spec.md 4.K
// describes. Loaded binaries run as runner.EntryFunc closures, which
// take only argv: no facade reference is passed to them, so a closure
// reaches the facade only through whatever the code that registered
// it captured.
package kernel

import (
	"time"

	"github.com/village-kernel/village-go/internal/console"
	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/device"
	"github.com/village-kernel/village-go/internal/event"
	"github.com/village-kernel/village-go/internal/extension"
	"github.com/village-kernel/village-go/internal/fs"
	"github.com/village-kernel/village-go/internal/interrupt"
	"github.com/village-kernel/village-go/internal/mem"
	"github.com/village-kernel/village-go/internal/protocol"
	"github.com/village-kernel/village-go/internal/runner"
	"github.com/village-kernel/village-go/internal/sched"
	"github.com/village-kernel/village-go/internal/signal"
	"github.com/village-kernel/village-go/internal/symbol"
	"github.com/village-kernel/village-go/internal/system"
	"github.com/village-kernel/village-go/internal/timer"
	"github.com/village-kernel/village-go/internal/util/callback"
)

// Loader is the kernel's Loader capability (vk_loader.rs): it owns
// the install-list managers and exposes them under the original's
// trait method names, so a component reaching kernel().Loader() sees
// the same install_lib/uninstall_lib/search_symbol/install_mod/
// uninstall_mod shape regardless of which manager actually does the
// work.
type Loader struct {
	libs    *runner.LibraryManager
	mods    *runner.ModuleManager
	symbols *symbol.Table
}

// Setup installs every boot-time library then module.
func (l *Loader) Setup() {
	l.libs.Setup()
	l.mods.Setup()
}

// Exit uninstalls every boot-time module then library.
func (l *Loader) Exit() {
	l.mods.Exit()
	l.libs.Exit()
}

func (l *Loader) InstallLib(name string) bool  { return l.libs.Install(name) }
func (l *Loader) UninstallLib(name string) bool { return l.libs.Uninstall(name) }

// SearchSymbol resolves name against every installed library first,
// falling back to the kernel's own exported symbol table.
func (l *Loader) SearchSymbol(name string) uint32 {
	if addr := l.libs.Search(name); addr != 0 {
		return addr
	}
	return l.symbols.Search(name)
}
func (l *Loader) InstallMod(name string) bool   { return l.mods.Install(name) }
func (l *Loader) UninstallMod(name string) bool { return l.mods.Uninstall(name) }

// Facade is the kernel's top-level object graph: the Go port of
// Village. The zero value is not ready to use — build one with New.
type Facade struct {
	System    *system.System
	Memory    *mem.Allocator
	Debug     *debug.Debug
	Interrupt *interrupt.Controller
	Scheduler *sched.Scheduler
	Event     *event.Event
	Symbol    *symbol.Table
	Device    *device.Registry
	Feature   *extension.Feature
	FileSys   *fs.Facade
	Loader    *Loader
	Process   *runner.Process
	Timer     *timer.Timer
	WorkQueue *timer.WorkQueue
	Signal    *signal.Signal
	Protocol  *protocol.Registry
	Director  *runner.Director
	Extender  *extension.Registry
	Entries   *runner.EntryTable
	Terminal  *console.Table

	// Threads is an alias for Scheduler under the original's separate
	// "Thread" capability name (vk_thread.rs wraps the same scheduler
	// Village's `thread` field addresses); kept distinct here only so
	// callers that think in terms of the Thread trait can spell it
	// that way too.
	Threads *sched.Scheduler

	// tickISR drives Scheduler.Tick and Timer.Execute off the systick
	// IRQ, standing in for the original's separate sched/timer ISR
	// registrations against the same PIT vector. Stored so Exit can
	// remove the exact callback value Setup registered.
	tickISR callback.Func
	// stop signals the heartbeat and work queue goroutines Start spawns
	// to return; closed by Exit.
	stop chan struct{}
}

// Config supplies the external collaborators New needs to wire the
// facade together: the byte sink Debug logs to, the port I/O backing
// the PIC remap and PIT, and the machine ID the ELF decoders validate
// against (decoder.MachineX86 or decoder.MachineARM, see
// internal/binutils/decoder).
type Config struct {
	Sink        debug.Sink
	Port        interrupt.Port
	Machine     uint16
	MemStart    uint32
	MemEnd      uint32
	MsPerTick   uint64
}

// New builds a Facade with every capability constructed and wired,
// but not yet brought up — call Setup then Start.
func New(cfg Config) *Facade {
	dbg := debug.New(cfg.Sink)
	memAlloc := mem.New(cfg.MemStart, cfg.MemEnd)
	irq := interrupt.New(cfg.Port, dbg)
	schedr := sched.New(cfg.MsPerTick)
	symtab := symbol.New(dbg)
	dev := device.New(dbg)
	files := fs.New(dbg)
	entries := runner.NewEntryTable()
	dir := runner.NewDirector(dbg)
	libs := runner.NewLibraryManager(dir, files, dbg)
	mods := runner.NewModuleManager(dir, files, dbg)
	ext := extension.New(dbg)
	tm := timer.New(dbg)
	wq := timer.NewWorkQueue(dbg)
	feat := extension.NewFeature(dbg)
	proc := runner.NewProcess(dbg)
	pcol := protocol.New(dbg)
	ev := event.New(dbg)
	sys := system.New(cfg.Port, irq, dbg, time.Duration(cfg.MsPerTick)*time.Millisecond)
	term := console.New(dbg)

	f := &Facade{
		System:    sys,
		Memory:    memAlloc,
		Debug:     dbg,
		Interrupt: irq,
		Scheduler: schedr,
		Threads:   schedr,
		Event:     ev,
		Symbol:    symtab,
		Device:    dev,
		Feature:   feat,
		FileSys:   files,
		Loader:    &Loader{libs: libs, mods: mods, symbols: symtab},
		Process:   proc,
		Timer:     tm,
		WorkQueue: wq,
		Signal:    nil,
		Protocol:  pcol,
		Director:  dir,
		Extender:  ext,
		Entries:   entries,
		Terminal:  term,
		stop:      make(chan struct{}),
	}
	f.Signal = signal.New(f, dbg)
	f.tickISR = func(instance any, _ any) {
		fa := instance.(*Facade)
		fa.Scheduler.Tick()
		fa.Timer.Execute(fa.Scheduler.CurrentTick())
	}

	execBuilder := &runner.ExecBuilder{Files: files, Mem: memAlloc, Threads: schedr, Entries: entries, Machine: cfg.Machine, Dbg: dbg}
	modBuilder := &runner.ModBuilder{Files: files, Mem: memAlloc, Entries: entries, Machine: cfg.Machine, Dbg: dbg}
	dylibBuilder := &runner.DylibBuilder{Files: files, Mem: memAlloc, Machine: cfg.Machine, Dbg: dbg}
	dir.RegisterProgBuilder(execBuilder)
	dir.RegisterProgBuilder(modBuilder)
	dir.RegisterLibBuilder(dylibBuilder)

	schedr.SetIdleHook(ext.Process)

	return f
}

// Setup brings up every capability in the original's fixed order:
// System, Memory, Interrupt, Device, Debug, Scheduler, Thread,
// WorkQueue, Event, Symbol, Timer, FileSys, Terminal, Feature,
// Loader, Process, Signal, Protocol, Extender, Director. Memory has no
// bring-up step (its
// address-space index is ready as soon as New returns); Debug opens
// its sink at construction instead of Setup (New(sink) is the Go
// substitute for the original's `uart.open()`); Scheduler/Thread have
// no bring-up step either — there is no PendSV to configure on a
// cooperative goroutine scheduler.
func (f *Facade) Setup() {
	f.System.Setup()
	f.Interrupt.AddISR(interrupt.IRQBase, callback.New(f.tickISR, f, nil))
	f.Interrupt.Setup()
	f.Device.Setup()
	f.WorkQueue.Setup()
	f.Event.Setup()
	f.Symbol.Setup()
	f.Timer.Setup()
	f.FileSys.Setup()
	f.Terminal.Setup()
	f.Feature.Setup()
	f.Loader.Setup()
	f.Process.Setup()
	f.Signal.Setup()
	f.Protocol.Setup()
	f.Extender.Setup()
	f.Director.Setup()
}

// Start spawns the systick heartbeat and work queue drain loop as
// background goroutines — the Go substitute for the PIT interrupt and
// dedicated work-queue task real hardware drives continuously — then
// runs the scheduler loop. Scheduler.Start loops forever, so Start
// never returns, matching the original's `loop {}` after
// scheduler.start() on real hardware.
func (f *Facade) Start() {
	go f.System.RunHeartbeat(f.stop)
	go f.WorkQueue.Run(f.stop)
	f.Scheduler.Start()
}

// Exit stops the heartbeat and work queue goroutines Start spawned
// (a no-op if Start was never called) then tears every capability
// down in the reverse of Setup's order.
func (f *Facade) Exit() {
	close(f.stop)
	f.Director.Exit()
	f.Extender.Exit()
	f.Protocol.Exit()
	f.Signal.Exit()
	f.Process.Exit()
	f.Loader.Exit()
	f.Feature.Exit()
	f.Terminal.Exit()
	f.FileSys.Exit()
	f.Timer.Exit()
	f.Symbol.Exit()
	f.Event.Exit()
	f.WorkQueue.Exit()
	f.Device.Exit()
	f.Interrupt.DelISR(interrupt.IRQBase, callback.New(f.tickISR, f, nil))
	f.Interrupt.Exit()
	f.System.Exit()
}

// Sleep, Standby, Shutdown, Reboot forward to System, matching the
// original's Kernel-trait methods that do the same one-line forward.
func (f *Facade) Sleep()    { f.System.Sleep() }
func (f *Facade) Standby()  { f.System.Standby() }
func (f *Facade) Shutdown() { f.System.Shutdown() }
func (f *Facade) Reboot()   { f.System.Reboot() }

// EnableIRQ, DisableIRQ forward to System, satisfying signal.Kernel.
func (f *Facade) EnableIRQ()  { f.System.EnableIRQ() }
func (f *Facade) DisableIRQ() { f.System.DisableIRQ() }
