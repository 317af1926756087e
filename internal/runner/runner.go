// Package runner implements the program/module/library runners of
// spec.md 4.I: a loader+decoder pair selected by file suffix, a
// builder registry acting as the suffix-keyed factory (vk_director.rs
// / vk_exec_builder.rs / vk_mod_builder.rs / vk_dylib_builder.rs), and
// the three container kinds (program, module, library) that own a
// loaded binary's lifecycle.
package runner

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/fs"
	"github.com/village-kernel/village-go/internal/mem"
	"github.com/village-kernel/village-go/internal/sched"
)

// Loader reads path's raw bytes into memory, expanding the on-disk
// format (flat passthrough, Intel HEX, or ELF PT_LOAD segments) into
// the image a Decoder can relocate. Grounds on the traits::ProgLoader
// / LibLoader split (both are a single Load method here since neither
// original trait's exit() carries state beyond "drop the buffer",
// which Go's GC already does).
type Loader interface {
	Load(path string) ([]byte, error)
}

// EntryFunc stands in for the machine code a relocated binary's entry
// address points at. A real CPU decodes the bytes at that address
// and jumps to them (ExecDecoder::start_exec / ModDecoder::func_exec
// transmute a u32 into a function pointer); this port has no
// instruction-level execution, so a Decoder instead resolves the
// computed absolute address through an EntryTable and calls whatever
// Go function is registered there. See DESIGN.md for why.
type EntryFunc func(argv []string)

// EntryTable maps a relocated entry address to the EntryFunc standing
// in for it. Whoever loads a program/module registers its entry here
// before invoking Run; internal/kernel creates the table and hands it
// to the builders but registers no entries itself. It is the seam
// tests use to supply the behavior a loaded binary exhibits.
type EntryTable struct {
	mu  sync.Mutex
	fns map[uint32]EntryFunc
}

// NewEntryTable returns an empty EntryTable.
func NewEntryTable() *EntryTable {
	return &EntryTable{fns: make(map[uint32]EntryFunc)}
}

// Register installs fn as the code behind addr.
func (e *EntryTable) Register(addr uint32, fn EntryFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fns[addr] = fn
}

// Unregister removes addr's entry.
func (e *EntryTable) Unregister(addr uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.fns, addr)
}

func (e *EntryTable) lookup(addr uint32) (EntryFunc, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn, ok := e.fns[addr]
	return fn, ok
}

// Decoder turns a Loader's bytes into a relocated image and drives
// its entry points (traits::ProgDecoder). path is carried through for
// log messages, matching every *Loader/*Decoder pair in the original
// that logs the failing file's name.
type Decoder interface {
	Init(path string, data []byte, load uint32) bool
	Exec(argv []string) bool
	Exit() bool
}

// Container is the common shape of ProgContainer/ProgRunner: run,
// wait, kill. Program and Module runners both implement it; Library
// does not, since a library's "entry" is symbol lookup, not task
// execution. Wait takes the calling task explicitly — in the
// original, wait_for_task(self.tid) blocks whatever hardware context
// called it; this port's cooperative scheduler needs that context
// named (internal/sched.Scheduler.WaitForTask's own self parameter).
type Container interface {
	Run(path string, argv []string) int32
	Wait(self *sched.Task)
	Kill()
}

// ProgBuilder is a suffix-keyed factory for program/module containers
// (traits::ProgBuilder).
type ProgBuilder interface {
	Name() string
	Suffixes() []string
	Create(suffix string) (Container, bool)
}

// LibBuilder is a suffix-keyed factory for library containers
// (traits::LibBuilder).
type LibBuilder interface {
	Name() string
	Suffixes() []string
	Create(suffix string) (Library, bool)
}

// ErrUnsupportedSuffix is returned when no registered builder claims
// path's suffix.
var ErrUnsupportedSuffix = errors.New("runner: unsupported file suffix")

// Director is the builder registry (vk_director.rs): it dispatches
// CreateProgContainer/CreateLibContainer by matching path's suffix
// against each registered builder in registration order, first match
// wins.
type Director struct {
	mu           sync.Mutex
	progBuilders []ProgBuilder
	libBuilders  []LibBuilder
	dbg          *debug.Debug
}

// NewDirector returns an empty Director.
func NewDirector(dbg *debug.Debug) *Director {
	return &Director{dbg: dbg}
}

// Setup logs readiness.
func (d *Director) Setup() {
	if d.dbg != nil {
		d.dbg.Info("Director setup completed!")
	}
}

// Exit clears every registered builder.
func (d *Director) Exit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progBuilders = nil
	d.libBuilders = nil
}

// RegisterProgBuilder appends b to the program/module registry.
func (d *Director) RegisterProgBuilder(b ProgBuilder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progBuilders = append(d.progBuilders, b)
}

// UnregisterProgBuilder removes the program builder named name.
func (d *Director) UnregisterProgBuilder(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, b := range d.progBuilders {
		if b.Name() == name {
			d.progBuilders = append(d.progBuilders[:i], d.progBuilders[i+1:]...)
			return
		}
	}
}

// RegisterLibBuilder appends b to the library registry.
func (d *Director) RegisterLibBuilder(b LibBuilder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.libBuilders = append(d.libBuilders, b)
}

// UnregisterLibBuilder removes the library builder named name.
func (d *Director) UnregisterLibBuilder(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, b := range d.libBuilders {
		if b.Name() == name {
			d.libBuilders = append(d.libBuilders[:i], d.libBuilders[i+1:]...)
			return
		}
	}
}

func suffixOf(path string) (string, bool) {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 {
		return "", false
	}
	return path[dot:], true
}

// CreateProgContainer resolves path's suffix against the program
// builder registry and builds a Container for it.
func (d *Director) CreateProgContainer(path string) (Container, error) {
	suffix, ok := suffixOf(path)
	if !ok {
		return nil, ErrUnsupportedSuffix
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.progBuilders {
		for _, s := range b.Suffixes() {
			if s == suffix {
				if c, ok := b.Create(suffix); ok {
					return c, nil
				}
			}
		}
	}
	return nil, ErrUnsupportedSuffix
}

// CreateLibContainer resolves path's suffix against the library
// builder registry and builds a Library for it.
func (d *Director) CreateLibContainer(path string) (Library, error) {
	suffix, ok := suffixOf(path)
	if !ok {
		return nil, ErrUnsupportedSuffix
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.libBuilders {
		for _, s := range b.Suffixes() {
			if s == suffix {
				if c, ok := b.Create(suffix); ok {
					return c, nil
				}
			}
		}
	}
	return nil, ErrUnsupportedSuffix
}

// Threads is the slice of the scheduler a runner needs: create, run,
// wait, and stop a task. A narrow interface instead of *sched.Scheduler
// so tests can fake it.
type Threads interface {
	CreateTask(name string, stackEnd, stackStart uint32, entry sched.EntryFunc) sched.ID
	StartTask(tid sched.ID) bool
	StopTask(tid sched.ID) bool
	WaitForTask(self *sched.Task, tid sched.ID) bool
}

// ProgRunner is the program container (spec.md 4.I "Program runner"):
// run() creates a sandboxed task whose entry calls decoder.exec(argv)
// then decoder.exit(); wait blocks on Thread::wait_for_task; kill
// stops the task and releases the decoder.
type ProgRunner struct {
	loader  Loader
	decoder Decoder
	mem     *mem.Allocator
	threads Threads
	dbg     *debug.Debug

	path string
	argv []string
	tid  sched.ID
}

// NewProgRunner returns a ProgRunner over loader/decoder.
func NewProgRunner(loader Loader, decoder Decoder, allocator *mem.Allocator, threads Threads, dbg *debug.Debug) *ProgRunner {
	return &ProgRunner{loader: loader, decoder: decoder, mem: allocator, threads: threads, dbg: dbg}
}

const defaultSandboxStack = 4096

// Run loads and decodes path, then starts a sandbox task running
// decoder.Exec(argv)/decoder.Exit(). Returns the new task's ID, or -1
// on load/decode failure.
func (r *ProgRunner) Run(path string, argv []string) int32 {
	r.path = path
	r.argv = argv

	data, err := r.loader.Load(path)
	if err != nil {
		if r.dbg != nil {
			r.dbg.Error(path + " program load failed")
		}
		return -1
	}

	load := r.mem.HeapAlloc(uint32(len(data)))
	if !r.decoder.Init(path, data, load) {
		if r.dbg != nil {
			r.dbg.Error(path + " program decode failed")
		}
		return -1
	}

	stackEnd := r.mem.StackAlloc(defaultSandboxStack)
	tid := r.threads.CreateTask(path, stackEnd, stackEnd+defaultSandboxStack, func(t *sched.Task) {
		r.decoder.Exec(r.argv)
		r.decoder.Exit()
	})
	r.tid = tid
	r.threads.StartTask(tid)
	return int32(tid)
}

// Wait blocks self until the sandbox task terminates.
func (r *ProgRunner) Wait(self *sched.Task) {
	r.threads.WaitForTask(self, r.tid)
}

// Kill stops the sandbox task and releases the decoder.
func (r *ProgRunner) Kill() {
	r.threads.StopTask(r.tid)
	r.decoder.Exit()
}

// ModRunner is the module container (spec.md 4.I "Module runner"):
// run() loads, relocates, and calls the module's init entry
// synchronously (no sandbox task); kill calls the exit entry.
type ModRunner struct {
	loader  Loader
	decoder Decoder
	mem     *mem.Allocator
	dbg     *debug.Debug
	path    string
}

// NewModRunner returns a ModRunner over loader/decoder.
func NewModRunner(loader Loader, decoder Decoder, allocator *mem.Allocator, dbg *debug.Debug) *ModRunner {
	return &ModRunner{loader: loader, decoder: decoder, mem: allocator, dbg: dbg}
}

// Run loads path and decodes it, which (per ModDecoder.Init) invokes
// the module's init entry synchronously. argv is ignored — modules
// take none, matching the original's `_argv: Vec<&str>`.
func (r *ModRunner) Run(path string, _ []string) int32 {
	r.path = path

	data, err := r.loader.Load(path)
	if err != nil {
		if r.dbg != nil {
			r.dbg.Error(path + " module load failed")
		}
		return -1
	}

	load := r.mem.HeapAlloc(uint32(len(data)))
	if !r.decoder.Init(path, data, load) {
		if r.dbg != nil {
			r.dbg.Error(path + " module decode failed")
		}
		return -1
	}
	return 0
}

// Wait is a no-op: modules run synchronously at install time, matching
// ModRunner::wait's empty body in the original.
func (r *ModRunner) Wait(*sched.Task) {}

// Kill calls the module's exit entry.
func (r *ModRunner) Kill() {
	r.decoder.Exit()
}

// Library is the library container (spec.md 4.I "Library container"):
// init loads and relocates, making symbols available via Get; no
// entry is ever invoked.
type Library interface {
	Init(path string) bool
	Get(symbol string) uint32
	Exit() bool
}

// SymbolSource is anything a LibContainer can pull an export address
// from once relocated. *relocate.SharedObject satisfies this via its
// FindExport method.
type SymbolSource interface {
	FindExport(name string) (uint32, bool)
}

// LibContainer wraps a Loader and a factory that turns loaded bytes
// into a SymbolSource (normally relocate.NewSharedObject plus
// PostLoad/Relocate, as DylibBuilder.Create wires it).
type LibContainer struct {
	loader Loader
	mem    *mem.Allocator
	build  func(data []byte, load uint32) (SymbolSource, bool)
	dbg    *debug.Debug

	path string
	syms SymbolSource
}

// NewLibContainer returns a LibContainer.
func NewLibContainer(loader Loader, allocator *mem.Allocator, build func([]byte, uint32) (SymbolSource, bool), dbg *debug.Debug) *LibContainer {
	return &LibContainer{loader: loader, mem: allocator, build: build, dbg: dbg}
}

// Init loads and relocates path, making its exports available.
func (l *LibContainer) Init(path string) bool {
	l.path = path

	data, err := l.loader.Load(path)
	if err != nil {
		if l.dbg != nil {
			l.dbg.Error(path + " library load failed")
		}
		return false
	}

	load := l.mem.HeapAlloc(uint32(len(data)))
	syms, ok := l.build(data, load)
	if !ok {
		if l.dbg != nil {
			l.dbg.Error(path + " library relocate failed")
		}
		return false
	}
	l.syms = syms
	return true
}

// Get resolves symbol against the library's exports, returning 0 if
// the library hasn't been Init'd or the symbol isn't exported.
func (l *LibContainer) Get(symbol string) uint32 {
	if l.syms == nil {
		return 0
	}
	addr, _ := l.syms.FindExport(symbol)
	return addr
}

// Exit releases the library. Shared objects keep no open handles in
// this port, so this only exists for interface symmetry with the
// original's LibContainer::exit.
func (l *LibContainer) Exit() bool {
	l.syms = nil
	return true
}
