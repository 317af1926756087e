package runner

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/village-kernel/village-go/internal/binutils/decoder"
	"github.com/village-kernel/village-go/internal/binutils/loader"
	"github.com/village-kernel/village-go/internal/binutils/relocate"
	"github.com/village-kernel/village-go/internal/debug"
)

// errNotELF is returned by loadAndRelocateELF when data's header
// doesn't pass decoder.Header.Valid for the requested machine.
var errNotELF = errors.New("runner: not a valid ELF32 image")

// ExecDecoder decodes the flat program/module format (`.bin`/`.hex`/
// `.exec`: a 12-byte {offset, dynamic, entry} header followed by the
// image itself) via internal/binutils/relocate.Program
// (vk_exec_decode.rs's non-ELF path).
type ExecDecoder struct {
	entries *EntryTable
	dbg     *debug.Debug

	path string
	prog *relocate.Program
}

// NewExecDecoder returns an ExecDecoder that resolves entry addresses
// through entries.
func NewExecDecoder(entries *EntryTable, dbg *debug.Debug) *ExecDecoder {
	return &ExecDecoder{entries: entries, dbg: dbg}
}

// Init decodes the flat header at load and relocates every
// R_*_RELATIVE entry.
func (d *ExecDecoder) Init(path string, data []byte, load uint32) bool {
	d.path = path

	p, err := relocate.Decode(data, load)
	if err != nil {
		if d.dbg != nil {
			d.dbg.Error(path + " decode failed: " + err.Error())
		}
		return false
	}
	if err := p.Relocate(); err != nil {
		if d.dbg != nil {
			d.dbg.Error(path + " relocate failed: " + err.Error())
		}
		return false
	}
	d.prog = p
	if d.dbg != nil {
		d.dbg.Output(2, path+" load at 0x"+hex32(p.Base))
	}
	return true
}

// Exec resolves the program's Exec address through the entry table
// and invokes it with argv.
func (d *ExecDecoder) Exec(argv []string) bool {
	if d.prog == nil || d.prog.Exec == 0 {
		return false
	}
	fn, ok := d.entries.lookup(d.prog.Exec)
	if !ok {
		if d.dbg != nil {
			d.dbg.Error(d.path + " execute failed!")
		}
		return false
	}
	fn(argv)
	if d.dbg != nil {
		d.dbg.Output(2, d.path+" exit")
	}
	return true
}

// Exit has nothing further to release; flat programs carry no
// separate teardown entry.
func (d *ExecDecoder) Exit() bool { return true }

// ModDecoder decodes the flat module format (`.mbin`/`.mhex`/`.mod`:
// a 16-byte {offset, dynamic, init_entry, exit_entry} header) and
// calls the init entry synchronously, matching vk_mod_decode.rs.
type ModDecoder struct {
	entries *EntryTable
	dbg     *debug.Debug

	path     string
	prog     *relocate.Program
	exitExec uint32
}

// NewModDecoder returns a ModDecoder that resolves entry addresses
// through entries.
func NewModDecoder(entries *EntryTable, dbg *debug.Debug) *ModDecoder {
	return &ModDecoder{entries: entries, dbg: dbg}
}

// Init decodes and relocates the module, then calls its init entry.
func (d *ModDecoder) Init(path string, data []byte, load uint32) bool {
	d.path = path

	p, err := relocate.Decode(data, load)
	if err != nil {
		if d.dbg != nil {
			d.dbg.Error(path + " decode failed: " + err.Error())
		}
		return false
	}
	if len(data) >= 16 {
		exitEntry := binary.LittleEndian.Uint32(data[12:16])
		d.exitExec = p.Base + exitEntry
	}
	if err := p.Relocate(); err != nil {
		if d.dbg != nil {
			d.dbg.Error(path + " relocate failed: " + err.Error())
		}
		return false
	}
	d.prog = p

	if p.Exec == 0 {
		return false
	}
	fn, ok := d.entries.lookup(p.Exec)
	if !ok {
		if d.dbg != nil {
			d.dbg.Error(path + " init entry unresolved")
		}
		return false
	}
	fn(nil)
	return true
}

// Exec is a no-op: a module's behavior runs at Init, matching
// ModDecoder::exec's unconditional `true` in the original.
func (d *ModDecoder) Exec(_ []string) bool { return true }

// Exit calls the module's exit entry, if resolvable.
func (d *ModDecoder) Exit() bool {
	if d.exitExec == 0 {
		return true
	}
	if fn, ok := d.entries.lookup(d.exitExec); ok {
		fn(nil)
	}
	return true
}

// loadAndRelocateELF decodes data's ELF header, expands its PT_LOAD
// segments at load via internal/binutils/loader.LoadELF, and relocates
// the resulting image's full dynamic-section relocation tables via
// internal/binutils/relocate.SharedObject. Shared by ElfDecoder and
// ElfModDecoder, the `.elf`/`.melf` counterparts of ExecDecoder/
// ModDecoder.
func loadAndRelocateELF(data []byte, load uint32, machine uint16) (decoder.Header, *relocate.SharedObject, error) {
	hdr, ok := decoder.DecodeHeader(data)
	if !ok || !hdr.Valid(machine, decoder.TypeDyn) {
		return hdr, nil, errNotELF
	}

	image, dynamic, err := loader.LoadELF(data, machine)
	if err != nil {
		return hdr, nil, err
	}

	so := relocate.NewSharedObject(image, load, dynamic, nil)
	if err := so.PostLoad(); err != nil {
		return hdr, nil, err
	}
	if err := so.Relocate(); err != nil {
		return hdr, nil, err
	}
	return hdr, so, nil
}

// ElfDecoder decodes a real ELF32 image (`.elf`): it expands
// PT_LOAD segments via internal/binutils/loader.LoadELF, then relocates
// the full dynamic-section relocation tables via
// internal/binutils/relocate.SharedObject — the `.so`-style path
// applied to an executable instead of a library.
type ElfDecoder struct {
	Machine uint16

	entries *EntryTable
	dbg     *debug.Debug

	path  string
	so    *relocate.SharedObject
	entry uint32
}

// NewElfDecoder returns an ElfDecoder for the given target machine
// (decoder.MachineX86 or decoder.MachineARM).
func NewElfDecoder(machine uint16, entries *EntryTable, dbg *debug.Debug) *ElfDecoder {
	return &ElfDecoder{Machine: machine, entries: entries, dbg: dbg}
}

// Init expands data's PT_LOAD segments at load, locates PT_DYNAMIC,
// and relocates every rel.dyn/rel.plt entry.
func (d *ElfDecoder) Init(path string, data []byte, load uint32) bool {
	d.path = path

	hdr, so, err := loadAndRelocateELF(data, load, d.Machine)
	if err != nil {
		if d.dbg != nil {
			d.dbg.Error(path + " ELF load failed: " + err.Error())
		}
		return false
	}
	d.so = so
	d.entry = load + hdr.Entry
	return true
}

// Exec resolves the ELF entry point through the entry table.
func (d *ElfDecoder) Exec(argv []string) bool {
	if d.entry == 0 {
		return false
	}
	fn, ok := d.entries.lookup(d.entry)
	if !ok {
		if d.dbg != nil {
			d.dbg.Error(d.path + " execute failed!")
		}
		return false
	}
	fn(argv)
	return true
}

// Exit has no separate teardown entry for an ELF executable.
func (d *ElfDecoder) Exit() bool { return true }

// ElfModDecoder is ElfDecoder's module counterpart (`.melf`): it
// relocates the same way, but calls its entry synchronously at Init
// (matching ModDecoder's behavior) rather than deferring to Exec. A
// real ELF carries only one standard entry point (e_entry), so the
// exit entry is resolved by the well-known export name "__mod_exit"
// instead of a second header field — the module's equivalent of a
// library exporting a symbol by name.
type ElfModDecoder struct {
	Machine uint16

	entries *EntryTable
	dbg     *debug.Debug

	path string
	so   *relocate.SharedObject
}

// NewElfModDecoder returns an ElfModDecoder for the given target
// machine.
func NewElfModDecoder(machine uint16, entries *EntryTable, dbg *debug.Debug) *ElfModDecoder {
	return &ElfModDecoder{Machine: machine, entries: entries, dbg: dbg}
}

// Init relocates the module image and calls its entry point.
func (d *ElfModDecoder) Init(path string, data []byte, load uint32) bool {
	d.path = path

	hdr, so, err := loadAndRelocateELF(data, load, d.Machine)
	if err != nil {
		if d.dbg != nil {
			d.dbg.Error(path + " ELF load failed: " + err.Error())
		}
		return false
	}
	d.so = so

	entry := load + hdr.Entry
	if entry == 0 {
		return false
	}
	fn, ok := d.entries.lookup(entry)
	if !ok {
		if d.dbg != nil {
			d.dbg.Error(path + " init entry unresolved")
		}
		return false
	}
	fn(nil)
	return true
}

// Exec is a no-op, matching ModDecoder.
func (d *ElfModDecoder) Exec(_ []string) bool { return true }

// Exit resolves "__mod_exit" among the module's exports and calls it,
// if present.
func (d *ElfModDecoder) Exit() bool {
	if d.so == nil {
		return true
	}
	if addr, ok := d.so.FindExport("__mod_exit"); ok {
		if fn, ok := d.entries.lookup(addr); ok {
			fn(nil)
		}
	}
	return true
}

func hex32(v uint32) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf)
}
