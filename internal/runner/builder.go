package runner

import (
	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/fs"
	"github.com/village-kernel/village-go/internal/mem"
)

// ExecBuilder is the program builder (vk_exec_builder.rs): it binds
// `.bin`/`.hex`/`.elf` to their matching loader/decoder pair and
// `.exec` to the flat `.bin` pair (the original's
// `binding_exec_bin` build-time default).
type ExecBuilder struct {
	Files   *fs.Facade
	Mem     *mem.Allocator
	Threads Threads
	Entries *EntryTable
	Machine uint16
	Dbg     *debug.Debug
}

// Name identifies this builder in the Director registry.
func (b *ExecBuilder) Name() string { return "exec_builder" }

// Suffixes lists every file extension this builder claims.
func (b *ExecBuilder) Suffixes() []string { return []string{".bin", ".hex", ".elf", ".exec"} }

// Create returns a ProgRunner wired to the loader/decoder pair for
// suffix.
func (b *ExecBuilder) Create(suffix string) (Container, bool) {
	if suffix == ".exec" {
		suffix = ".bin"
	}

	switch suffix {
	case ".bin":
		return NewProgRunner(&BinLoader{Files: b.Files}, NewExecDecoder(b.Entries, b.Dbg), b.Mem, b.Threads, b.Dbg), true
	case ".hex":
		return NewProgRunner(&HexLoader{Files: b.Files}, NewExecDecoder(b.Entries, b.Dbg), b.Mem, b.Threads, b.Dbg), true
	case ".elf":
		return NewProgRunner(&ElfLoader{Files: b.Files}, NewElfDecoder(b.Machine, b.Entries, b.Dbg), b.Mem, b.Threads, b.Dbg), true
	}
	return nil, false
}

// ModBuilder is the module builder (vk_mod_builder.rs): it binds
// `.mbin`/`.mhex`/`.melf` to their matching loader/decoder pair and
// `.mod` to the flat `.mbin` pair.
type ModBuilder struct {
	Files   *fs.Facade
	Mem     *mem.Allocator
	Entries *EntryTable
	Machine uint16
	Dbg     *debug.Debug
}

// Name identifies this builder in the Director registry.
func (b *ModBuilder) Name() string { return "mod_builder" }

// Suffixes lists every file extension this builder claims.
func (b *ModBuilder) Suffixes() []string { return []string{".mbin", ".mhex", ".melf", ".mod"} }

// Create returns a ModRunner wired to the loader/decoder pair for
// suffix.
func (b *ModBuilder) Create(suffix string) (Container, bool) {
	if suffix == ".mod" {
		suffix = ".mbin"
	}

	switch suffix {
	case ".mbin":
		return NewModRunner(&BinLoader{Files: b.Files}, NewModDecoder(b.Entries, b.Dbg), b.Mem, b.Dbg), true
	case ".mhex":
		return NewModRunner(&HexLoader{Files: b.Files}, NewModDecoder(b.Entries, b.Dbg), b.Mem, b.Dbg), true
	case ".melf":
		// A module built as a real ELF image still only needs its
		// init/exit entries invoked, not the full Exec/argv protocol;
		// ElfDecoder's Exec (called nowhere for modules) is unused
		// here, only Init's relocation pass and entry resolution.
		return NewModRunner(&ElfLoader{Files: b.Files}, NewElfModDecoder(b.Machine, b.Entries, b.Dbg), b.Mem, b.Dbg), true
	}
	return nil, false
}

// DylibBuilder is the library builder (vk_dylib_builder.rs): it binds
// `.so` to the shared-object loader (binutils/loader/vk_so_loader.rs).
type DylibBuilder struct {
	Files   *fs.Facade
	Mem     *mem.Allocator
	Machine uint16
	Dbg     *debug.Debug
}

// Name identifies this builder in the Director registry.
func (b *DylibBuilder) Name() string { return "dylib_builder" }

// Suffixes lists every file extension this builder claims.
func (b *DylibBuilder) Suffixes() []string { return []string{".so"} }

// Create returns a LibContainer over a shared-object ELF image.
func (b *DylibBuilder) Create(suffix string) (Library, bool) {
	if suffix != ".so" {
		return nil, false
	}
	machine := b.Machine
	build := func(data []byte, load uint32) (SymbolSource, bool) {
		_, so, err := loadAndRelocateELF(data, load, machine)
		if err != nil {
			return nil, false
		}
		return so, true
	}
	return NewLibContainer(&ElfLoader{Files: b.Files}, b.Mem, build, b.Dbg), true
}
