package runner

import (
	"github.com/village-kernel/village-go/internal/binutils/loader"
	"github.com/village-kernel/village-go/internal/fs"
)

// BinLoader reads a flat `.bin`/`.mbin`/`.exec` image byte-for-byte
// (vk_bin_loader.rs).
type BinLoader struct {
	Files *fs.Facade
}

// Load reads path and passes it through unmodified.
func (l *BinLoader) Load(path string) ([]byte, error) {
	raw, err := l.Files.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return loader.LoadBin(raw)
}

// HexLoader reads an Intel HEX (`.hex`/`.mhex`) text file and
// assembles it into a flat image (vk_hex_loader.rs).
type HexLoader struct {
	Files *fs.Facade
}

// Load reads path and decodes its Intel HEX records.
func (l *HexLoader) Load(path string) ([]byte, error) {
	raw, err := l.Files.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return loader.LoadHex(string(raw))
}

// ElfLoader reads a real ELF32 (`.elf`/`.melf`/`.so`) file's raw
// bytes. Unlike BinLoader/HexLoader, the PT_LOAD expansion happens in
// ElfDecoder.Init rather than here: the decoder also needs the raw
// ELF header (e_entry, PT_DYNAMIC's vaddr) that the expanded image
// alone no longer carries (binutils/loader/vk_elf_loader.rs).
type ElfLoader struct {
	Files *fs.Facade
}

// Load reads path unmodified.
func (l *ElfLoader) Load(path string) ([]byte, error) {
	return l.Files.ReadFile(path)
}
