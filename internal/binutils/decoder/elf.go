// Package decoder implements the wire-format readers for the binary
// loader core: ELF32 header/program-header/dynamic-entry parsing, the
// relocation record layout, and the Intel HEX record format. It knows
// nothing about memory allocation, the filesystem, or task lifecycle
// — see internal/binutils/loader and internal/binutils/relocate for
// those.
package decoder

import "encoding/binary"

// ELF class/type/machine/version constants (spec.md 4.H "ELF32
// reader (class=32, machine matches target, type=DYN, version
// current)").
const (
	ClassNone = 0
	Class32   = 1
	Class64   = 2

	TypeNone = 0
	TypeRel  = 1
	TypeExec = 2
	TypeDyn  = 3
	TypeCore = 4

	MachineNone = 0x00
	MachineX86  = 0x03
	MachineARM  = 0x28

	VersionNone    = 0x00
	VersionCurrent = 0x01
)

// ProgHdrType values relevant to flat-image loading.
const (
	PTNull    = 0x00
	PTLoad    = 0x01
	PTDynamic = 0x02
	PTInterp  = 0x03
	PTNote    = 0x04
)

// SectionHdrType values the shared-object pre-scan needs.
const (
	SHTNull    = 0x00
	SHTDynamic = 0x06
)

// DynamicType tags walked out of the PT_DYNAMIC array.
const (
	DTNull     = 0
	DTNeeded   = 1
	DTPLTRelSz = 2
	DTPLTGOT   = 3
	DTHash     = 4
	DTStrTab   = 5
	DTSymTab   = 6
	DTRel      = 17
	DTRelSz    = 18
	DTRelEnt   = 19
	DTPLTRel   = 20
	DTJmpRel   = 23
	DTSymEnt   = 11
	DTStrSz    = 10
	DTRelCount = 0x6ffffffa
)

// RelocationCode is the architecture-specific relocation type byte
// carried in a RelocationEntry. Only the IA-32 (i386) codes are
// defined — the ARM Cortex-M target in spec.md's scope uses Thumb
// call-table linking elsewhere, not ELF PIC relocation.
const (
	I386None    = 0
	I386_32     = 1
	I386PC32    = 2
	I386GOT32   = 3
	I386PLT32   = 4
	I386Copy    = 5
	I386GlobDat = 6
	I386JmpSlot = 7
	I386Relative = 8
	I386GotOff  = 9
	I386GotPC   = 10
)

// ELFHeaderSize is the on-disk size of Header in ELF32.
const ELFHeaderSize = 52

// Header is the ELF32 file header.
type Header struct {
	Ident                          [16]byte
	Type, Machine                  uint16
	Version                        uint32
	Entry, ProgHdrOff, SectHdrOff  uint32
	Flags                          uint32
	EHSize, PHEntSize, PHNum       uint16
	SHEntSize, SHNum, SHStrNdx     uint16
}

var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// DecodeHeader parses an ELF32 header from the first ELFHeaderSize
// bytes of data.
func DecodeHeader(data []byte) (Header, bool) {
	var h Header
	if len(data) < ELFHeaderSize {
		return h, false
	}
	copy(h.Ident[:], data[0:16])
	h.Type = binary.LittleEndian.Uint16(data[16:18])
	h.Machine = binary.LittleEndian.Uint16(data[18:20])
	h.Version = binary.LittleEndian.Uint32(data[20:24])
	h.Entry = binary.LittleEndian.Uint32(data[24:28])
	h.ProgHdrOff = binary.LittleEndian.Uint32(data[28:32])
	h.SectHdrOff = binary.LittleEndian.Uint32(data[32:36])
	h.Flags = binary.LittleEndian.Uint32(data[36:40])
	h.EHSize = binary.LittleEndian.Uint16(data[40:42])
	h.PHEntSize = binary.LittleEndian.Uint16(data[42:44])
	h.PHNum = binary.LittleEndian.Uint16(data[44:46])
	h.SHEntSize = binary.LittleEndian.Uint16(data[46:48])
	h.SHNum = binary.LittleEndian.Uint16(data[48:50])
	h.SHStrNdx = binary.LittleEndian.Uint16(data[50:52])
	return h, true
}

// Valid reports whether h is a 32-bit, current-version ELF header for
// machine, of the required elf type (normally TypeDyn — every
// village-kernel binary, program or library, is position independent).
func (h Header) Valid(machine uint16, wantType uint16) bool {
	if h.Ident[0] != elfMagic[0] || h.Ident[1] != elfMagic[1] || h.Ident[2] != elfMagic[2] || h.Ident[3] != elfMagic[3] {
		return false
	}
	if h.Ident[4] != Class32 {
		return false
	}
	if h.Version != VersionCurrent {
		return false
	}
	if h.Machine != machine {
		return false
	}
	return h.Type == wantType
}

// ProgramHeaderSize is the on-disk size of a ProgramHeader.
const ProgramHeaderSize = 32

// ProgramHeader is one ELF32 PT_* entry.
type ProgramHeader struct {
	Type, Flags                     uint32
	Offset, VAddr, PAddr             uint32
	FileSize, MemSize, Align         uint32
}

// DecodeProgramHeader parses one program header from data.
func DecodeProgramHeader(data []byte) (ProgramHeader, bool) {
	var p ProgramHeader
	if len(data) < ProgramHeaderSize {
		return p, false
	}
	p.Type = binary.LittleEndian.Uint32(data[0:4])
	p.Offset = binary.LittleEndian.Uint32(data[4:8])
	p.VAddr = binary.LittleEndian.Uint32(data[8:12])
	p.PAddr = binary.LittleEndian.Uint32(data[12:16])
	p.FileSize = binary.LittleEndian.Uint32(data[16:20])
	p.MemSize = binary.LittleEndian.Uint32(data[20:24])
	p.Flags = binary.LittleEndian.Uint32(data[24:28])
	p.Align = binary.LittleEndian.Uint32(data[28:32])
	return p, true
}

// SectionHeaderSize is the on-disk size of a SectionHeader (only the
// fields the shared-object pre-scan needs are decoded).
const SectionHeaderSize = 40

// SectionHeader is one ELF32 section header.
type SectionHeader struct {
	NameOff, Type uint32
	Flags, Addr   uint32
	Offset, Size  uint32
}

// DecodeSectionHeader parses one section header from data.
func DecodeSectionHeader(data []byte) (SectionHeader, bool) {
	var s SectionHeader
	if len(data) < SectionHeaderSize {
		return s, false
	}
	s.NameOff = binary.LittleEndian.Uint32(data[0:4])
	s.Type = binary.LittleEndian.Uint32(data[4:8])
	s.Flags = binary.LittleEndian.Uint32(data[8:12])
	s.Addr = binary.LittleEndian.Uint32(data[12:16])
	s.Offset = binary.LittleEndian.Uint32(data[16:20])
	s.Size = binary.LittleEndian.Uint32(data[20:24])
	return s, true
}

// DynamicHeader is one {tag, val} entry of the PT_DYNAMIC array.
type DynamicHeader struct {
	Tag, Val uint32
}

// DecodeDynamicHeader parses one dynamic entry from data.
func DecodeDynamicHeader(data []byte) (DynamicHeader, bool) {
	var d DynamicHeader
	if len(data) < 8 {
		return d, false
	}
	d.Tag = binary.LittleEndian.Uint32(data[0:4])
	d.Val = binary.LittleEndian.Uint32(data[4:8])
	return d, true
}

// RelocationEntry is village-kernel's 8-byte relocation record:
// offset, a one-byte type, a one-byte symbol index, and two reserved
// bytes — narrower than the standard Elf32_Rel packed r_info word,
// but that is the on-disk layout every builder/loader pair here
// agrees on.
type RelocationEntry struct {
	Offset uint32
	Type   uint8
	Symbol uint8
}

// DecodeRelocationEntry parses one 8-byte relocation record.
func DecodeRelocationEntry(data []byte) (RelocationEntry, bool) {
	var r RelocationEntry
	if len(data) < 8 {
		return r, false
	}
	r.Offset = binary.LittleEndian.Uint32(data[0:4])
	r.Type = data[4]
	r.Symbol = data[5]
	return r, true
}

// SymbolEntrySize is the on-disk size of a SymbolEntry.
const SymbolEntrySize = 16

// SymbolEntry is an Elf32_Sym.
type SymbolEntry struct {
	Name, Value, Size uint32
	Info, Other       uint8
	Shndx             uint16
}

// DecodeSymbolEntry parses one 16-byte Elf32_Sym record.
func DecodeSymbolEntry(data []byte) (SymbolEntry, bool) {
	var s SymbolEntry
	if len(data) < SymbolEntrySize {
		return s, false
	}
	s.Name = binary.LittleEndian.Uint32(data[0:4])
	s.Value = binary.LittleEndian.Uint32(data[4:8])
	s.Size = binary.LittleEndian.Uint32(data[8:12])
	s.Info = data[12]
	s.Other = data[13]
	s.Shndx = binary.LittleEndian.Uint16(data[14:16])
	return s, true
}
