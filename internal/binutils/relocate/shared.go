package relocate

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/village-kernel/village-go/internal/binutils/decoder"
)

// SymbolResolver looks up an address by name; internal/kernel wires
// one implementation to the symbol table and another to the library
// container (spec.md 4.H's "resolve by name in the kernel symbol
// table" / "resolve by name in the library table" precedence steps).
type SymbolResolver interface {
	Search(name string) uint32
}

// SharedObject holds the derived dynamic-section layout of a loaded
// .so image (spec.md 4.H "Shared-object relocation").
type SharedObject struct {
	Data []byte
	Base uint32

	Dynamic, DynamicSz uint32

	Rel, RelSz, RelEnt, RelCount uint32
	JmpRel, PLTRelSz, PLTGot     uint32
	PLTCount                     uint32

	SymTab, SymEnt, SymCount uint32
	StrTab, StrSz            uint32

	// IgnoreUnresolved controls whether an unresolved symbol only
	// warns (true, the original decoder's default) or fails the whole
	// relocation pass (false).
	IgnoreUnresolved bool

	KernelSymbols SymbolResolver
	Libraries     SymbolResolver

	// OnNeeded is invoked once per DT_NEEDED entry with the dependency
	// name; the runner installs "/libraries/<name>" through it.
	OnNeeded func(name string)

	log *logrus.Logger
}

// NewSharedObject returns a SharedObject over an already-PT_LOAD-laid-out
// image (loader.LoadELF's output), base is the image's load address,
// dynamic is the PT_DYNAMIC vaddr within that image.
func NewSharedObject(data []byte, base, dynamic uint32, log *logrus.Logger) *SharedObject {
	return &SharedObject{Data: data, Base: base, Dynamic: dynamic, IgnoreUnresolved: true, log: log}
}

// ScanSections additionally sets Dynamic/DynamicSz from a SHT_DYNAMIC
// section header when the caller has the original ELF's section
// headers available (PostLoad alone is enough when PT_DYNAMIC was
// present; this covers files that only carry the section view).
func (s *SharedObject) ScanSections(elf []byte, hdr decoder.Header) {
	for i := 0; i < int(hdr.SHNum); i++ {
		start := int(hdr.SectHdrOff) + i*int(hdr.SHEntSize)
		end := start + decoder.SectionHeaderSize
		if end > len(elf) {
			return
		}
		sh, ok := decoder.DecodeSectionHeader(elf[start:end])
		if ok && sh.Type == decoder.SHTDynamic {
			s.Dynamic = sh.Offset
			s.DynamicSz = sh.Size
		}
	}
}

// PostLoad walks the dynamic array at Dynamic within Data, capturing
// every tag spec.md 4.H names, and derives SymCount/PLTCount.
func (s *SharedObject) PostLoad() error {
	for i := 0; ; i++ {
		off := int(s.Dynamic) + i*8
		if off+8 > len(s.Data) {
			break
		}
		dh, _ := decoder.DecodeDynamicHeader(s.Data[off : off+8])
		switch dh.Tag {
		case decoder.DTRel:
			s.Rel = dh.Val
		case decoder.DTRelSz:
			s.RelSz = dh.Val
		case decoder.DTRelEnt:
			s.RelEnt = dh.Val
		case decoder.DTRelCount:
			s.RelCount = dh.Val
		case decoder.DTJmpRel:
			s.JmpRel = dh.Val
		case decoder.DTPLTGOT:
			s.PLTGot = dh.Val
		case decoder.DTPLTRelSz:
			s.PLTRelSz = dh.Val
		case decoder.DTSymTab:
			s.SymTab = dh.Val
		case decoder.DTSymEnt:
			s.SymEnt = dh.Val
		case decoder.DTStrTab:
			s.StrTab = dh.Val
		case decoder.DTStrSz:
			s.StrSz = dh.Val
		case decoder.DTNeeded:
			if s.OnNeeded != nil {
				s.OnNeeded(s.symbolName(dh.Val))
			}
		case decoder.DTNull:
			goto scanned
		}
	}
scanned:
	if s.SymEnt != 0 {
		s.SymCount = s.DynamicSz / s.SymEnt
	}
	if s.RelEnt != 0 {
		s.PLTCount = s.PLTRelSz / s.RelEnt
	}
	return nil
}

func (s *SharedObject) symbolEntry(ndx uint32) decoder.SymbolEntry {
	start := int(s.SymTab) + int(ndx)*int(s.SymEnt)
	end := start + int(s.SymEnt)
	if start < 0 || end > len(s.Data) {
		return decoder.SymbolEntry{}
	}
	e, _ := decoder.DecodeSymbolEntry(s.Data[start:end])
	return e
}

// FindExport searches the symbol table for name, returning its
// absolute address. Used by a library container's Get(symbol) — the
// shared object has no export hash table, so this is a linear scan
// matching spec.md 4.H's "library table lookup by name".
func (s *SharedObject) FindExport(name string) (uint32, bool) {
	for i := uint32(0); i < s.SymCount; i++ {
		sym := s.symbolEntry(i)
		if sym.Shndx == 0 {
			continue
		}
		if s.symbolName(sym.Name) == name {
			return s.Base + sym.Value, true
		}
	}
	return 0, false
}

func (s *SharedObject) symbolName(nameOff uint32) string {
	start := int(s.StrTab) + int(nameOff)
	if start < 0 || start >= len(s.Data) {
		return ""
	}
	rest := s.Data[start:]
	end := strings.IndexByte(string(rest), 0)
	if end < 0 {
		end = len(rest)
	}
	return string(rest[:end])
}

// Relocate applies rel.dyn (Rel/RelCount) then rel.plt
// (JmpRel/PLTCount), matching the original's processing order.
func (s *SharedObject) Relocate() error {
	if err := s.relocateTable(s.Rel, s.RelCount); err != nil {
		return err
	}
	return s.relocateTable(s.JmpRel, s.PLTCount)
}

func (s *SharedObject) relocateTable(rel, count uint32) error {
	if rel == 0 && count == 0 {
		return nil
	}
	if rel == 0 || count == 0 {
		return ErrRelocMismatch
	}

	for i := uint32(0); i < count; i++ {
		entOff := int(rel) + int(i)*8
		if entOff+8 > len(s.Data) {
			continue
		}
		entry, _ := decoder.DecodeRelocationEntry(s.Data[entOff : entOff+8])
		sym := s.symbolEntry(uint32(entry.Symbol))
		name := s.symbolName(sym.Name)

		relAddr := s.Base + entry.Offset
		var symAddr uint32

		switch entry.Type {
		case decoder.I386Relative:
			symAddr = s.Base
		case decoder.I386Copy:
			if s.Libraries != nil {
				symAddr = s.Libraries.Search(name)
			}
		}
		if symAddr == 0 && sym.Shndx != 0 {
			symAddr = s.Base + sym.Value
		}
		if symAddr == 0 && s.KernelSymbols != nil {
			symAddr = s.KernelSymbols.Search(name)
		}
		if symAddr == 0 && s.Libraries != nil {
			symAddr = s.Libraries.Search(name)
		}

		if symAddr == 0 {
			msg := errors.Errorf("relocation symbol %q not found", name)
			if s.IgnoreUnresolved {
				if s.log != nil {
					s.log.Warn(msg.Error())
				}
			} else {
				return msg
			}
		}

		s.applyRelocation(relAddr, symAddr, entry.Type, sym.Size)
	}
	return nil
}

// applyRelocation rewrites the word at relAddr according to the i386
// relocation type the way the original rel_sym_call does. relAddr
// indexes into Data directly (it is Base + file-relative offset, and
// Base equals Data's own load address in this simulation, so
// relAddr-Base is the slice index).
func (s *SharedObject) applyRelocation(relAddr, symAddr uint32, typ uint8, size uint32) {
	idx := int(relAddr - s.Base)
	if idx < 0 || idx+4 > len(s.Data) {
		return
	}
	a := binary.LittleEndian.Uint32(s.Data[idx : idx+4])
	p := relAddr

	var result uint32
	switch typ {
	case decoder.I386_32:
		result = symAddr + a
	case decoder.I386PC32:
		result = symAddr + a - p
	case decoder.I386GOT32:
		result = a // got base is 0 in this simulation
	case decoder.I386PLT32:
		result = a - p
	case decoder.I386Copy:
		count := int(size)
		src := int(symAddr - s.Base)
		if src >= 0 && src+count <= len(s.Data) && idx+count <= len(s.Data) {
			copy(s.Data[idx:idx+count], s.Data[src:src+count])
		}
		return
	case decoder.I386GlobDat, decoder.I386JmpSlot:
		result = symAddr
	case decoder.I386Relative:
		result = symAddr + a
	case decoder.I386GotOff:
		result = symAddr + a
	case decoder.I386GotPC:
		result = a - p
	default:
		return
	}
	binary.LittleEndian.PutUint32(s.Data[idx:idx+4], result)
}
