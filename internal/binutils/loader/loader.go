// Package loader turns decoded binary formats into a flat in-memory
// program image: raw .bin passthrough, Intel HEX assembly, and ELF32
// PT_LOAD layout. None of these touch the filesystem — internal/fs
// supplies the raw bytes; internal/runner wires loader output into
// internal/binutils/relocate and then the scheduler.
package loader

import (
	"github.com/pkg/errors"

	"github.com/village-kernel/village-go/internal/binutils/decoder"
)

// LoadBin returns data unchanged: a raw .bin image needs no layout
// step, only the relocation pass.
func LoadBin(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("loader: empty bin image")
	}
	return data, nil
}

// LoadHex assembles an Intel HEX text image into a flat byte image.
func LoadHex(text string) ([]byte, error) {
	return decoder.DecodeIntelHex(text)
}

// LoadELF walks an ELF32 file's program headers and produces the flat
// image described in spec.md 4.H: for each PT_LOAD, `need = vaddr +
// mem_size` aligned up to `align`; the max across segments is the
// image size. Each segment's file bytes are copied to their vaddr
// offset within that image. Returns the flat image and the PT_DYNAMIC
// vaddr (0 if absent).
func LoadELF(elf []byte, machine uint16) (image []byte, dynamic uint32, err error) {
	hdr, ok := decoder.DecodeHeader(elf)
	if !ok {
		return nil, 0, errors.New("loader: elf header too short")
	}
	if !hdr.Valid(machine, decoder.TypeDyn) {
		return nil, 0, errors.New("loader: not a position-independent (ET_DYN) elf for this machine")
	}

	type segment struct{ vaddr, offset, memSize uint32 }
	var segments []segment
	var progSize uint32

	for i := 0; i < int(hdr.PHNum); i++ {
		start := int(hdr.ProgHdrOff) + i*int(hdr.PHEntSize)
		end := start + decoder.ProgramHeaderSize
		if end > len(elf) {
			return nil, 0, errors.New("loader: program header out of range")
		}
		ph, ok := decoder.DecodeProgramHeader(elf[start:end])
		if !ok {
			return nil, 0, errors.New("loader: malformed program header")
		}

		switch ph.Type {
		case decoder.PTLoad:
			if ph.Align == 0 {
				return nil, 0, errors.New("loader: PT_LOAD align is zero")
			}
			need := ph.VAddr + ph.MemSize + (ph.Align - 1)
			aligned := need / ph.Align * ph.Align
			if aligned > progSize {
				progSize = aligned
			}
			segments = append(segments, segment{vaddr: ph.VAddr, offset: ph.Offset, memSize: ph.MemSize})
		case decoder.PTDynamic:
			dynamic = ph.VAddr
		}
	}

	if len(segments) == 0 {
		return nil, 0, errors.New("loader: elf file has no valid program section")
	}

	image = make([]byte, progSize)
	for _, seg := range segments {
		if int(seg.offset+seg.memSize) > len(elf) {
			return nil, 0, errors.New("loader: segment file range out of bounds")
		}
		copy(image[seg.vaddr:seg.vaddr+seg.memSize], elf[seg.offset:seg.offset+seg.memSize])
	}

	return image, dynamic, nil
}
