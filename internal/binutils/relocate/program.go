// Package relocate implements the flat-program and shared-object
// relocation passes of spec.md 4.H: rewriting R_*_RELATIVE (and, for
// shared objects, the full i386 relocation type set) entries from
// offset-relative to absolute addresses once a binary image has been
// placed in memory.
package relocate

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/village-kernel/village-go/internal/binutils/decoder"
)

// Program is a flat program/module image: the first twelve bytes
// carry {offset, dynamic, entry} (spec.md 4.H "Program relocation
// (flat format)"). Decode fills those three fields and computes
// Base/Exec; Relocate then rewrites every DT_REL/DT_RELCOUNT
// R_*_RELATIVE entry in place.
type Program struct {
	Data []byte

	Load, Base, Exec    uint32
	Offset, Dynamic, Entry uint32
}

// ErrBadHeader is returned when the image is too small to carry the
// twelve-byte flat header.
var ErrBadHeader = errors.New("relocate: image shorter than flat header")

// ErrRelocMismatch is returned when one of DT_REL/DT_RELCOUNT is
// non-zero and the other is zero or absent; both zero (or absent)
// means there is nothing to relocate.
var ErrRelocMismatch = errors.New("relocate: DT_REL/DT_RELCOUNT disagree")

// Decode reads the flat header and computes Base/Exec. load is the
// address the image will execute at (its own first byte's address);
// for a pure simulation without real memory placement this is
// typically the allocator-returned address cast to uint32.
func Decode(data []byte, load uint32) (*Program, error) {
	if len(data) < 12 {
		return nil, ErrBadHeader
	}
	p := &Program{
		Data:    data,
		Load:    load,
		Offset:  binary.LittleEndian.Uint32(data[0:4]),
		Dynamic: binary.LittleEndian.Uint32(data[4:8]),
		Entry:   binary.LittleEndian.Uint32(data[8:12]),
	}
	p.Base = p.Load - p.Offset
	p.Exec = p.Base + p.Entry
	return p, nil
}

// Relocate walks the dynamic array starting at Dynamic-Offset,
// capturing DT_REL and DT_RELCOUNT, and rewrites every R_*_RELATIVE
// entry's target word from offset-relative to absolute (base-added)
// in place.
func (p *Program) Relocate() error {
	dynStart := int(p.Dynamic - p.Offset)
	if dynStart+8 > len(p.Data) {
		return ErrBadHeader
	}

	var relocate uint32
	var relcount uint32

	for i := 0; ; i++ {
		off := dynStart + i*8
		if off+8 > len(p.Data) {
			break
		}
		dh, _ := decoder.DecodeDynamicHeader(p.Data[off : off+8])
		switch dh.Tag {
		case decoder.DTRel:
			relocate = dh.Val
		case decoder.DTRelCount:
			relcount = dh.Val
		case decoder.DTNull:
			goto scanned
		}
	}
scanned:

	if relocate == 0 && relcount == 0 {
		return nil
	}
	if relocate == 0 || relcount == 0 {
		return ErrRelocMismatch
	}

	relStart := int(relocate - p.Offset)
	for i := uint32(0); i < relcount; i++ {
		entOff := relStart + int(i)*8
		if entOff+8 > len(p.Data) {
			continue
		}
		rel, _ := decoder.DecodeRelocationEntry(p.Data[entOff : entOff+8])
		if rel.Type != decoder.I386Relative {
			continue
		}

		wordOff := int(rel.Offset - p.Offset)
		if wordOff+4 > len(p.Data) {
			continue
		}
		original := binary.LittleEndian.Uint32(p.Data[wordOff : wordOff+4])
		binary.LittleEndian.PutUint32(p.Data[wordOff:wordOff+4], p.Base+original)
	}

	return nil
}
