package loader

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/village-kernel/village-go/internal/binutils/decoder"
)

func TestLoadBinPassesThrough(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	got, err := LoadBin(data)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestLoadBinRejectsEmpty(t *testing.T) {
	_, err := LoadBin(nil)
	require.Error(t, err)
}

func TestLoadHexAssemblesSingleRecord(t *testing.T) {
	// :02000000AABB99  -> len=2 addr=0000 type=00 data=AABB checksum
	text := ":02000000AABB99\n:00000001FF\n"
	image, err := LoadHex(text)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, image)
}

func buildELF(phdrs []decoder.ProgramHeader, segData map[int][]byte) []byte {
	const hdrSize = decoder.ELFHeaderSize
	phOff := uint32(hdrSize)
	body := make([]byte, hdrSize+len(phdrs)*decoder.ProgramHeaderSize)

	copy(body[0:4], []byte{0x7f, 'E', 'L', 'F'})
	body[4] = decoder.Class32
	binary.LittleEndian.PutUint16(body[16:18], decoder.TypeDyn)
	binary.LittleEndian.PutUint16(body[18:20], decoder.MachineX86)
	binary.LittleEndian.PutUint32(body[20:24], decoder.VersionCurrent)
	binary.LittleEndian.PutUint32(body[28:32], phOff)
	binary.LittleEndian.PutUint16(body[42:44], decoder.ProgramHeaderSize)
	binary.LittleEndian.PutUint16(body[44:46], uint16(len(phdrs)))

	for i, ph := range phdrs {
		off := int(phOff) + i*decoder.ProgramHeaderSize
		binary.LittleEndian.PutUint32(body[off:off+4], ph.Type)
		binary.LittleEndian.PutUint32(body[off+4:off+8], ph.Offset)
		binary.LittleEndian.PutUint32(body[off+8:off+12], ph.VAddr)
		binary.LittleEndian.PutUint32(body[off+20:off+24], ph.MemSize)
		binary.LittleEndian.PutUint32(body[off+28:off+32], ph.Align)
	}

	maxOffset := len(body)
	for i, data := range segData {
		end := int(phdrs[i].Offset) + len(data)
		if end > maxOffset {
			maxOffset = end
		}
	}
	if maxOffset > len(body) {
		body = append(body, make([]byte, maxOffset-len(body))...)
	}
	for i, data := range segData {
		copy(body[phdrs[i].Offset:], data)
	}
	return body
}

func TestLoadELFCopiesPTLoadSegments(t *testing.T) {
	phdrs := []decoder.ProgramHeader{
		{Type: decoder.PTLoad, Offset: uint32(decoder.ELFHeaderSize + decoder.ProgramHeaderSize), VAddr: 0, MemSize: 4, Align: 4},
	}
	elf := buildELF(phdrs, map[int][]byte{0: {0xDE, 0xAD, 0xBE, 0xEF}})

	image, dynamic, err := LoadELF(elf, decoder.MachineX86)
	require.NoError(t, err)
	require.EqualValues(t, 0, dynamic)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, image)
}

func TestLoadELFRejectsWrongMachine(t *testing.T) {
	phdrs := []decoder.ProgramHeader{{Type: decoder.PTLoad, MemSize: 4, Align: 4}}
	elf := buildELF(phdrs, nil)
	_, _, err := LoadELF(elf, decoder.MachineARM)
	require.Error(t, err)
}

func TestLoadELFRecordsDynamicVAddr(t *testing.T) {
	phdrs := []decoder.ProgramHeader{
		{Type: decoder.PTLoad, Offset: uint32(decoder.ELFHeaderSize + 2*decoder.ProgramHeaderSize), VAddr: 0, MemSize: 8, Align: 4},
		{Type: decoder.PTDynamic, VAddr: 0x100},
	}
	elf := buildELF(phdrs, map[int][]byte{0: {1, 2, 3, 4, 5, 6, 7, 8}})
	_, dynamic, err := LoadELF(elf, decoder.MachineX86)
	require.NoError(t, err)
	require.EqualValues(t, 0x100, dynamic)
}
