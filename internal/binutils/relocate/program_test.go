package relocate

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/village-kernel/village-go/internal/binutils/decoder"
)

// buildFlatImage lays out a {offset, dynamic, entry} header, a dynamic
// array with DT_REL/DT_RELCOUNT/DT_NULL, one R_386_RELATIVE
// relocation entry, and the target word it points at (placed right
// after the relocation entry) holding an offset-relative value.
func buildFlatImage(offset, dynamicVAddr, entry uint32, relVAddr uint32, relCount uint32, targetOriginal uint32) []byte {
	targetVAddr := relVAddr + 8

	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], offset)
	binary.LittleEndian.PutUint32(header[4:8], dynamicVAddr)
	binary.LittleEndian.PutUint32(header[8:12], entry)

	dynArr := make([]byte, 24) // DT_REL, DT_RELCOUNT, DT_NULL
	binary.LittleEndian.PutUint32(dynArr[0:4], decoder.DTRel)
	binary.LittleEndian.PutUint32(dynArr[4:8], relVAddr)
	binary.LittleEndian.PutUint32(dynArr[8:12], decoder.DTRelCount)
	binary.LittleEndian.PutUint32(dynArr[12:16], relCount)
	binary.LittleEndian.PutUint32(dynArr[16:20], decoder.DTNull)

	relEntry := make([]byte, 8)
	binary.LittleEndian.PutUint32(relEntry[0:4], targetVAddr)
	relEntry[4] = decoder.I386Relative

	target := make([]byte, 4)
	binary.LittleEndian.PutUint32(target, targetOriginal)

	dynStart := int(dynamicVAddr - offset)
	relStart := int(relVAddr - offset)
	targetStart := int(targetVAddr - offset)

	size := targetStart + 4
	if dynStart+len(dynArr) > size {
		size = dynStart + len(dynArr)
	}
	image := make([]byte, size)
	copy(image, header)
	copy(image[dynStart:], dynArr)
	copy(image[relStart:], relEntry)
	copy(image[targetStart:], target)
	return image
}

func TestDecodeComputesBaseAndExec(t *testing.T) {
	data := buildFlatImage(0x1000, 0x1000+20, 0x50, 0x1000+20, 0, 0)
	p, err := Decode(data, 0x5000)
	require.NoError(t, err)
	require.EqualValues(t, 0x5000-0x1000, p.Base)
	require.EqualValues(t, p.Base+0x50, p.Exec)
}

func TestRelocateRewritesRelativeEntry(t *testing.T) {
	offset := uint32(0x1000)
	dynamicVAddr := offset + 20
	relVAddr := dynamicVAddr + 24
	data := buildFlatImage(offset, dynamicVAddr, 0x50, relVAddr, 1, 0x30)

	p, err := Decode(data, 0x5000)
	require.NoError(t, err)
	require.NoError(t, p.Relocate())

	wordOff := relVAddr + 8 - offset
	got := binary.LittleEndian.Uint32(p.Data[wordOff : wordOff+4])
	require.EqualValues(t, p.Base+0x30, got)
}

func TestDecodeRejectsShortImage(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, 0x5000)
	require.ErrorIs(t, err, ErrBadHeader)
}

func TestRelocateNoRelocationsIsOK(t *testing.T) {
	offset := uint32(0x1000)
	dynamicVAddr := offset + 12
	dynArr := make([]byte, 8)
	binary.LittleEndian.PutUint32(dynArr[0:4], decoder.DTNull)
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], offset)
	binary.LittleEndian.PutUint32(header[4:8], dynamicVAddr)
	data := append(header, dynArr...)

	p, err := Decode(data, 0x5000)
	require.NoError(t, err)
	require.NoError(t, p.Relocate())
}

func TestRelocateMismatchFails(t *testing.T) {
	offset := uint32(0x1000)
	dynamicVAddr := offset + 12
	dynArr := make([]byte, 16)
	binary.LittleEndian.PutUint32(dynArr[0:4], decoder.DTRel)
	binary.LittleEndian.PutUint32(dynArr[4:8], dynamicVAddr+16)
	binary.LittleEndian.PutUint32(dynArr[8:12], decoder.DTNull)
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], offset)
	binary.LittleEndian.PutUint32(header[4:8], dynamicVAddr)
	data := append(header, dynArr...)

	p, err := Decode(data, 0x5000)
	require.NoError(t, err)
	require.ErrorIs(t, p.Relocate(), ErrRelocMismatch)
}
