package relocate

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/village-kernel/village-go/internal/binutils/decoder"
)

type mapResolver map[string]uint32

func (m mapResolver) Search(name string) uint32 { return m[name] }

// layout (all addresses are offsets within Data since Base==0 in
// these tests, matching a simulated in-place image):
//
//	dynamic @0:  DT_SYMTAB, DT_SYMENT, DT_STRTAB, DT_STRSZ, DT_REL, DT_RELCOUNT, DT_NULL
//	symtab  @100: 2 entries of 16 bytes
//	strtab  @200: NUL-terminated names
//	rel     @300: relocation entries
//	targets @400: words the relocations write
func buildSharedObject() (*SharedObject, []byte) {
	data := make([]byte, 512)

	dyn := []struct{ tag, val uint32 }{
		{decoder.DTSymTab, 100},
		{decoder.DTSymEnt, 16},
		{decoder.DTStrTab, 200},
		{decoder.DTStrSz, 32},
		{decoder.DTRel, 300},
		{decoder.DTRelCount, 2},
		{decoder.DTNull, 0},
	}
	for i, d := range dyn {
		off := i * 8
		binary.LittleEndian.PutUint32(data[off:off+4], d.tag)
		binary.LittleEndian.PutUint32(data[off+4:off+8], d.val)
	}

	// strtab: index 0 = "", index 1 = "resolved_by_name"
	copy(data[200+1:], []byte("resolved_by_name\x00"))

	// symtab[0]: undefined symbol by name (shndx=0)
	binary.LittleEndian.PutUint32(data[100+0:100+4], 1) // name offset
	// symtab[1]: defined symbol, shndx != 0, value=0x77
	binary.LittleEndian.PutUint32(data[116+0:116+4], 0)
	binary.LittleEndian.PutUint32(data[116+4:116+8], 0x77)
	data[116+14] = 1 // shndx low byte

	// rel[0]: R_386_RELATIVE at target 400, symbol index irrelevant
	binary.LittleEndian.PutUint32(data[300:304], 400)
	data[300+4] = decoder.I386Relative
	binary.LittleEndian.PutUint32(data[400:404], 0x10) // addend

	// rel[1]: R_386_32 at target 404, resolved via symtab[1] (shndx!=0)
	binary.LittleEndian.PutUint32(data[308:312], 404)
	data[308+4] = decoder.I386_32
	data[308+5] = 1 // symbol index 1
	binary.LittleEndian.PutUint32(data[404:408], 0x05)

	so := NewSharedObject(data, 0, 0, nil)
	return so, data
}

func TestSharedObjectPostLoadDerivesCounts(t *testing.T) {
	so, _ := buildSharedObject()
	so.DynamicSz = 32 // 2 symtab entries * 16 bytes
	require.NoError(t, so.PostLoad())
	require.EqualValues(t, 2, so.SymCount)
	require.EqualValues(t, 300, so.Rel)
	require.EqualValues(t, 2, so.RelCount)
}

func TestSharedObjectRelocateRelativeAndDefined(t *testing.T) {
	so, data := buildSharedObject()
	so.DynamicSz = 32
	require.NoError(t, so.PostLoad())
	require.NoError(t, so.Relocate())

	relWord := binary.LittleEndian.Uint32(data[400:404])
	require.EqualValues(t, so.Base+0x10, relWord)

	absWord := binary.LittleEndian.Uint32(data[404:408])
	require.EqualValues(t, (so.Base+0x77)+0x05, absWord)
}

func TestSharedObjectCopyRelocationUsesLibraryResolver(t *testing.T) {
	so, data := buildSharedObject()
	so.DynamicSz = 32
	so.Libraries = mapResolver{"resolved_by_name": 0x9000}
	require.NoError(t, so.PostLoad())

	// overwrite rel[0] to be a COPY relocation against symtab[0]
	// (undefined, name "resolved_by_name")
	binary.LittleEndian.PutUint32(data[300:304], 400)
	data[300+4] = decoder.I386Copy
	data[300+5] = 0
	// the copy source bytes live at the resolved library address; since
	// that address is outside Data in a real image, the simulated copy
	// silently no-ops when the source range falls outside Data, which
	// this test only checks does not panic.
	require.NotPanics(t, func() { so.Relocate() })
}

func TestSharedObjectMismatchedRelFails(t *testing.T) {
	so, _ := buildSharedObject()
	so.Rel = 300
	so.RelCount = 0
	require.Error(t, so.relocateTable(so.Rel, so.RelCount))
}
