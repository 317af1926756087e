package runner

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/village-kernel/village-go/internal/binutils/decoder"
	"github.com/village-kernel/village-go/internal/mem"
	"github.com/village-kernel/village-go/internal/sched"
)

// --- Director -------------------------------------------------------

type fakeProgBuilder struct {
	name     string
	suffixes []string
}

func (b *fakeProgBuilder) Name() string       { return b.name }
func (b *fakeProgBuilder) Suffixes() []string { return b.suffixes }
func (b *fakeProgBuilder) Create(suffix string) (Container, bool) {
	return &fakeContainer{suffix: suffix}, true
}

type fakeContainer struct{ suffix string }

func (c *fakeContainer) Run(string, []string) int32 { return 0 }
func (c *fakeContainer) Wait(*sched.Task)           {}
func (c *fakeContainer) Kill()                      {}

func TestDirectorDispatchesBySuffix(t *testing.T) {
	d := NewDirector(nil)
	d.RegisterProgBuilder(&fakeProgBuilder{name: "exec", suffixes: []string{".bin", ".exec"}})

	c, err := d.CreateProgContainer("/programs/hello.exec")
	require.NoError(t, err)
	require.Equal(t, ".exec", c.(*fakeContainer).suffix)

	_, err = d.CreateProgContainer("/programs/hello.unknown")
	require.ErrorIs(t, err, ErrUnsupportedSuffix)
}

func TestDirectorUnregisterRemovesBuilder(t *testing.T) {
	d := NewDirector(nil)
	d.RegisterProgBuilder(&fakeProgBuilder{name: "exec", suffixes: []string{".bin"}})
	d.UnregisterProgBuilder("exec")

	_, err := d.CreateProgContainer("/a.bin")
	require.ErrorIs(t, err, ErrUnsupportedSuffix)
}

// --- ExecDecoder / ModDecoder ---------------------------------------

func buildFlatProgram(offset, dynamicVAddr, entry, relVAddr, relCount uint32) []byte {
	targetVAddr := relVAddr + 8

	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], offset)
	binary.LittleEndian.PutUint32(header[4:8], dynamicVAddr)
	binary.LittleEndian.PutUint32(header[8:12], entry)

	dynArr := make([]byte, 24)
	binary.LittleEndian.PutUint32(dynArr[0:4], decoder.DTRel)
	binary.LittleEndian.PutUint32(dynArr[4:8], relVAddr)
	binary.LittleEndian.PutUint32(dynArr[8:12], decoder.DTRelCount)
	binary.LittleEndian.PutUint32(dynArr[12:16], relCount)
	binary.LittleEndian.PutUint32(dynArr[16:20], decoder.DTNull)

	relEntry := make([]byte, 8)
	binary.LittleEndian.PutUint32(relEntry[0:4], targetVAddr)
	relEntry[4] = decoder.I386Relative

	target := make([]byte, 4)

	dynStart := int(dynamicVAddr - offset)
	relStart := int(relVAddr - offset)
	targetStart := int(targetVAddr - offset)

	size := targetStart + 4
	image := make([]byte, size)
	copy(image, header)
	copy(image[dynStart:], dynArr)
	copy(image[relStart:], relEntry)
	copy(image[targetStart:], target)
	return image
}

func TestExecDecoderDecodeRelocateAndExec(t *testing.T) {
	offset := uint32(0x1000)
	dynamicVAddr := offset + 12
	relVAddr := dynamicVAddr + 24
	entry := uint32(4) // exec = base + 4

	data := buildFlatProgram(offset, dynamicVAddr, entry, relVAddr, 1)

	load := uint32(0x5000)
	base := load - offset
	exec := base + entry

	entries := NewEntryTable()
	var gotArgv []string
	entries.Register(exec, func(argv []string) { gotArgv = argv })

	d := NewExecDecoder(entries, nil)
	require.True(t, d.Init("/programs/a.exec", data, load))
	require.True(t, d.Exec([]string{"a", "b"}))
	require.Equal(t, []string{"a", "b"}, gotArgv)
	require.True(t, d.Exit())
}

func TestExecDecoderExecFailsWhenEntryUnregistered(t *testing.T) {
	offset := uint32(0x1000)
	dynamicVAddr := offset + 12
	data := buildFlatProgram(offset, dynamicVAddr, 4, dynamicVAddr+24, 1)

	d := NewExecDecoder(NewEntryTable(), nil)
	require.True(t, d.Init("/programs/a.exec", data, 0x5000))
	require.False(t, d.Exec(nil))
}

func buildFlatModule(offset, dynamicVAddr, initEntry, exitEntry uint32) []byte {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], offset)
	binary.LittleEndian.PutUint32(header[4:8], dynamicVAddr)
	binary.LittleEndian.PutUint32(header[8:12], initEntry)
	binary.LittleEndian.PutUint32(header[12:16], exitEntry)

	dynArr := make([]byte, 8)
	binary.LittleEndian.PutUint32(dynArr[0:4], decoder.DTNull)

	dynStart := int(dynamicVAddr - offset)
	size := dynStart + len(dynArr)
	image := make([]byte, size)
	copy(image, header)
	copy(image[dynStart:], dynArr)
	return image
}

func TestModDecoderInitCallsEntryAndExitCallsExitEntry(t *testing.T) {
	offset := uint32(0x2000)
	dynamicVAddr := offset + 16
	initEntry := uint32(8)
	exitEntry := uint32(12)
	data := buildFlatModule(offset, dynamicVAddr, initEntry, exitEntry)

	load := uint32(0x9000)
	base := load - offset

	entries := NewEntryTable()
	var initCalled, exitCalled bool
	entries.Register(base+initEntry, func([]string) { initCalled = true })
	entries.Register(base+exitEntry, func([]string) { exitCalled = true })

	d := NewModDecoder(entries, nil)
	require.True(t, d.Init("/modules/m.mod", data, load))
	require.True(t, initCalled)

	require.True(t, d.Exec(nil))
	require.True(t, d.Exit())
	require.True(t, exitCalled)
}

// --- ProgRunner -------------------------------------------------------

type fakeLoader struct {
	data []byte
	err  error
}

func (l *fakeLoader) Load(string) ([]byte, error) { return l.data, l.err }

type fakeDecoder struct {
	initOK     bool
	execCalled bool
	exitCalled bool
}

func (d *fakeDecoder) Init(string, []byte, uint32) bool { return d.initOK }
func (d *fakeDecoder) Exec([]string) bool               { d.execCalled = true; return true }
func (d *fakeDecoder) Exit() bool                       { d.exitCalled = true; return true }

func TestProgRunnerRunAndWait(t *testing.T) {
	allocator := mem.New(0x1000, 0x9000)
	s := sched.New(5)

	dec := &fakeDecoder{initOK: true}
	runner := NewProgRunner(&fakeLoader{data: []byte{1, 2, 3, 4}}, dec, allocator, s, nil)

	var tid int32
	caller := s.CreateTask("caller", 0, 64, func(task *sched.Task) {
		tid = runner.Run("/programs/a.bin", []string{"x"})
		runner.Wait(task)
	})
	s.StartTask(caller)

	for i := 0; i < 6; i++ {
		s.Step()
	}

	require.Greater(t, tid, int32(0))
	require.True(t, dec.execCalled)
	require.True(t, dec.exitCalled)
}

func TestProgRunnerRunFailsWhenLoadErrors(t *testing.T) {
	allocator := mem.New(0x1000, 0x9000)
	s := sched.New(5)
	runner := NewProgRunner(&fakeLoader{err: errTestLoad}, &fakeDecoder{}, allocator, s, nil)
	require.EqualValues(t, -1, runner.Run("/programs/missing.bin", nil))
}

func TestProgRunnerRunFailsWhenDecodeFails(t *testing.T) {
	allocator := mem.New(0x1000, 0x9000)
	s := sched.New(5)
	runner := NewProgRunner(&fakeLoader{data: []byte{1}}, &fakeDecoder{initOK: false}, allocator, s, nil)
	require.EqualValues(t, -1, runner.Run("/programs/bad.bin", nil))
}

var errTestLoad = &loadError{"no such file"}

type loadError struct{ msg string }

func (e *loadError) Error() string { return e.msg }

// --- ModRunner --------------------------------------------------------

func TestModRunnerRunCallsInitAndKillCallsExit(t *testing.T) {
	allocator := mem.New(0x1000, 0x9000)
	dec := &fakeDecoder{initOK: true}
	runner := NewModRunner(&fakeLoader{data: []byte{1, 2, 3, 4}}, dec, allocator, nil)

	tid := runner.Run("/modules/a.mod", nil)
	require.EqualValues(t, 0, tid)

	runner.Kill()
	require.True(t, dec.exitCalled)
}
