package extension

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExtension struct {
	name        string
	setupCalled bool
	exitCalled  bool
}

func (e *fakeExtension) Setup() { e.setupCalled = true }
func (e *fakeExtension) Exit()  { e.exitCalled = true }

func TestSetupRunsFeatureThenServiceThenProgram(t *testing.T) {
	r := New(nil)
	var order []string

	mk := func(name string) *fakeExtension {
		return &fakeExtension{name: name}
	}
	prog := mk("prog")
	svc := mk("svc")
	feat := mk("feat")

	recording := func(e *fakeExtension, tag string) Extension {
		return recordingExt{e, tag, &order}
	}

	r.Register(recording(prog, "prog"), Program, "prog")
	r.Register(recording(svc, "svc"), Service, "svc")
	r.Register(recording(feat, "feat"), Feature, "feat")

	r.Setup()

	require.Equal(t, []string{"feat", "svc", "prog"}, order)
}

type recordingExt struct {
	inner *fakeExtension
	tag   string
	order *[]string
}

func (r recordingExt) Setup() {
	r.inner.Setup()
	*r.order = append(*r.order, r.tag)
}

func (r recordingExt) Exit() {
	r.inner.Exit()
	*r.order = append(*r.order, r.tag)
}

func TestExitRunsProgramThenServiceThenFeature(t *testing.T) {
	r := New(nil)
	var order []string

	r.Register(recordingExt{&fakeExtension{}, "feat", &order}, Feature, "feat")
	r.Register(recordingExt{&fakeExtension{}, "svc", &order}, Service, "svc")
	r.Register(recordingExt{&fakeExtension{}, "prog", &order}, Program, "prog")

	r.Setup()
	order = nil
	r.Exit()

	require.Equal(t, []string{"prog", "svc", "feat"}, order)
}

func TestRegisterAfterSetupRunsSetupImmediately(t *testing.T) {
	r := New(nil)
	r.Setup()

	e := &fakeExtension{}
	r.Register(e, Service, "hot")

	require.True(t, e.setupCalled)
}

func TestUnregisterAfterSetupRunsExitImmediately(t *testing.T) {
	r := New(nil)
	e := &fakeExtension{}
	r.Register(e, Service, "svc")
	r.Setup()

	r.Unregister("svc")

	require.True(t, e.exitCalled)
	_, ok := r.Get("svc")
	require.False(t, ok)
}

func TestUnregisterBeforeSetupDoesNotRunExit(t *testing.T) {
	r := New(nil)
	e := &fakeExtension{}
	r.Register(e, Service, "svc")

	r.Unregister("svc")

	require.False(t, e.exitCalled)
}

func TestGetFindsRegisteredExtension(t *testing.T) {
	r := New(nil)
	e := &fakeExtension{}
	r.Register(e, Feature, "feat")

	got, ok := r.Get("feat")
	require.True(t, ok)
	require.Same(t, e, got)

	_, ok = r.Get("missing")
	require.False(t, ok)
}

type processableExtension struct {
	fakeExtension
	ticks int
}

func (p *processableExtension) Process() { p.ticks++ }

func TestProcessCallsOnlyProgramClassProcessable(t *testing.T) {
	r := New(nil)
	prog := &processableExtension{}
	feat := &processableExtension{}
	r.Register(prog, Program, "prog")
	r.Register(feat, Feature, "feat")

	r.Process()
	r.Process()

	require.Equal(t, 2, prog.ticks)
	require.Equal(t, 0, feat.ticks)
}

func TestExitClearsRegistry(t *testing.T) {
	r := New(nil)
	r.Register(&fakeExtension{}, Feature, "feat")
	r.Setup()
	r.Exit()

	_, ok := r.Get("feat")
	require.False(t, ok)
}
