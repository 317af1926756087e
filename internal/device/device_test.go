package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/village-kernel/village-go/internal/util/callback"
)

type fakeDriver struct{ closed bool }

func (f *fakeDriver) Open(any) bool                   { return true }
func (f *fakeDriver) Write(data []byte, offset int) int { return len(data) }
func (f *fakeDriver) Read(data []byte, offset int) int  { return 0 }
func (f *fakeDriver) Ioctrl(Command) bool               { return false }
func (f *fakeDriver) Close()                            { f.closed = true }

type fakePlatDriver struct {
	probed  []string
	removed []string
	drv     *fakeDriver
}

func (p *fakePlatDriver) Probe(dev PlatDevice) (Driver, bool) {
	p.probed = append(p.probed, dev.Name)
	p.drv = &fakeDriver{}
	return p.drv, true
}

func (p *fakePlatDriver) Remove(dev PlatDevice) {
	p.removed = append(p.removed, dev.Name)
}

func TestRegisterDeviceThenDriverProbes(t *testing.T) {
	r := New(nil)
	r.RegisterDevice(PlatDevice{Name: "uart0"})

	drv := &fakePlatDriver{}
	r.RegisterDriver("uart0", drv)

	require.Equal(t, []string{"uart0"}, drv.probed)
	live, ok := r.GetDriver("uart0")
	require.True(t, ok)
	require.Same(t, drv.drv, live)
}

func TestRegisterDriverThenDeviceProbes(t *testing.T) {
	r := New(nil)
	drv := &fakePlatDriver{}
	r.RegisterDriver("spi0", drv)
	r.RegisterDevice(PlatDevice{Name: "spi0"})

	require.Equal(t, []string{"spi0"}, drv.probed)
	_, ok := r.GetDriver("spi0")
	require.True(t, ok)
}

func TestUnregisterDeviceRemovesLiveDriver(t *testing.T) {
	r := New(nil)
	drv := &fakePlatDriver{}
	r.RegisterDriver("gpio0", drv)
	r.RegisterDevice(PlatDevice{Name: "gpio0"})

	r.UnregisterDevice("gpio0")
	require.Equal(t, []string{"gpio0"}, drv.removed)
	_, ok := r.GetDriver("gpio0")
	require.False(t, ok)
}

func TestHotplugNotifiesAttachAndDetach(t *testing.T) {
	r := New(nil)
	var events []HotplugEvent
	r.Hotplug.Attach(callback.New(func(_ any, data any) {
		events = append(events, data.(HotplugEvent))
	}, nil, nil))

	drv := &fakePlatDriver{}
	r.RegisterDriver("uart0", drv)
	r.RegisterDevice(PlatDevice{Name: "uart0"})
	r.UnregisterDevice("uart0")

	require.Len(t, events, 2)
	require.True(t, events[0].Attached)
	require.False(t, events[1].Attached)
}

func TestNameMismatchNeverProbes(t *testing.T) {
	r := New(nil)
	drv := &fakePlatDriver{}
	r.RegisterDriver("i2c0", drv)
	r.RegisterDevice(PlatDevice{Name: "i2c1"})

	require.Empty(t, drv.probed)
	_, ok := r.GetDriver("i2c1")
	require.False(t, ok)
}
