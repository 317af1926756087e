package interrupt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/village-kernel/village-go/internal/util/callback"
)

type fakePort struct{ out []uint16 }

func (f *fakePort) Out(port uint16, value uint8) { f.out = append(f.out, port) }
func (f *fakePort) In(port uint16) uint8         { return 0 }

func TestDispatchOrderAndEOI(t *testing.T) {
	port := &fakePort{}
	c := New(port, nil)
	c.Setup()

	var order []int
	c.AddISR(33, callback.New(func(any, any) { order = append(order, 1) }, nil, nil))
	c.AddISR(33, callback.New(func(any, any) { order = append(order, 2) }, nil, nil))

	c.Handler(Registers{Irq: 33})
	require.Equal(t, []int{1, 2}, order)
	require.Contains(t, port.out, uint16(pic1Cmd))
}

func TestSetISRReplaces(t *testing.T) {
	c := New(nil, nil)
	var hits int
	c.AddISR(1, callback.New(func(any, any) { hits++ }, nil, nil))
	c.SetISR(1, callback.New(func(any, any) { hits += 10 }, nil, nil))
	c.Handler(Registers{Irq: 1})
	require.Equal(t, 10, hits)
}

func TestDelISR(t *testing.T) {
	c := New(nil, nil)
	fn := func(any, any) {}
	cb := callback.New(fn, nil, nil)
	c.AddISR(5, cb)
	require.Equal(t, 1, c.list(5).Len())
	c.DelISR(5, cb)
	require.Equal(t, 0, c.list(5).Len())
}

func TestUnknownIRQIgnored(t *testing.T) {
	c := New(nil, nil)
	require.NotPanics(t, func() { c.Handler(Registers{Irq: 999}) })
}
