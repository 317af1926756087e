// Package interrupt implements the interrupt controller: IDT/vector
// table installation (simulated — see Controller.Setup), an
// ordered-callback-list dispatch fan-out per IRQ, and PIC-style EOI
// bookkeeping.
package interrupt

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/util/callback"
	"github.com/village-kernel/village-go/internal/util/linkedlist"
)

// Exception vectors 0-18 are CPU faults; IRQs begin at 32 (master
// PIC) the way the IA-32 legacy remap places them.
const (
	ExceptionFirst = 0
	ExceptionLast  = 18
	IRQBase        = 32
	pic2Threshold  = 40
)

// Registers mirrors the IA-32 legacy trap frame: general-purpose
// registers pushed by pusha, segment selectors, the irq/err pair the
// low-level stub records, and the processor-pushed eip/cs/eflags/psp/ss.
// Concrete values only matter to the stub and to the exception debug
// dump; everything else only reads Irq/Err/Psp.
type Registers struct {
	Edi, Esi, Ebp, Esp, Ebx, Edx, Ecx, Eax uint32
	Gs, Fs, Es, Ds                         uint32
	Irq, Err                               uint32
	Eip, Cs, Eflags, Psp, Ss               uint32
}

// Fields renders the register set as structured logrus fields for
// the exception debug dump.
func (r Registers) Fields() logrus.Fields {
	return logrus.Fields{
		"irq": r.Irq, "err": r.Err, "psp": r.Psp,
		"eax": r.Eax, "ecx": r.Ecx, "edx": r.Edx, "ebx": r.Ebx,
		"esp": r.Esp, "ebp": r.Ebp, "esi": r.Esi, "edi": r.Edi,
		"eip": r.Eip, "eflags": r.Eflags,
		"cs": r.Cs, "ss": r.Ss, "ds": r.Ds, "es": r.Es, "fs": r.Fs, "gs": r.Gs,
	}
}

// Port is the byte-wide I/O port interface the PIC remap issues
// out/in on. A real board wires real ports; tests use an in-memory
// fake.
type Port interface {
	Out(port uint16, value uint8)
	In(port uint16) uint8
}

const (
	pic1Cmd  = 0x20
	pic1Data = 0x21
	pic2Cmd  = 0xA0
	pic2Data = 0xA1
	picEOI   = 0x20
	icw1Init = 0x10
	icw1ICW4 = 0x01
	icw4_8086 = 0x01
)

// Controller is the kernel's interrupt controller: ISR registration,
// dispatch and PIC bookkeeping. Setup and Exit set and clear a ready
// flag; Handler does not consult it and dispatches either way.
type Controller struct {
	mu    sync.Mutex
	isr   map[uint32]*linkedlist.List[callback.Callback]
	port  Port
	dbg   *debug.Debug
	ready bool
}

// New returns a Controller driving port for PIC remap/EOI and dbg for
// the exception register dump.
func New(port Port, dbg *debug.Debug) *Controller {
	return &Controller{isr: make(map[uint32]*linkedlist.List[callback.Callback]), port: port, dbg: dbg}
}

func (c *Controller) list(irq uint32) *linkedlist.List[callback.Callback] {
	l, ok := c.isr[irq]
	if !ok {
		l = &linkedlist.List[callback.Callback]{}
		c.isr[irq] = l
	}
	return l
}

// SetISR replaces irq's entire callback list with a single entry.
func (c *Controller) SetISR(irq uint32, cb callback.Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := &linkedlist.List[callback.Callback]{}
	l.PushBack(cb)
	c.isr[irq] = l
}

// AddISR appends cb to irq's callback list.
func (c *Controller) AddISR(irq uint32, cb callback.Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list(irq).PushBack(cb)
}

// DelISR removes the first callback on irq matching cb's
// function/instance pair.
func (c *Controller) DelISR(irq uint32, cb callback.Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.isr[irq]; ok {
		l.RemoveMatch(func(existing callback.Callback) bool {
			return callback.Equal(existing, cb)
		})
	}
}

// ClearISR drops every callback registered for irq.
func (c *Controller) ClearISR(irq uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.isr, irq)
}

// Setup remaps the 8259 PIC into 8086 mode with masters at 0x20 and
// the slave at 0x28, then marks the controller ready for dispatch.
func (c *Controller) Setup() {
	if c.port != nil {
		c.remapPIC()
	}
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	if c.dbg != nil {
		c.dbg.Info("Interrupt setup done!")
	}
}

// Exit clears the ready flag and removes every registered ISR.
func (c *Controller) Exit() {
	c.mu.Lock()
	c.ready = false
	c.isr = make(map[uint32]*linkedlist.List[callback.Callback])
	c.mu.Unlock()
}

func (c *Controller) remapPIC() {
	a1 := c.port.In(pic1Data)
	a2 := c.port.In(pic2Data)

	c.port.Out(pic1Cmd, icw1Init|icw1ICW4)
	c.port.Out(pic2Cmd, icw1Init|icw1ICW4)
	c.port.Out(pic1Data, 0x20)
	c.port.Out(pic2Data, 0x28)
	c.port.Out(pic1Data, 0x04)
	c.port.Out(pic2Data, 0x02)
	c.port.Out(pic1Data, icw4_8086)
	c.port.Out(pic2Data, icw4_8086)

	c.port.Out(pic1Data, a1)
	c.port.Out(pic2Data, a2)
}

// Handler is the single dispatch entry point invoked by the
// low-level trap stub (Handler, not HandleTrap, to mirror the
// original's single Interrupt::handler entry point) with the decoded
// register frame. It fans the IRQ out to every registered callback
// in registration order, logs the register dump for exceptions 0-18,
// and issues EOI for hardware IRQs.
func (c *Controller) Handler(regs Registers) {
	if regs.Irq >= ExceptionFirst && regs.Irq <= ExceptionLast && c.dbg != nil {
		c.dbg.Fields(logrus.ErrorLevel, regs.Fields(), "Exception_Handler")
	}

	c.mu.Lock()
	l, ok := c.isr[regs.Irq]
	var snapshot []callback.Callback
	if ok {
		snapshot = l.Slice()
	}
	c.mu.Unlock()

	for _, cb := range snapshot {
		cb.UserData = regs
		cb.Invoke()
	}

	c.eoi(regs.Irq)
}

func (c *Controller) eoi(irq uint32) {
	if c.port == nil {
		return
	}
	if irq < IRQBase {
		return
	}
	if irq >= pic2Threshold {
		c.port.Out(pic2Cmd, picEOI)
	}
	c.port.Out(pic1Cmd, picEOI)
}
