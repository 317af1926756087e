// Command village boots the kernel facade against a software-simulated
// board: a no-op port for the PIC remap and PIT, stdout for the Debug
// sink. It is the Go substitute for the original's entry point, which
// runs on real IA-32/Cortex-M hardware and never returns.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/village-kernel/village-go/internal/kernel"
)

// EM_386. The original validates a binary's e_machine field against
// the board's own architecture before accepting it for execution; a
// simulated board fixes the answer at build time.
const emI386 = 3

// simPort is a no-op interrupt.Port: there is no hardware 8259/8254 to
// remap or program, so every out/in is discarded or returns zero.
type simPort struct{}

func (simPort) Out(port uint16, value uint8) {}
func (simPort) In(port uint16) uint8         { return 0 }

func main() {
	memStart := flag.Uint64("mem-start", 0x10000, "simulated SRAM pool start address")
	memSize := flag.Uint64("mem-size", 0x100000, "simulated SRAM pool size in bytes")
	msPerTick := flag.Uint64("ms-per-tick", 10, "scheduler tick period in milliseconds")
	flag.Parse()

	f := kernel.New(kernel.Config{
		Sink:      os.Stdout,
		Port:      simPort{},
		Machine:   emI386,
		MemStart:  uint32(*memStart),
		MemEnd:    uint32(*memStart + *memSize),
		MsPerTick: *msPerTick,
	})

	f.Setup()
	defer f.Exit()

	fmt.Fprintln(os.Stdout, "village kernel up")

	f.Start()
}
