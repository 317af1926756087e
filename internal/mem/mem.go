// Package mem implements the SRAM allocator: a single doubly linked
// map of blocks that hosts both the heap (grow-up) and task stacks
// (grow-down) inside one managed address range.
package mem

import (
	"sync"

	"github.com/pkg/errors"
)

// Align is the byte boundary every size and address is rounded to.
const Align = 4

// headerSize is the number of bytes reserved in front of every heap
// block's payload for its map node (addr, size, prev, next: one 32-bit
// word each).
const headerSize = 16

// ErrOutOfMemory is the value HeapAlloc and StackAlloc panic with when
// no hole of the requested size exists; the allocator never returns
// failure to its callers.
var ErrOutOfMemory = errors.New("sram: out of memory")

// Block is a node in the allocator's map. Its Addr/Size describe the
// memory range it owns; Prev/Next link it into the address-ordered
// list. For a heap block, Addr is the payload address handed to the
// caller and the headerSize bytes just below it are reserved for the
// node. The teacher's arena embeds these nodes inside the managed
// range itself; this rewrite keeps nodes as ordinary Go values and
// treats Addr as an index into the simulated SRAM region.
type Block struct {
	Addr uint32
	Size uint32
	prev *Block
	next *Block
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

func alignDown(v, a uint32) uint32 {
	return v &^ (a - 1)
}

// Allocator is the process-wide SRAM map. The zero value is not
// usable; call New.
type Allocator struct {
	mu sync.Mutex

	sramStart uint32
	sramEnd   uint32
	sramUsed  uint32

	head *Block
	tail *Block
	curr *Block

	initialized bool
}

// New returns an allocator managing [start, end). end must be >
// start; both are rounded per the allocator's alignment rules on
// first use.
func New(start, end uint32) *Allocator {
	return &Allocator{sramStart: start, sramEnd: end}
}

func (a *Allocator) initiate() {
	if a.initialized {
		return
	}

	a.sramStart = alignUp(a.sramStart, Align)
	a.sramEnd = alignDown(a.sramEnd, Align)

	if a.head == nil || a.tail == nil {
		head := &Block{Addr: a.sramStart, Size: 0}
		tail := &Block{Addr: a.sramEnd, Size: 0}
		head.next = tail
		tail.prev = head
		a.head = head
		a.tail = tail
		a.curr = head
	}

	a.initialized = true
}

// HeapAlloc walks forward from the free cursor looking for the first
// hole that fits header+size, wrapping once to head if the forward
// sweep fails. It returns the payload address, just past the block's
// header. It never returns an error to the caller: exhaustion panics
// with ErrOutOfMemory.
func (a *Allocator) HeapAlloc(size uint32) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.heapAllocLocked(size)
}

func (a *Allocator) heapAllocLocked(size uint32) uint32 {
	a.initiate()

	curr := a.curr
	retry := true

	for curr != nil {
		next := curr.next
		if next == nil {
			if retry {
				curr = a.head
				retry = false
				continue
			}
			break
		}

		newAddr := alignUp(curr.Addr+curr.Size, Align) + headerSize
		newSize := alignUp(size, Align)
		end := newAddr + newSize

		if end+headerSize <= next.Addr {
			a.sramUsed += newSize
			node := &Block{Addr: newAddr, Size: newSize, prev: curr, next: next}
			curr.next = node
			next.prev = node
			a.curr = node
			return node.Addr
		}

		curr = next
	}

	panic(ErrOutOfMemory)
}

// StackAlloc walks backward from the tail sentinel for a hole of
// size and returns the base of a down-growing region of size bytes.
// No header bytes are reserved for a stack block. Exhaustion panics
// with ErrOutOfMemory.
func (a *Allocator) StackAlloc(size uint32) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initiate()

	node := &Block{}
	curr := a.tail

	for curr != nil {
		prev := curr.prev
		if prev == nil {
			break
		}

		newSize := alignUp(size, Align)
		newAddr := alignDown(curr.Addr-newSize, Align)

		if newAddr >= prev.Addr+prev.Size {
			a.sramUsed += newSize
			node.Addr = newAddr
			node.Size = newSize
			node.prev = prev
			node.next = curr
			prev.next = node
			curr.prev = node
			a.curr = node
			return node.Addr
		}

		curr = prev
	}

	panic(ErrOutOfMemory)
}

// Free releases the block containing address. size == 0 (or a size
// that leaves a zero-length remainder) splices the node out entirely;
// otherwise the block shrinks by size. Addresses that already sit in
// the gap between two blocks are treated as already released and
// silently ignored.
func (a *Allocator) Free(address, size uint32) {
	if address == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	curr := a.curr
	for curr != nil {
		start := curr.Addr
		end := curr.Addr + curr.Size

		if curr.next != nil {
			nextStart := curr.next.Addr
			if address > end && address < nextStart {
				return
			}
		}

		if address >= start && address < end {
			if size == 0 || curr.Size-size == 0 {
				prev, next := curr.prev, curr.next
				if prev != nil {
					prev.next = next
				}
				if next != nil {
					next.prev = prev
				}
				a.sramUsed -= curr.Size
			} else {
				curr.Size -= size
				a.sramUsed -= size
			}

			if curr.prev != nil {
				a.curr = curr.prev
			} else {
				a.curr = a.head
			}
			return
		}

		if address < curr.Addr {
			curr = curr.prev
		} else {
			curr = curr.next
		}
	}
}

// Size returns the total managed range, end - start.
func (a *Allocator) Size() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sramEnd - a.sramStart
}

// Used returns the sum of live block sizes.
func (a *Allocator) Used() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sramUsed
}

// Cursor returns the address of the free-list cursor node.
func (a *Allocator) Cursor() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.curr == nil {
		return 0
	}
	return a.curr.Addr
}

// Walk calls fn for every block from head to tail in address order,
// for invariant checks and `memory`-command reporting. fn must not
// call back into the allocator.
func (a *Allocator) Walk(fn func(b Block)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for n := a.head; n != nil; n = n.next {
		fn(Block{Addr: n.Addr, Size: n.Size})
	}
}
