// Package protocol implements the kernel's Protocol capability
// (vk_protocol.rs): a named registration slot for network protocol
// stacks. spec.md's Non-goals exclude a real network stack, not this
// slot — nothing beyond register/unregister/find is implemented.
package protocol

import (
	"sync"

	"github.com/village-kernel/village-go/internal/debug"
)

// Stack is the opaque handle a registered protocol stack provides;
// the registry never calls into it, matching the original's
// behaviorless registration.
type Stack any

// Registry is the kernel's Protocol capability.
type Registry struct {
	mu     sync.Mutex
	stacks map[string]Stack
	dbg    *debug.Debug
}

// New returns an empty Registry.
func New(dbg *debug.Debug) *Registry {
	return &Registry{stacks: make(map[string]Stack), dbg: dbg}
}

// Setup logs readiness.
func (r *Registry) Setup() {
	if r.dbg != nil {
		r.dbg.Info("Protocol setup done!")
	}
}

// Exit clears every registered stack.
func (r *Registry) Exit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stacks = make(map[string]Stack)
}

// RegisterStack adds stack under name.
func (r *Registry) RegisterStack(name string, stack Stack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stacks[name] = stack
}

// UnregisterStack removes name.
func (r *Registry) UnregisterStack(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stacks, name)
}

// GetStack returns the stack registered under name.
func (r *Registry) GetStack(name string) (Stack, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stacks[name]
	return s, ok
}
