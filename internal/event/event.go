// Package event implements the kernel's Event capability
// (vk_event.rs): input device registration. The original leaves the
// body empty beyond a debug line; Go keeps the same shape since input
// drivers are external collaborators like the console.
package event

import "github.com/village-kernel/village-go/internal/debug"

// Event is the kernel's Event capability.
type Event struct {
	dbg *debug.Debug
}

// New returns an Event.
func New(dbg *debug.Debug) *Event {
	return &Event{dbg: dbg}
}

// Setup logs readiness.
func (e *Event) Setup() {
	if e.dbg != nil {
		e.dbg.Info("Input event setup completed!")
	}
}

// Exit has nothing to release.
func (e *Event) Exit() {}

// InitInputDevice is reserved for a future input-device capability;
// the original leaves it unimplemented.
func (e *Event) InitInputDevice(input string) {}

// ExitInputDevice is reserved for a future input-device capability;
// the original leaves it unimplemented.
func (e *Event) ExitInputDevice(input string) {}
