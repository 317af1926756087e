// Package observer implements the generic subject/observer used for
// device hotplug notifications.
package observer

import (
	"github.com/village-kernel/village-go/internal/util/callback"
	"github.com/village-kernel/village-go/internal/util/linkedlist"
)

// Subject holds an ordered set of observer callbacks and notifies
// them in attach order.
type Subject struct {
	observers linkedlist.List[callback.Callback]
}

// Attach registers cb to be invoked on every Notify.
func (s *Subject) Attach(cb callback.Callback) {
	s.observers.PushBack(cb)
}

// Detach removes the first observer matching cb's function/instance
// pair.
func (s *Subject) Detach(cb callback.Callback) {
	s.observers.RemoveMatch(func(existing callback.Callback) bool {
		return callback.Equal(existing, cb)
	})
}

// Notify invokes every attached observer with data as its user-data
// argument, in attach order.
func (s *Subject) Notify(data any) {
	s.observers.Each(func(cb callback.Callback) {
		cb.UserData = data
		cb.Invoke()
	})
}

// Clear removes every observer.
func (s *Subject) Clear() {
	s.observers.Clear()
}
