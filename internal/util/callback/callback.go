// Package callback implements the monomorphic callback record used by
// the ISR table, the timer/workqueue, and the extension registry: a
// function pointer bound to an instance and a user-data pointer, so a
// single dispatcher can fan out to many unrelated receivers without
// generics leaking into the dispatch path.
package callback

// Func is the shape every registered callback takes: the instance it
// was bound to (nil for free functions) and an opaque user-data
// value the binder supplied at registration time.
type Func func(instance any, userData any)

// Callback is one entry in an ordered callback list.
type Callback struct {
	Fn       Func
	Instance any
	UserData any
}

// New builds a Callback bound to instance/userData.
func New(fn Func, instance any, userData any) Callback {
	return Callback{Fn: fn, Instance: instance, UserData: userData}
}

// Invoke calls the callback's function with its bound instance and
// user data. A nil Fn is a no-op, matching the original's
// Option<Function>/Option<Instance> pair that silently skips
// unarmed callbacks.
func (c Callback) Invoke() {
	if c.Fn == nil {
		return
	}
	c.Fn(c.Instance, c.UserData)
}

// Equal reports whether two callbacks were registered with the same
// function and instance (UserData is not compared) — used by del to
// find the entry to remove. Go has no portable way to compare func values, so
// callers that need del must supply an Func built once and reused
// (the standard add/del pairing in this codebase), which compares by
// the function's address.
func Equal(a, b Callback) bool {
	return sameFunc(a.Fn, b.Fn) && a.Instance == b.Instance
}
