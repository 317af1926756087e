package callback

import "reflect"

// sameFunc compares two Func values by underlying code pointer. Go
// func values aren't comparable with ==, so identity-based dedup (as
// del_isr/del_timer need) goes through reflect, same approach the
// standard library's testing/quick and several corpus projects use
// when they need func identity rather than func equality.
func sameFunc(a, b Func) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
