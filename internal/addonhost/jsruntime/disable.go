package jsruntime

import (
	"fmt"

	"github.com/dop251/goja"

	"addonhost/internal/addonhost"
)

// ExtractDisableHandle inspects an entry function's return value for an
// object with a function-typed "disable" member, and if present wraps
// it as an addonhost.DisableHandle. ok is false for any other shape
// (undefined, a bare value, an object with no disable member) — all of
// which are valid, since a returned disable handle is optional.
func ExtractDisableHandle(result goja.Value) (addonhost.DisableHandle, bool) {
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, false
	}
	obj, ok := result.(*goja.Object)
	if !ok {
		return nil, false
	}
	disableFn, ok := goja.AssertFunction(obj.Get("disable"))
	if !ok {
		return nil, false
	}
	return func() error {
		_, err := disableFn(goja.Undefined())
		if err != nil {
			return fmt.Errorf("disable handle failed: %w", err)
		}
		return nil
	}, true
}
