package jsruntime

import "github.com/dop251/goja"

// EntryKind tags which of the five recognized entry-point shapes a
// module's exports matched. The resolver always returns one of these
// (or an error), never a chain of ad-hoc probes scattered through the
// loader.
type EntryKind int

const (
	EntryDefaultFunc EntryKind = iota
	EntryDefaultObjectEnable
	EntryNamedEnable
	EntryConventionalClass
	EntryModuleCallable
)

func (k EntryKind) String() string {
	switch k {
	case EntryDefaultFunc:
		return "default-export-function"
	case EntryDefaultObjectEnable:
		return "default-export-object-enable"
	case EntryNamedEnable:
		return "named-export-enable"
	case EntryConventionalClass:
		return "conventional-class-export"
	case EntryModuleCallable:
		return "module-itself-callable"
	default:
		return "unknown"
	}
}

// conventionalClassNames is the small allow-list of exported symbol
// names the resolver treats as an addon class when no other shape
// matches. Kept short and explicit rather than guessing by convention
// (e.g. "exported identifier starting with a capital letter").
var conventionalClassNames = []string{"Addon", "Plugin", "Extension"}

// entryTable is the ordered decision table the resolver walks. Ordering
// is the contract: the first matching row wins.
var entryTable = []struct {
	kind  EntryKind
	match func(rt *goja.Runtime, exports *goja.Object) (goja.Callable, bool)
}{
	{EntryDefaultFunc, matchDefaultFunc},
	{EntryDefaultObjectEnable, matchDefaultObjectEnable},
	{EntryNamedEnable, matchNamedEnable},
	{EntryConventionalClass, matchConventionalClass},
	{EntryModuleCallable, matchModuleCallable},
}

// ResolveEntry walks the decision table against a module's exports
// object and returns the first matching shape as a directly callable
// goja.Callable, tagged with which shape matched.
func ResolveEntry(addonID string, rt *goja.Runtime, exports *goja.Object) (EntryKind, goja.Callable, error) {
	for _, row := range entryTable {
		if fn, ok := row.match(rt, exports); ok {
			return row.kind, fn, nil
		}
	}
	return 0, nil, &ErrEntryResolutionFailed{AddonID: addonID}
}

func matchDefaultFunc(rt *goja.Runtime, exports *goja.Object) (goja.Callable, bool) {
	def := exports.Get("default")
	if def == nil {
		return nil, false
	}
	return goja.AssertFunction(def)
}

func matchDefaultObjectEnable(rt *goja.Runtime, exports *goja.Object) (goja.Callable, bool) {
	def := exports.Get("default")
	if def == nil {
		return nil, false
	}
	obj, ok := def.(*goja.Object)
	if !ok {
		return nil, false
	}
	return goja.AssertFunction(obj.Get("enable"))
}

func matchNamedEnable(rt *goja.Runtime, exports *goja.Object) (goja.Callable, bool) {
	enable := exports.Get("enable")
	if enable == nil {
		return nil, false
	}
	return goja.AssertFunction(enable)
}

func matchConventionalClass(rt *goja.Runtime, exports *goja.Object) (goja.Callable, bool) {
	for _, name := range conventionalClassNames {
		candidate := exports.Get(name)
		if candidate == nil {
			continue
		}
		if fn, ok := goja.AssertFunction(candidate); ok {
			return fn, true
		}
	}
	return nil, false
}

func matchModuleCallable(rt *goja.Runtime, exports *goja.Object) (goja.Callable, bool) {
	return goja.AssertFunction(exports)
}
