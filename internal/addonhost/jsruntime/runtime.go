// Package jsruntime instantiates an addon's main-module source text and
// resolves its entry function. It wraps a pure-Go JS interpreter so the
// host never shells out to Node or a system JS engine to run untrusted
// addon code.
package jsruntime

import (
	"fmt"

	"github.com/dop251/goja"
)

// commonJSPrelude gives addon source a CommonJS-shaped module/exports
// pair to populate, the way a bundler-produced addon bundle expects,
// without pulling in a full module resolver (addons have no imports of
// their own to satisfy — they receive the capability object as their
// only external dependency).
const commonJSPrelude = `
(function(module, exports) {
%s
})
`

// Module is an instantiated addon main file, ready for entry resolution.
type Module struct {
	rt      *goja.Runtime
	exports *goja.Object
}

// Instantiate evaluates source as a CommonJS-style module body and
// returns the resulting module.exports object. The runtime is
// single-use: one Module per addon load, discarded after the entry
// function returns, so addons never share interpreter state.
func Instantiate(addonID, source string) (*Module, error) {
	rt := goja.New()
	rt.SetFieldNameMapper(goja.UncapFieldNameMapper())

	wrapperVal, err := rt.RunString(fmt.Sprintf(commonJSPrelude, source))
	if err != nil {
		return nil, &ErrCompileFailed{AddonID: addonID, Cause: err}
	}
	wrapper, ok := goja.AssertFunction(wrapperVal)
	if !ok {
		return nil, &ErrCompileFailed{AddonID: addonID, Cause: fmt.Errorf("module wrapper did not evaluate to a function")}
	}

	moduleObj := rt.NewObject()
	exportsObj := rt.NewObject()
	if err := moduleObj.Set("exports", exportsObj); err != nil {
		return nil, &ErrCompileFailed{AddonID: addonID, Cause: err}
	}

	if _, err := wrapper(goja.Undefined(), moduleObj, exportsObj); err != nil {
		return nil, &ErrCompileFailed{AddonID: addonID, Cause: err}
	}

	finalExports, ok := moduleObj.Get("exports").(*goja.Object)
	if !ok {
		return nil, &ErrCompileFailed{AddonID: addonID, Cause: fmt.Errorf("module.exports is not an object after evaluation")}
	}

	return &Module{rt: rt, exports: finalExports}, nil
}

// Invoke resolves the module's entry function per the decision table
// and calls it with capObj (typically a *capability.Object wrapped via
// the runtime's Go-value bridging). The raw JS return value is handed
// back unconverted; the loader decides what, if anything, to do with it
// (e.g. extracting a disable handle).
func (m *Module) Invoke(addonID string, capObj any) (EntryKind, goja.Value, error) {
	kind, entry, err := ResolveEntry(addonID, m.rt, m.exports)
	if err != nil {
		return 0, nil, err
	}

	result, err := entry(goja.Undefined(), m.rt.ToValue(capObj))
	if err != nil {
		return kind, nil, fmt.Errorf("addon %s: entry function failed: %w", addonID, err)
	}
	return kind, result, nil
}

// Runtime returns the underlying goja runtime, for converting Go values
// in and out of the module's JS context (e.g. extracting a disable
// handle from the entry function's return value).
func (m *Module) Runtime() *goja.Runtime { return m.rt }
