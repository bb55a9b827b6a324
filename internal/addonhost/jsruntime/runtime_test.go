package jsruntime

import (
	"testing"
)

type fakeCapability struct {
	Registered []string
}

func (c *fakeCapability) Note(s string) {
	c.Registered = append(c.Registered, s)
}

func TestInstantiateAndInvokeDefaultFunc(t *testing.T) {
	mod, err := Instantiate("a", `
		module.exports.default = function(cap) { cap.note("default-func"); };
	`)
	if err != nil {
		t.Fatal(err)
	}
	cap := &fakeCapability{}
	kind, _, err := mod.Invoke("a", cap)
	if err != nil {
		t.Fatal(err)
	}
	if kind != EntryDefaultFunc {
		t.Errorf("expected EntryDefaultFunc, got %s", kind)
	}
	if len(cap.Registered) != 1 || cap.Registered[0] != "default-func" {
		t.Errorf("entry function did not observe capability call: %+v", cap.Registered)
	}
}

func TestInvokeDefaultObjectEnable(t *testing.T) {
	mod, err := Instantiate("a", `
		module.exports.default = { enable: function(cap) { cap.note("default-obj-enable"); } };
	`)
	if err != nil {
		t.Fatal(err)
	}
	cap := &fakeCapability{}
	kind, _, err := mod.Invoke("a", cap)
	if err != nil {
		t.Fatal(err)
	}
	if kind != EntryDefaultObjectEnable {
		t.Errorf("expected EntryDefaultObjectEnable, got %s", kind)
	}
}

func TestInvokeNamedEnable(t *testing.T) {
	mod, err := Instantiate("a", `
		module.exports.enable = function(cap) { cap.note("named-enable"); };
	`)
	if err != nil {
		t.Fatal(err)
	}
	cap := &fakeCapability{}
	kind, _, err := mod.Invoke("a", cap)
	if err != nil {
		t.Fatal(err)
	}
	if kind != EntryNamedEnable {
		t.Errorf("expected EntryNamedEnable, got %s", kind)
	}
}

func TestInvokeConventionalClass(t *testing.T) {
	mod, err := Instantiate("a", `
		module.exports.Addon = function(cap) { cap.note("conventional-class"); };
	`)
	if err != nil {
		t.Fatal(err)
	}
	cap := &fakeCapability{}
	kind, _, err := mod.Invoke("a", cap)
	if err != nil {
		t.Fatal(err)
	}
	if kind != EntryConventionalClass {
		t.Errorf("expected EntryConventionalClass, got %s", kind)
	}
}

func TestInvokeModuleItselfCallable(t *testing.T) {
	mod, err := Instantiate("a", `
		module.exports = function(cap) { cap.note("module-callable"); };
	`)
	if err != nil {
		t.Fatal(err)
	}
	cap := &fakeCapability{}
	kind, _, err := mod.Invoke("a", cap)
	if err != nil {
		t.Fatal(err)
	}
	if kind != EntryModuleCallable {
		t.Errorf("expected EntryModuleCallable, got %s", kind)
	}
}

func TestEntryResolutionFailsWithNoRecognizedShape(t *testing.T) {
	mod, err := Instantiate("a", `
		module.exports.somethingElse = 42;
	`)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = mod.Invoke("a", &fakeCapability{})
	if err == nil {
		t.Fatal("expected entry resolution error")
	}
	if _, ok := err.(*ErrEntryResolutionFailed); !ok {
		t.Errorf("expected *ErrEntryResolutionFailed, got %T: %v", err, err)
	}
}

func TestResolutionOrderPrefersDefaultFuncOverNamedEnable(t *testing.T) {
	mod, err := Instantiate("a", `
		module.exports.default = function(cap) { cap.note("default-wins"); };
		module.exports.enable = function(cap) { cap.note("enable-loses"); };
	`)
	if err != nil {
		t.Fatal(err)
	}
	cap := &fakeCapability{}
	kind, _, err := mod.Invoke("a", cap)
	if err != nil {
		t.Fatal(err)
	}
	if kind != EntryDefaultFunc {
		t.Errorf("expected default export to win over named enable, got %s", kind)
	}
	if len(cap.Registered) != 1 || cap.Registered[0] != "default-wins" {
		t.Errorf("expected only default-wins to run, got %+v", cap.Registered)
	}
}

func TestExtractDisableHandleFromReturnedObject(t *testing.T) {
	mod, err := Instantiate("a", `
		var disableCalled = false;
		module.exports.default = function(cap) {
			return { disable: function() { disableCalled = true; } };
		};
		module.exports.__wasDisableCalled = function() { return disableCalled; };
	`)
	if err != nil {
		t.Fatal(err)
	}
	_, result, err := mod.Invoke("a", &fakeCapability{})
	if err != nil {
		t.Fatal(err)
	}
	handle, ok := ExtractDisableHandle(result)
	if !ok {
		t.Fatal("expected a disable handle to be extracted")
	}
	if err := handle(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractDisableHandleAbsent(t *testing.T) {
	mod, err := Instantiate("a", `
		module.exports.default = function(cap) { return 42; };
	`)
	if err != nil {
		t.Fatal(err)
	}
	_, result, err := mod.Invoke("a", &fakeCapability{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ExtractDisableHandle(result); ok {
		t.Error("expected no disable handle for a non-object return value")
	}
}
