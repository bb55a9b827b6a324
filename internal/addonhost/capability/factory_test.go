package capability

import (
	"testing"

	"addonhost/internal/addonhost/hostapi"
	"addonhost/internal/addonhost/hostlog"
	"addonhost/internal/addonhost/registry"
	"addonhost/internal/events"
)

type memSecretStore struct {
	data map[string]string
}

func newMemSecretStore() *memSecretStore { return &memSecretStore{data: map[string]string{}} }

func (m *memSecretStore) Set(key, value string) error { m.data[key] = value; return nil }
func (m *memSecretStore) Get(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}
func (m *memSecretStore) Delete(key string) error { delete(m.data, key); return nil }

func TestNewBuildsIndependentObjectsPerCall(t *testing.T) {
	reg := registry.New(nil)
	store := newMemSecretStore()
	fns := hostapi.NewStubFunctions(events.NewBus())

	objA := New("a", reg, fns, hostlog.New("test"), store)
	objB := New("a", reg, fns, hostlog.New("test"), store)

	if objA == objB {
		t.Fatal("expected distinct capability objects across calls")
	}
	if objA.Api == objB.Api {
		t.Fatal("expected a fresh Bridge per call, not a shared one")
	}
}

func TestSidebarAndRouterDelegateToRegistryWithOwner(t *testing.T) {
	reg := registry.New(nil)
	obj := New("tracker", reg, hostapi.NewStubFunctions(nil), hostlog.New("test"), newMemSecretStore())

	obj.Sidebar.AddItem(SidebarConfig{Id: "t1", Label: "Track"})
	obj.Router.Add(RouteConfig{Path: "/track", Component: "TrackView"})

	snap := reg.Snapshot()
	if len(snap.NavItems) != 1 || snap.NavItems[0].ID != "t1" {
		t.Fatalf("expected nav item t1, got %+v", snap.NavItems)
	}
	if snap.Owners["t1"] != "tracker" || snap.Owners["/track"] != "tracker" {
		t.Fatalf("expected owner tracker, got %+v", snap.Owners)
	}
}

func TestOnDisableRegistersAgainstOwningAddon(t *testing.T) {
	reg := registry.New(nil)
	obj := New("tracker", reg, hostapi.NewStubFunctions(nil), hostlog.New("test"), newMemSecretStore())

	called := false
	obj.OnDisable(func() error {
		called = true
		return nil
	})

	reg.TeardownAddon("tracker")

	if !called {
		t.Error("expected onDisable thunk to run on teardown")
	}
}

func TestSecretsAreScopedToAddonID(t *testing.T) {
	reg := registry.New(nil)
	store := newMemSecretStore()
	fns := hostapi.NewStubFunctions(nil)

	a := New("A", reg, fns, hostlog.New("test"), store)
	b := New("B", reg, fns, hostlog.New("test"), store)

	a.Secrets.Set("token", "alpha")
	b.Secrets.Set("token", "beta")

	av, _, _ := a.Secrets.Get("token")
	bv, _, _ := b.Secrets.Get("token")
	if av != "alpha" || bv != "beta" {
		t.Fatalf("expected isolated secrets, got a=%q b=%q", av, bv)
	}
	if _, ok := store.data["addon_A_token"]; !ok {
		t.Error("expected underlying key addon_A_token")
	}
	if _, ok := store.data["addon_B_token"]; !ok {
		t.Error("expected underlying key addon_B_token")
	}
}
