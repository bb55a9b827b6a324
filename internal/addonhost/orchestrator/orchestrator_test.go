package orchestrator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"addonhost/internal/addonhost"
	"addonhost/internal/addonhost/addonerrors"
	"addonhost/internal/addonhost/devmanager"
	"addonhost/internal/addonhost/hostapi"
	"addonhost/internal/addonhost/loader"
	"addonhost/internal/addonhost/registry"
	"addonhost/internal/events"
)

type fakeStore struct {
	bundles []addonhost.Bundle
}

func (s *fakeStore) List() ([]addonhost.Bundle, error) { return s.bundles, nil }

func installedBundle(id, src string) addonhost.Bundle {
	return addonhost.Bundle{
		Manifest: addonhost.Manifest{ID: id, Name: id, Version: "1.0.0", SDKVersion: "1.0.0", Enabled: true},
		Files:    []addonhost.File{{Name: "index.js", Content: src, IsMain: true}},
	}
}

// devAddonServer stands in for a developer's live HTTP origin: /health,
// /manifest.json, and /addon.js, per the dev server contract.
func devAddonServer(t *testing.T, addonID, src string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(addonhost.Manifest{ID: addonID, Name: addonID, Version: "1.0.0", SDKVersion: "1.0.0", Enabled: true})
	})
	mux.HandleFunc("/addon.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(src))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOrchestrator(t *testing.T, installed loader.Store, withDevServer *httptest.Server) (*Orchestrator, *registry.Registry) {
	t.Helper()
	reg := registry.New(nil)
	fns := hostapi.NewStubFunctions(events.NewBus())
	l := loader.New(installed, reg, fns, nil, nil, nil, "1.0.0", nil)

	var dm *devmanager.Manager
	if withDevServer != nil {
		port := portOf(t, withDevServer.URL)
		cfg := devmanager.Config{Enabled: true, Ports: []int{port}, PollInterval: time.Hour, RequestTimeout: time.Second}
		dm = devmanager.New(cfg, reg, fns, nil, nil, addonerrors.NewReporter(nil), "1.0.0")
	}

	return New(l, dm, reg, nil), reg
}

func portOf(t *testing.T, rawURL string) int {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	return port
}

func TestLoadAllLoadsInstalledAddonsOnly(t *testing.T) {
	src := `module.exports.default = function(cap) { cap.sidebar.addItem({id: "i1"}); };`
	o, reg := newTestOrchestrator(t, &fakeStore{bundles: []addonhost.Bundle{installedBundle("a", src)}}, nil)

	o.LoadAll()

	state := o.DebugState()
	if len(state.Addons) != 1 || state.Addons[0].ID != "a" {
		t.Fatalf("expected installed addon a loaded, got %+v", state.Addons)
	}
	if state.Addons[0].Source != addonhost.SourceInstalled {
		t.Errorf("expected SourceInstalled, got %v", state.Addons[0].Source)
	}
	if len(reg.Snapshot().NavItems) != 1 {
		t.Errorf("expected nav item registered, got %+v", reg.Snapshot().NavItems)
	}
}

func TestLoadAllWithDevModeLoadsBothSources(t *testing.T) {
	devSrc := `module.exports.default = function(cap) { cap.sidebar.addItem({id: "dev-item"}); };`
	srv := devAddonServer(t, "dev-addon", devSrc)

	installedSrc := `module.exports.default = function(cap) { cap.sidebar.addItem({id: "installed-item"}); };`
	o, _ := newTestOrchestrator(t, &fakeStore{bundles: []addonhost.Bundle{installedBundle("installed-addon", installedSrc)}}, srv)

	o.LoadAll()
	defer o.UnloadAll()

	state := o.DebugState()
	if len(state.Addons) != 2 {
		t.Fatalf("expected both installed and dev addons loaded, got %+v", state.Addons)
	}
	if state.NavItemCount != 2 {
		t.Errorf("expected 2 nav items, got %d", state.NavItemCount)
	}
}

func TestUnloadAllTearsDownEverything(t *testing.T) {
	src := `module.exports.default = function(cap) { cap.sidebar.addItem({id: "i1"}); };`
	o, reg := newTestOrchestrator(t, &fakeStore{bundles: []addonhost.Bundle{installedBundle("a", src)}}, nil)

	o.LoadAll()
	o.UnloadAll()

	state := o.DebugState()
	if len(state.Addons) != 0 {
		t.Errorf("expected no addons loaded after UnloadAll, got %+v", state.Addons)
	}
	if len(reg.Snapshot().NavItems) != 0 {
		t.Errorf("expected registry torn down, got %+v", reg.Snapshot().NavItems)
	}
}

func TestReloadAllRestoresInstalledAddons(t *testing.T) {
	src := `module.exports.default = function(cap) { cap.sidebar.addItem({id: "i1"}); };`
	o, reg := newTestOrchestrator(t, &fakeStore{bundles: []addonhost.Bundle{installedBundle("a", src)}}, nil)

	o.LoadAll()
	o.ReloadAll()

	state := o.DebugState()
	if len(state.Addons) != 1 {
		t.Fatalf("expected addon still loaded after ReloadAll, got %+v", state.Addons)
	}
	if len(reg.Snapshot().NavItems) != 1 {
		t.Errorf("expected exactly one nav item post-reload (no duplicate), got %+v", reg.Snapshot().NavItems)
	}
}

func TestDebugStateReportsDevServers(t *testing.T) {
	devSrc := `module.exports.default = function(cap) {};`
	srv := devAddonServer(t, "dev-addon", devSrc)

	o, _ := newTestOrchestrator(t, &fakeStore{}, srv)
	o.LoadAll()
	defer o.UnloadAll()

	state := o.DebugState()
	if len(state.DevServers) != 1 {
		t.Fatalf("expected 1 discovered dev server, got %+v", state.DevServers)
	}
	if state.DevServers[0].AddonID != "dev-addon" {
		t.Errorf("expected dev-addon, got %q", state.DevServers[0].AddonID)
	}
}
