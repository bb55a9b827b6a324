// Package loader discovers, validates, enables, and unloads addons
// whose packages already reside in persistent storage. It is the
// installed-addon half of the addon host; devmanager is its dev-server
// peer and shares its capability-construction and entry-resolution
// machinery.
package loader

import (
	"time"

	"addonhost/internal/addonhost"
	"addonhost/internal/addonhost/addonerrors"
	"addonhost/internal/addonhost/capability"
	"addonhost/internal/addonhost/hostapi"
	"addonhost/internal/addonhost/hostlog"
	"addonhost/internal/addonhost/jsruntime"
	"addonhost/internal/addonhost/registry"
	"addonhost/internal/addonhost/secretns"
)

// Store lists the addon bundles installed in persistent storage. The
// concrete implementation is addonstore.Store; the Loader depends only
// on this narrow contract so it can be tested with a fake.
type Store interface {
	List() ([]addonhost.Bundle, error)
}

// Loader implements the discover/filter/validate/load/unload sequence
// for installed addons.
type Loader struct {
	store       Store
	registry    *registry.Registry
	functions   hostapi.Functions
	secretStore secretns.Store
	log         hostlog.Logger
	reporter    *addonerrors.Reporter
	sdkVersion  string
	checker     Checker

	loaded  map[string]*addonhost.LoadedAddon
	bridges map[string]*hostapi.Bridge
}

// New constructs a Loader. checker may be nil, in which case
// LenientChecker is used as the default policy.
func New(store Store, reg *registry.Registry, fns hostapi.Functions, secretStore secretns.Store, log hostlog.Logger, reporter *addonerrors.Reporter, sdkVersion string, checker Checker) *Loader {
	if log == nil {
		log = hostlog.New("loader")
	}
	if checker == nil {
		checker = LenientChecker{}
	}
	return &Loader{
		store:       store,
		registry:    reg,
		functions:   fns,
		secretStore: secretStore,
		log:         log,
		reporter:    reporter,
		sdkVersion:  sdkVersion,
		checker:     checker,
		loaded:      make(map[string]*addonhost.LoadedAddon),
		bridges:     make(map[string]*hostapi.Bridge),
	}
}

// LoadedIDs returns the ids currently loaded in this session.
func (l *Loader) LoadedIDs() []string {
	ids := make([]string, 0, len(l.loaded))
	for id := range l.loaded {
		ids = append(ids, id)
	}
	return ids
}

// IsLoaded reports whether id is currently loaded in this session.
func (l *Loader) IsLoaded(id string) bool {
	_, ok := l.loaded[id]
	return ok
}

// Loaded returns a snapshot of every installed addon loaded in this
// session, for inspection (e.g. orchestrator.DebugState).
func (l *Loader) Loaded() []addonhost.LoadedAddon {
	out := make([]addonhost.LoadedAddon, 0, len(l.loaded))
	for _, la := range l.loaded {
		out = append(out, *la)
	}
	return out
}

// LoadAll discovers installed addons, filters out disabled ones, and
// loads each remaining bundle. Per-addon failure is logged and
// isolated — it never aborts the batch.
func (l *Loader) LoadAll() {
	bundles, err := l.store.List()
	if err != nil {
		l.log.Error("discover installed addons: %v", &addonerrors.DiscoveryError{Cause: err})
		return
	}

	for _, bundle := range bundles {
		if !bundle.Manifest.Enabled {
			l.log.Info("addon %s disabled, skipping", bundle.Manifest.ID)
			continue
		}
		l.Load(bundle)
	}
}

// Load enables a single bundle. A duplicate load (id already loaded in
// this session) is logged and skipped — treated as success, per
// DuplicateLoadError's stated semantics.
func (l *Loader) Load(bundle addonhost.Bundle) {
	id := bundle.Manifest.ID

	if l.IsLoaded(id) {
		l.log.Warn("%v", &addonerrors.DuplicateLoadError{AddonID: id})
		return
	}

	l.checker.Check(l.log, id, bundle.Manifest.SDKVersion, l.sdkVersion)

	mainFile, ok := bundle.MainFile()
	if !ok {
		l.log.Error("%v", &addonerrors.MissingMainFileError{AddonID: id})
		return
	}

	module, err := jsruntime.Instantiate(id, mainFile.Content)
	if err != nil {
		l.log.Error("%v", &addonerrors.EntryResolutionError{AddonID: id, Cause: err})
		return
	}

	capObj := capability.New(id, l.registry, l.functions, l.log, l.secretStore)

	_, result, err := module.Invoke(id, capObj)
	if err != nil {
		enableErr := &addonerrors.EnableError{AddonID: id, Cause: err}
		l.log.Error("%v", enableErr)
		if l.reporter != nil {
			l.reporter.ReportEnableFailure(id, enableErr)
		}
		capObj.Api.Close()
		l.registry.TeardownAddon(id)
		return
	}

	disableHandle, _ := jsruntime.ExtractDisableHandle(result)

	l.loaded[id] = &addonhost.LoadedAddon{
		ID:            id,
		DisableHandle: disableHandle,
		Source:        addonhost.SourceInstalled,
		LastLoadedAt:  time.Now().UTC(),
	}
	l.bridges[id] = capObj.Api
}

// Unload invokes id's disable handle (if any), tears down its registry
// contributions, closes its bridge's tracked event subscriptions, and
// forgets it.
func (l *Loader) Unload(id string) {
	loaded, ok := l.loaded[id]
	if !ok {
		return
	}

	if loaded.DisableHandle != nil {
		if err := loaded.DisableHandle(); err != nil {
			l.log.Error("%v", &addonerrors.DisableError{AddonID: id, Cause: err})
		}
	}

	if bridge, ok := l.bridges[id]; ok {
		bridge.Close()
		delete(l.bridges, id)
	}

	l.registry.TeardownAddon(id)
	delete(l.loaded, id)
}

// ReloadAll unloads every installed addon currently loaded, then
// re-discovers and reloads from the store — picking up manifest or
// enabled-flag changes made while the host was running.
func (l *Loader) ReloadAll() {
	l.UnloadAll()
	l.LoadAll()
}

// UnloadAll unloads every addon loaded in this session, then tears down
// the Registry in full so no owner-less contributions remain.
func (l *Loader) UnloadAll() {
	for id := range l.loaded {
		l.Unload(id)
	}
	l.registry.TeardownAll()
}
