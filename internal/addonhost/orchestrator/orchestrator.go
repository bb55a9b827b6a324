// Package orchestrator is the Entry Orchestrator: the top-level
// coordinator that chooses "load installed" vs. "dev mode then
// installed" at startup, and exposes the whole-host reload-all /
// unload-all / debug-state operations a host process calls at its own
// boundaries (signal handling, an admin endpoint, a CLI command).
package orchestrator

import (
	"time"

	"github.com/dustin/go-humanize"

	"addonhost/internal/addonhost"
	"addonhost/internal/addonhost/devmanager"
	"addonhost/internal/addonhost/hostlog"
	"addonhost/internal/addonhost/loader"
	"addonhost/internal/addonhost/registry"
)

// Orchestrator wires together the Loader, the (optional) Dev Manager,
// and the Registry. It owns no addon state of its own — everything it
// reports comes from those three collaborators.
type Orchestrator struct {
	loader   *loader.Loader
	devMgr   *devmanager.Manager // nil when dev mode is disabled
	registry *registry.Registry
	log      hostlog.Logger
}

// New constructs an Orchestrator. devMgr may be nil; every operation
// then runs installed-addon-only, matching the non-dev-mode policy
// from the dev-mode-first startup ordering.
func New(l *loader.Loader, devMgr *devmanager.Manager, reg *registry.Registry, log hostlog.Logger) *Orchestrator {
	if log == nil {
		log = hostlog.New("orchestrator")
	}
	return &Orchestrator{loader: l, devMgr: devMgr, registry: reg, log: log}
}

// LoadAll runs the startup sequence: when a Dev Manager is configured,
// its discovery (and poll loop) starts first, then every installed addon
// is loaded. The Loader does not consult the Dev Manager's loaded ids, so
// an installed addon that is also served by a dev server is loaded as
// well; where both copies register the same nav item id or route path,
// the installed copy, registered later, replaces the dev one.
func (o *Orchestrator) LoadAll() {
	if o.devMgr != nil {
		o.log.Info("dev mode enabled, starting dev manager before installed addons")
		o.devMgr.Start()
	}
	o.loader.LoadAll()
}

// ReloadAll reloads every currently loaded addon — installed ones first,
// re-discovered from the store, then dev-sourced ones. The installed
// reload ends its unload phase with a full Registry teardown, which also
// removes the dev addons' contributions; reloading the dev addons after
// it restores them.
func (o *Orchestrator) ReloadAll() {
	o.loader.ReloadAll()
	if o.devMgr != nil {
		o.devMgr.ReloadAll()
	}
}

// UnloadAll stops the Dev Manager's poll loop (if running) and unloads
// every addon, dev-sourced and installed.
func (o *Orchestrator) UnloadAll() {
	if o.devMgr != nil {
		o.devMgr.Stop()
		o.devMgr.UnloadAll()
	}
	o.loader.UnloadAll()
}

// AddonState is one row of DebugState's per-addon report.
type AddonState struct {
	ID        string
	Source    addonhost.Source
	LoadedAgo string // e.g. "3 minutes ago"
	DevOrigin string // set only for Source == SourceDev
}

// DebugState is a point-in-time snapshot of the host's addon state,
// meant for an operator or a "what's loaded" diagnostic surface.
type DebugState struct {
	Addons       []AddonState
	NavItemCount int
	RouteCount   int
	DevServers   []addonhost.DevServer
}

// DebugState reports every currently loaded addon, the registry's
// current nav/route footprint, and (when dev mode is on) the discovered
// dev server table.
func (o *Orchestrator) DebugState() DebugState {
	now := time.Now().UTC()

	addons := make([]AddonState, 0)
	for _, la := range o.loader.Loaded() {
		addons = append(addons, toAddonState(la, now))
	}

	var devServers []addonhost.DevServer
	if o.devMgr != nil {
		for _, la := range o.devMgr.Loaded() {
			addons = append(addons, toAddonState(la, now))
		}
		devServers = o.devMgr.Servers()
	}

	snap := o.registry.Snapshot()
	return DebugState{
		Addons:       addons,
		NavItemCount: len(snap.NavItems),
		RouteCount:   len(snap.Routes),
		DevServers:   devServers,
	}
}

func toAddonState(la addonhost.LoadedAddon, now time.Time) AddonState {
	return AddonState{
		ID:        la.ID,
		Source:    la.Source,
		LoadedAgo: humanize.Time(la.LastLoadedAt),
		DevOrigin: la.DevOrigin,
	}
}
