// Package capability builds the single object passed into an addon's
// entry function. Every call to New produces a fresh record — no
// capability object is ever cached or shared across addons, per the
// invariant that secret namespacing and logger prefixing depend on.
package capability

import (
	"addonhost/internal/addonhost"
	"addonhost/internal/addonhost/hostapi"
	"addonhost/internal/addonhost/hostlog"
	"addonhost/internal/addonhost/registry"
	"addonhost/internal/addonhost/secretns"
)

// SidebarConfig is the argument shape for sidebar.addItem. Field names
// use the Id/Api spelling goja's UncapFieldNameMapper needs to produce
// the addon-facing camelCase keys (id, label, ...) — ID/API would map
// to "iD"/"aPI" instead, since the mapper only lowercases the leading
// rune.
type SidebarConfig struct {
	Id      string
	Label   string
	Icon    string
	Route   string
	Order   int
	OnClick string
}

// Sidebar is the sidebar mutator surface.
type Sidebar struct {
	reg     *registry.Registry
	addonID string
}

// AddItem registers a nav item and returns its RemoveHandle.
func (s Sidebar) AddItem(cfg SidebarConfig) registry.RemoveHandle {
	return s.reg.AddSidebarItem(s.addonID, addonhost.NavItem{
		ID:      cfg.Id,
		Title:   cfg.Label,
		Icon:    cfg.Icon,
		Route:   cfg.Route,
		Order:   cfg.Order,
		OnClick: cfg.OnClick,
	})
}

// RouteConfig is the argument shape for router.add.
type RouteConfig struct {
	Path      string
	Component string
}

// Router is the router mutator surface.
type Router struct {
	reg     *registry.Registry
	addonID string
}

// Add registers a route. A later call for the same path replaces an
// earlier one.
func (r Router) Add(cfg RouteConfig) {
	r.reg.AddRoute(r.addonID, addonhost.RouteEntry{
		Path:      cfg.Path,
		Component: cfg.Component,
	})
}

// Object is the capability record an addon's entry function receives.
// Api (not API) for the same field-name-mapper reason as SidebarConfig.
type Object struct {
	Sidebar   Sidebar
	Router    Router
	OnDisable func(thunk func() error)
	Api       *hostapi.Bridge
	Secrets   *secretns.Namespace
}

// New assembles a fresh capability Object for addonID. fns and log are
// the shared, process-wide collaborators (the bridge adds the addon-id
// prefix to log lines itself); reg and secretStore are likewise shared,
// but everything this function returns is specific to this one addon
// and this one call.
func New(addonID string, reg *registry.Registry, fns hostapi.Functions, log hostlog.Logger, secretStore secretns.Store) *Object {
	return &Object{
		Sidebar: Sidebar{reg: reg, addonID: addonID},
		Router:  Router{reg: reg, addonID: addonID},
		OnDisable: func(thunk func() error) {
			reg.RegisterDisable(addonID, thunk)
		},
		Api:     hostapi.New(addonID, fns, log),
		Secrets: secretns.New(addonID, secretStore),
	}
}
