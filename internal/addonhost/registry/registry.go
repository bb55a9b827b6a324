// Package registry is the process-wide store of dynamic nav items,
// routes, and disable callbacks contributed by addons. It is the only
// shared mutable state in the addon host; every other component mutates
// it only through these methods, and UI subscribers observe it only
// through Snapshot.
package registry

import (
	"sort"
	"sync"

	"addonhost/internal/addonhost"
	"addonhost/internal/addonhost/hostlog"
)

// RemoveHandle removes a previously-added NavItem. Calling it more than
// once is a no-op.
type RemoveHandle func()

// Unsubscribe removes a previously-registered subscriber. Calling it
// more than once is a no-op.
type Unsubscribe func()

// Snapshot is an immutable copy of the registry's contents, safe to
// hand to a UI subscriber without risk of observing torn state.
type Snapshot struct {
	NavItems []addonhost.NavItem
	Routes   []addonhost.RouteEntry
	// Owners maps a nav item or route identifier to its owning addon id,
	// for debugging/inspection.
	Owners map[string]string
}

type navEntry struct {
	item     addonhost.NavItem
	removed  bool
	sequence int
}

// Registry is the authoritative store described by the package comment.
// Zero value is not usable; construct with New.
type Registry struct {
	log hostlog.Logger

	mu        sync.Mutex
	navItems  map[string]*navEntry // nav item id -> entry
	routes    map[string]addonhost.RouteEntry
	callbacks map[string][]addonhost.DisableCallback // addon id -> callbacks
	seq       int
	subs      []func()
}

// New creates an empty Registry.
func New(log hostlog.Logger) *Registry {
	if log == nil {
		log = hostlog.New("registry")
	}
	return &Registry{
		log:       log,
		navItems:  make(map[string]*navEntry),
		routes:    make(map[string]addonhost.RouteEntry),
		callbacks: make(map[string][]addonhost.DisableCallback),
	}
}

// AddSidebarItem inserts a nav item owned by addonID and notifies
// subscribers. The returned RemoveHandle is idempotent.
func (r *Registry) AddSidebarItem(addonID string, item addonhost.NavItem) RemoveHandle {
	item.AddonID = addonID
	if item.Order == 0 {
		item.Order = 999
	}

	r.mu.Lock()
	r.seq++
	r.navItems[item.ID] = &navEntry{item: item, sequence: r.seq}
	r.mu.Unlock()

	r.notify()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.navItems, item.ID)
			r.mu.Unlock()
			r.notify()
		})
	}
}

// AddRoute inserts a route owned by addonID. A second call with the
// same path replaces the earlier registration (addon contract: paths
// are author-chosen and expected unique; the host enforces "later wins"
// rather than rejecting or namespacing).
func (r *Registry) AddRoute(addonID string, route addonhost.RouteEntry) {
	route.AddonID = addonID

	r.mu.Lock()
	r.routes[route.Path] = route
	r.mu.Unlock()

	r.notify()
}

// RegisterDisable appends a disable callback to addonID's list.
func (r *Registry) RegisterDisable(addonID string, thunk func() error) {
	r.mu.Lock()
	r.callbacks[addonID] = append(r.callbacks[addonID], addonhost.DisableCallback{
		AddonID: addonID,
		Thunk:   thunk,
	})
	r.mu.Unlock()
}

// Subscribe adds callback to the notify set; it is invoked synchronously
// on every subsequent mutation. Returns an idempotent Unsubscribe.
func (r *Registry) Subscribe(callback func()) Unsubscribe {
	r.mu.Lock()
	idx := len(r.subs)
	r.subs = append(r.subs, callback)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if idx < len(r.subs) {
				r.subs[idx] = nil
			}
			r.mu.Unlock()
		})
	}
}

// TeardownAddon invokes every disable callback addonID registered
// (swallowing and logging individual errors), deletes all of its
// NavItems and RouteEntries, and emits exactly one notification.
func (r *Registry) TeardownAddon(addonID string) {
	r.teardown(addonID)
	r.notify()
}

// TeardownAll tears down every addon currently known to the registry
// (by nav item, route, or callback ownership) and emits exactly one
// notification at the end.
func (r *Registry) TeardownAll() {
	for _, id := range r.ownedAddonIDs() {
		r.teardown(id)
	}
	r.notify()
}

// teardown runs the invoke-callbacks / remove-contributions sequence
// for addonID without emitting a notification itself.
func (r *Registry) teardown(addonID string) {
	r.mu.Lock()
	callbacks := r.callbacks[addonID]
	delete(r.callbacks, addonID)
	r.mu.Unlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("disable callback panicked for addon %s: %v", addonID, rec)
				}
			}()
			if err := cb.Thunk(); err != nil {
				r.log.Error("disable callback failed for addon %s: %v", addonID, err)
			}
		}()
	}

	r.mu.Lock()
	for id, entry := range r.navItems {
		if entry.item.AddonID == addonID {
			delete(r.navItems, id)
		}
	}
	for path, route := range r.routes {
		if route.AddonID == addonID {
			delete(r.routes, path)
		}
	}
	r.mu.Unlock()
}

// ownedAddonIDs returns the set of addon ids with any current footprint
// in the registry (nav items, routes, or pending disable callbacks).
func (r *Registry) ownedAddonIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	for _, entry := range r.navItems {
		seen[entry.item.AddonID] = struct{}{}
	}
	for _, route := range r.routes {
		seen[route.AddonID] = struct{}{}
	}
	for id := range r.callbacks {
		seen[id] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// Snapshot returns a copy of the registry's current nav items (sorted by
// order ascending, ties broken by insertion order), routes, and owner
// metadata.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*navEntry, 0, len(r.navItems))
	for _, e := range r.navItems {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].item.Order != entries[j].item.Order {
			return entries[i].item.Order < entries[j].item.Order
		}
		return entries[i].sequence < entries[j].sequence
	})

	navItems := make([]addonhost.NavItem, len(entries))
	owners := make(map[string]string, len(entries)+len(r.routes))
	for i, e := range entries {
		navItems[i] = e.item
		owners[e.item.ID] = e.item.AddonID
	}

	routes := make([]addonhost.RouteEntry, 0, len(r.routes))
	for _, route := range r.routes {
		routes = append(routes, route)
		owners[route.Path] = route.AddonID
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })

	return Snapshot{NavItems: navItems, Routes: routes, Owners: owners}
}

// notify invokes every live subscriber synchronously.
func (r *Registry) notify() {
	r.mu.Lock()
	subs := make([]func(), 0, len(r.subs))
	for _, s := range r.subs {
		if s != nil {
			subs = append(subs, s)
		}
	}
	r.mu.Unlock()

	for _, s := range subs {
		s()
	}
}
