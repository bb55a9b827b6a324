// Package addonhost holds the types shared across the addon host
// subsystem: manifests, navigation/route contributions, and the loaded
// addon record. Individual components (registry, loader, devmanager,
// ...) live in their own sub-packages and import this one.
package addonhost

import "time"

// Source identifies where a LoadedAddon's code came from.
type Source string

const (
	SourceInstalled Source = "installed"
	SourceDev       Source = "dev"
)

// PermissionFunc is a single function an addon declares it wants to call.
type PermissionFunc struct {
	Name       string `json:"name"`
	IsDetected bool   `json:"isDetected"`
}

// PermissionGroup groups declared permission functions under a category
// (e.g. "portfolio", "accounts").
type PermissionGroup struct {
	Category  string           `json:"category"`
	Functions []PermissionFunc `json:"functions"`
}

// Manifest is the declarative descriptor produced by the external
// unpacker for an installed addon, or served at /manifest.json by a dev
// server. The host never mutates it.
type Manifest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Main        string            `json:"main"`
	SDKVersion  string            `json:"sdkVersion,omitempty"`
	Enabled     bool              `json:"enabled"`
	Permissions []PermissionGroup `json:"permissions,omitempty"`
}

// File is a single file inside an unpacked addon bundle.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	IsMain  bool   `json:"isMain"`
}

// Bundle is the {manifest, files[]} pair the external package store (or
// a dev server) hands the Loader for a single addon.
type Bundle struct {
	Manifest Manifest
	Files    []File
}

// MainFile returns the bundle's main module source, or ok=false if none
// of the files is flagged isMain.
func (b Bundle) MainFile() (File, bool) {
	for _, f := range b.Files {
		if f.IsMain {
			return f, true
		}
	}
	return File{}, false
}

// DisableHandle is the optional thunk an addon's entry function may
// return (as the `disable` member of its result) to be invoked on unload.
type DisableHandle func() error

// LoadedAddon is the bookkeeping record the Loader keeps for a
// successfully enabled addon.
type LoadedAddon struct {
	ID            string
	DisableHandle DisableHandle
	Source        Source
	DevOrigin     string // baseURL, set only when Source == SourceDev
	DevPort       int
	LastLoadedAt  time.Time
}

// NavItem is a sidebar entry contributed by an addon.
type NavItem struct {
	ID      string
	AddonID string
	Title   string
	Icon    string // opaque UI token; the renderer interprets it
	Route   string // optional
	OnClick string // opaque click-handler token; optional
	Order   int
}

// RouteEntry is a route contributed by an addon.
type RouteEntry struct {
	Path      string
	AddonID   string
	Component string // opaque, lazily-resolved component reference
}

// DisableCallback is a thunk an addon registered via onDisable, tagged
// with its owning addon so the Registry can invoke and drop only the
// right set on teardown.
type DisableCallback struct {
	AddonID string
	Thunk   func() error
}

// DevServerStatus is the operational state of a discovered dev server.
type DevServerStatus string

const (
	DevServerRunning DevServerStatus = "running"
	DevServerStopped DevServerStatus = "stopped"
	DevServerError   DevServerStatus = "error"
)

// DevServer is a discovered developer HTTP origin serving a live addon.
type DevServer struct {
	AddonID                string
	Name                   string
	BaseURL                string
	Port                   int
	Status                 DevServerStatus
	LastObservedModifiedAt *time.Time
}
