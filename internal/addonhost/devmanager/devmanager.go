// Package devmanager serves addons directly from a developer's HTTP
// origin and reloads them on source changes, without restarting the
// host. It is the Loader's dev-mode peer: same capability construction
// and entry resolution, different discovery and bookkeeping.
package devmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
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

// Config controls the Dev Manager's discovery and polling behavior.
type Config struct {
	Enabled        bool
	Ports          []int
	PollInterval   time.Duration
	RequestTimeout time.Duration
	AutoReload     bool
}

// DefaultPorts is the fixed small contiguous range the host scans when
// no explicit port list is configured.
func DefaultPorts() []int { return []int{3001, 3002, 3003, 3004, 3005} }

// DefaultConfig returns the host's default dev-mode settings: poll once
// a second, 2s per-request timeouts, auto-reload on.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		Ports:          DefaultPorts(),
		PollInterval:   time.Second,
		RequestTimeout: 2 * time.Second,
		AutoReload:     true,
	}
}

type devLoaded struct {
	addon         addonhost.LoadedAddon
	bridge        *hostapi.Bridge
	watchCancel   context.CancelFunc
}

// Manager is the Dev Manager. It owns the DevServer table; the Loader's
// LoadedAddon table is a separate, untouched collaborator.
type Manager struct {
	cfg         Config
	registry    *registry.Registry
	functions   hostapi.Functions
	secretStore secretns.Store
	log         hostlog.Logger
	reporter    *addonerrors.Reporter
	sdkVersion  string
	client      *http.Client
	streamClient *http.Client // no Timeout: bounds a single request, would truncate a long-lived SSE stream

	mu      sync.Mutex
	servers map[string]*addonhost.DevServer // addon id -> server
	loaded  map[string]*devLoaded
	reloading map[string]bool

	stop    chan struct{}
	running bool
}

// New constructs a Manager. cfg.Ports/PollInterval/RequestTimeout fall
// back to DefaultConfig's values when zero.
func New(cfg Config, reg *registry.Registry, fns hostapi.Functions, secretStore secretns.Store, log hostlog.Logger, reporter *addonerrors.Reporter, sdkVersion string) *Manager {
	if len(cfg.Ports) == 0 {
		cfg.Ports = DefaultPorts()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Second
	}
	if log == nil {
		log = hostlog.New("devmanager")
	}
	return &Manager{
		cfg:         cfg,
		registry:    reg,
		functions:   fns,
		secretStore: secretStore,
		log:         log,
		reporter:    reporter,
		sdkVersion:  sdkVersion,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		streamClient: &http.Client{},
		servers:     make(map[string]*addonhost.DevServer),
		loaded:      make(map[string]*devLoaded),
		reloading:   make(map[string]bool),
		stop:        make(chan struct{}),
	}
}

// Servers returns a snapshot of discovered dev servers.
func (m *Manager) Servers() []addonhost.DevServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]addonhost.DevServer, 0, len(m.servers))
	for _, s := range m.servers {
		out = append(out, *s)
	}
	return out
}

// Loaded returns a snapshot of every dev addon currently enabled, for
// inspection (e.g. orchestrator.DebugState).
func (m *Manager) Loaded() []addonhost.LoadedAddon {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]addonhost.LoadedAddon, 0, len(m.loaded))
	for _, dl := range m.loaded {
		out = append(out, dl.addon)
	}
	return out
}

// Start discovers dev servers once, loads every one found, then begins
// the poll loop. A no-op if the Manager is disabled.
func (m *Manager) Start() {
	if !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.DiscoverAndLoadAll()
	go m.pollLoop()
	m.log.Info("dev manager started (ports=%v, interval=%s)", m.cfg.Ports, m.cfg.PollInterval)
}

// Stop halts polling and unloads every dev-sourced addon.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stop)
	m.UnloadAll()
}

func (m *Manager) pollLoop() {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.pollOnce()
		}
	}
}

func (m *Manager) pollOnce() {
	for _, ds := range m.Servers() {
		if ds.Status != addonhost.DevServerRunning {
			continue
		}
		m.checkStatus(ds.AddonID)
	}
}

// DiscoverAndLoadAll probes every configured port and loads any addon
// found. A timed-out or refused port is simply "no dev server there" —
// never an error — and never blocks probing of the other ports.
func (m *Manager) DiscoverAndLoadAll() {
	for _, port := range m.cfg.Ports {
		ds, ok := m.probe(port)
		if !ok {
			continue
		}
		m.mu.Lock()
		m.servers[ds.AddonID] = ds
		m.mu.Unlock()

		if err := m.loadFromDevServer(ds); err != nil {
			m.markError(ds.AddonID, err)
			continue
		}
		m.startPushWatch(ds)
	}
}

func (m *Manager) probe(port int) (*addonhost.DevServer, bool) {
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	resp, err := m.client.Get(base + "/health")
	if err != nil || resp.StatusCode/100 != 2 {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, false
	}
	resp.Body.Close()

	manifest, err := m.fetchManifest(base)
	if err != nil {
		return nil, false
	}

	return &addonhost.DevServer{
		AddonID: manifest.ID,
		Name:    manifest.Name,
		BaseURL: base,
		Port:    port,
		Status:  addonhost.DevServerRunning,
	}, true
}

func (m *Manager) fetchManifest(baseURL string) (addonhost.Manifest, error) {
	resp, err := m.client.Get(baseURL + "/manifest.json")
	if err != nil {
		return addonhost.Manifest{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return addonhost.Manifest{}, fmt.Errorf("manifest.json returned %d", resp.StatusCode)
	}
	var manifest addonhost.Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return addonhost.Manifest{}, err
	}
	return manifest, nil
}

func (m *Manager) fetchSource(baseURL string) (string, error) {
	resp, err := m.client.Get(baseURL + "/addon.js")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("addon.js returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// statusResponse is the shape /status returns.
type statusResponse struct {
	LastModified time.Time `json:"lastModified"`
}

func (m *Manager) fetchStatus(baseURL string) (statusResponse, error) {
	resp, err := m.client.Get(baseURL + "/status")
	if err != nil {
		return statusResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusResponse{}, fmt.Errorf("status returned %d", resp.StatusCode)
	}
	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return statusResponse{}, err
	}
	return st, nil
}

// loadFromDevServer performs §4.6's load-from-dev-server sequence: a
// fresh /health confirmation, source + manifest fetch, entry
// resolution, and invocation.
func (m *Manager) loadFromDevServer(ds *addonhost.DevServer) error {
	resp, err := m.client.Get(ds.BaseURL + "/health")
	if err != nil || resp.StatusCode/100 != 2 {
		if resp != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("health recheck failed: %w", err)
	}
	resp.Body.Close()

	source, err := m.fetchSource(ds.BaseURL)
	if err != nil {
		return fmt.Errorf("fetch addon.js: %w", err)
	}
	manifest, err := m.fetchManifest(ds.BaseURL)
	if err != nil {
		return fmt.Errorf("fetch manifest.json: %w", err)
	}

	module, err := jsruntime.Instantiate(ds.AddonID, source)
	if err != nil {
		return &addonerrors.EntryResolutionError{AddonID: ds.AddonID, Cause: err}
	}

	capObj := capability.New(ds.AddonID, m.registry, m.functions, m.log, m.secretStore)

	_, result, err := module.Invoke(ds.AddonID, capObj)
	if err != nil {
		capObj.Api.Close()
		m.registry.TeardownAddon(ds.AddonID)
		return &addonerrors.EnableError{AddonID: ds.AddonID, Cause: err}
	}

	disableHandle, _ := jsruntime.ExtractDisableHandle(result)

	m.mu.Lock()
	m.loaded[ds.AddonID] = &devLoaded{
		addon: addonhost.LoadedAddon{
			ID:            ds.AddonID,
			DisableHandle: disableHandle,
			Source:        addonhost.SourceDev,
			DevOrigin:     ds.BaseURL,
			DevPort:       ds.Port,
			LastLoadedAt:  time.Now().UTC(),
		},
		bridge: capObj.Api,
	}
	if s, ok := m.servers[ds.AddonID]; ok {
		s.Status = addonhost.DevServerRunning
	}
	m.mu.Unlock()

	if manifest.SDKVersion != "" && manifest.SDKVersion != m.sdkVersion {
		m.log.Warn("addon %s declares sdkVersion %q, host is %q; proceeding (lenient policy)", ds.AddonID, manifest.SDKVersion, m.sdkVersion)
	}

	return nil
}

func (m *Manager) markError(addonID string, cause error) {
	m.log.Error("%v", &addonerrors.DevServerUnreachableError{AddonID: addonID, Cause: cause})
	m.mu.Lock()
	if s, ok := m.servers[addonID]; ok {
		s.Status = addonhost.DevServerError
	}
	m.mu.Unlock()
}

// checkStatus polls one running dev server's /status and triggers a
// reload if lastModified has advanced. A reload already in flight for
// this id is never re-entered.
func (m *Manager) checkStatus(addonID string) {
	m.mu.Lock()
	ds, ok := m.servers[addonID]
	m.mu.Unlock()
	if !ok || ds.Status != addonhost.DevServerRunning {
		return
	}

	st, err := m.fetchStatus(ds.BaseURL)
	if err != nil {
		m.markError(addonID, err)
		return
	}

	m.mu.Lock()
	changed := ds.LastObservedModifiedAt == nil || st.LastModified.After(*ds.LastObservedModifiedAt)
	if changed {
		observed := st.LastModified
		ds.LastObservedModifiedAt = &observed
	}
	m.mu.Unlock()

	if changed && m.cfg.AutoReload {
		go m.reload(addonID)
	}
}

// reload performs unload -> settling delay -> fresh load-from-dev. At
// most one reload runs per addon id at a time.
func (m *Manager) reload(addonID string) {
	m.mu.Lock()
	if m.reloading[addonID] {
		m.mu.Unlock()
		return
	}
	m.reloading[addonID] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.reloading, addonID)
		m.mu.Unlock()
	}()

	m.unload(addonID)
	time.Sleep(50 * time.Millisecond) // settling delay for teardown observers

	m.mu.Lock()
	ds, ok := m.servers[addonID]
	m.mu.Unlock()
	if !ok {
		return
	}

	if err := m.loadFromDevServer(ds); err != nil {
		reloadErr := &addonerrors.ReloadError{AddonID: addonID, Cause: err}
		m.log.Error("%v", reloadErr)
		if m.reporter != nil {
			m.reporter.ReportReloadFailure(addonID, reloadErr)
		}
		m.markError(addonID, err)
	}
	// Registry.AddSidebarItem/AddRoute calls made during the reload's
	// enable already notify subscribers; no extra signal is needed.
}

func (m *Manager) unload(addonID string) {
	m.mu.Lock()
	dl, ok := m.loaded[addonID]
	delete(m.loaded, addonID)
	m.mu.Unlock()
	if !ok {
		return
	}

	if dl.watchCancel != nil {
		dl.watchCancel()
	}

	if dl.addon.DisableHandle != nil {
		if err := dl.addon.DisableHandle(); err != nil {
			m.log.Error("%v", &addonerrors.DisableError{AddonID: addonID, Cause: err})
		}
	}
	dl.bridge.Close()
	m.registry.TeardownAddon(addonID)
}

// ReloadAll reloads every dev-sourced addon currently loaded, one at a
// time. Each reload still goes through the single-flight guard, so when
// an auto-reload triggered by polling or SSE for the same addon overlaps
// this call, whichever of the two starts second is skipped rather than
// racing the other.
func (m *Manager) ReloadAll() {
	for _, id := range m.LoadedIDs() {
		m.reload(id)
	}
}

// UnloadAll unloads every dev-sourced addon currently loaded.
func (m *Manager) UnloadAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.loaded))
	for id := range m.loaded {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.unload(id)
	}
}

// LoadedIDs returns the ids of addons currently loaded from a dev
// server.
func (m *Manager) LoadedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.loaded))
	for id := range m.loaded {
		ids = append(ids, id)
	}
	return ids
}
