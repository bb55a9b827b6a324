package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"addonhost/internal/addonhost/addonerrors"
	"addonhost/internal/addonhost/addonstore"
	"addonhost/internal/addonhost/devmanager"
	"addonhost/internal/addonhost/hostapi"
	"addonhost/internal/addonhost/hostlog"
	"addonhost/internal/addonhost/loader"
	"addonhost/internal/addonhost/orchestrator"
	"addonhost/internal/addonhost/registry"
	"addonhost/internal/addonhost/secretstore"
	"addonhost/internal/config"
	"addonhost/internal/crypto"
	"addonhost/internal/events"
	"addonhost/internal/notify"
)

// Version is set at build time via -ldflags
var version = "dev"

func main() {
	log.SetFlags(log.Ltime | log.Ldate)
	log.Printf("🚀 Addon Host v%s starting...", version)

	cfg := config.Load()

	db, err := addonstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("❌ Database error: %v", err)
	}
	defer db.Close()
	log.Printf("✓ Database: %s", cfg.DBPath)

	if err := addonstore.Migrate(db); err != nil {
		log.Fatalf("❌ Addon store migration failed: %v", err)
	}
	if err := secretstore.Migrate(db); err != nil {
		log.Fatalf("❌ Secret store migration failed: %v", err)
	}
	if err := notify.Migrate(db); err != nil {
		log.Fatalf("❌ Notification migration failed: %v", err)
	}

	keys, err := crypto.LoadOrGenerate(".")
	if err != nil {
		log.Printf("⚠️  Could not load or generate signing keys: %v", err)
	}
	trustedKey := cfg.TrustedSignKey
	if trustedKey == "" && keys != nil {
		trustedKey = keys.PublicKeyBase64()
	}

	bus := events.NewBus()
	reporter := addonerrors.NewReporter(bus)

	var dispatcher *notify.Dispatcher
	if cfg.NotifyEnabled {
		dispatcher = notify.NewDispatcher(db, bus, nil)
		dispatcher.Start()
		defer dispatcher.Stop()
		log.Printf("✓ Notifications: enabled")
	} else {
		log.Printf("⚠️  Notifications: disabled (set ADDON_NOTIFY_ENABLED=true to enable)")
	}

	reg := registry.New(hostlog.New("registry"))
	fns := hostapi.NewStubFunctions(bus)
	secrets := secretstore.New(db)
	store := addonstore.New(db, trustedKey)

	l := loader.New(store, reg, fns, secrets, hostlog.New("loader"), reporter, cfg.SDKVersion, nil)

	var devMgr *devmanager.Manager
	if cfg.DevMode {
		devCfg := devmanager.Config{
			Enabled:        true,
			Ports:          cfg.DevPorts,
			PollInterval:   cfg.DevPollInterval,
			RequestTimeout: cfg.DevRequestTimeout,
			AutoReload:     cfg.DevAutoReload,
		}
		devMgr = devmanager.New(devCfg, reg, fns, secrets, hostlog.New("devmanager"), reporter, cfg.SDKVersion)
		log.Printf("✓ Dev mode: enabled (ports=%v)", cfg.DevPorts)
	} else {
		log.Printf("⚠️  Dev mode: disabled (set ADDON_DEV_MODE=true to enable)")
	}

	orch := orchestrator.New(l, devMgr, reg, hostlog.New("orchestrator"))
	orch.LoadAll()
	log.Printf("✓ Addons loaded: %d", len(orch.DebugState().Addons))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/addons/debug", handleDebugState(orch))
	mux.HandleFunc("POST /api/addons/reload", handleReloadAll(orch))

	handler := loggingMiddleware(corsMiddleware(mux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n⏹️  Shutting down server...")
		orch.UnloadAll()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
	}()

	log.Printf("✓ Listening on port %s", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("❌ Server error: %v", err)
	}

	log.Println("👋 Server stopped")
}

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("⚠️  Failed to encode JSON response: %v", err)
	}
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Logging middleware
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"version": version})
}

func handleDebugState(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, orch.DebugState())
	}
}

func handleReloadAll(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch.ReloadAll()
		jsonResponse(w, orch.DebugState())
	}
}
