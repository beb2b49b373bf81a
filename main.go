package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"bingetracker/api"
	"bingetracker/config"
	"bingetracker/handlers"
	"bingetracker/internal/auth"
	"bingetracker/internal/docstore"
	"bingetracker/services/accounts"
	"bingetracker/services/binges"
	"bingetracker/services/browse"
	"bingetracker/services/catalog"
	"bingetracker/services/scheduler"
	"bingetracker/services/sessions"
	"bingetracker/utils"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🚀 Binge Tracker Backend Starting...")

	cfgManager := config.NewManager(config.PathFromEnv())
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	setupLogging(settings.Log)

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	ctx := context.Background()

	store, err := docstore.Open(ctx, docstore.Config{
		Driver: settings.Database.Driver,
		Path:   settings.Database.Path,
		DSN:    settings.Database.DSN,
	})
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}
	defer store.Close()
	slog.Info("document store ready", "driver", store.Driver())

	if strings.TrimSpace(settings.Catalog.TMDBAPIKey) == "" {
		slog.Warn("no TMDB api key configured; catalog requests will fail", "env", config.EnvTMDBAPIKey)
	}
	catalogClient := catalog.NewClient(catalog.Options{
		APIKey:      settings.Catalog.TMDBAPIKey,
		BaseURL:     settings.Catalog.BaseURL,
		Language:    settings.Catalog.Language,
		Timeout:     time.Duration(settings.Catalog.TimeoutSeconds) * time.Second,
		MaxAttempts: settings.Catalog.MaxAttempts,
	})

	osFs := afero.NewOsFs()
	accountsSvc, err := accounts.NewService(osFs, settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to initialise accounts service: %v", err)
	}
	sessionsSvc, err := sessions.NewService(osFs, settings.Storage.Directory, time.Duration(settings.Auth.SessionHours)*time.Hour)
	if err != nil {
		log.Fatalf("failed to initialise sessions service: %v", err)
	}

	identity := accounts.NewIdentity(accountsSvc, sessionsSvc, store)
	if issuer := strings.TrimSpace(settings.Auth.OIDCIssuerURL); issuer != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, issuer, settings.Auth.OIDCClientID)
		if err != nil {
			log.Fatalf("failed to set up OIDC verifier: %v", err)
		}
		identity.WithExternal(verifier)
		slog.Info("external identity provider enabled", "issuer", issuer)
	}

	collation, err := binges.NewCollation(settings.Binges.CollationLocale)
	if err != nil {
		log.Fatalf("invalid binges.collationLocale %q: %v", settings.Binges.CollationLocale, err)
	}
	bingeHub := binges.NewHub(store, catalogClient, collation)
	browseHub := browse.NewHub(catalogClient)

	proxies, err := utils.ParseTrustedProxies(settings.Server.TrustedProxies)
	if err != nil {
		log.Fatalf("invalid server.trustedProxies: %v", err)
	}
	limiter := api.NewIPRateLimiter(settings.Auth.RateLimitPerMin, settings.Auth.RateLimitBurst).TrustProxies(proxies)

	maintenance := scheduler.NewService(time.Duration(settings.Maintenance.CheckIntervalSeconds) * time.Second)
	registerMaintenance(maintenance, settings.Maintenance, sessionsSvc, limiter)
	if err := maintenance.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	r := utils.NewRouter(utils.OriginPolicy{Allowed: settings.Server.AllowedOrigins})
	api.Register(r,
		handlers.NewAuthHandler(identity, bingeHub, browseHub).TrustProxies(proxies),
		handlers.NewBingesHandler(bingeHub),
		handlers.NewCatalogHandler(browseHub),
		identity,
		limiter,
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket streams stay open
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := maintenance.Stop(shutdownCtx); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

// registerMaintenance schedules the periodic cleanup jobs.
func registerMaintenance(s *scheduler.Service, cfg config.MaintenanceSettings, sessionsSvc *sessions.Service, limiter *api.IPRateLimiter) {
	tasks := []scheduler.Task{
		{
			ID:       "session-cleanup",
			Name:     "Remove expired sessions",
			Interval: time.Duration(cfg.SessionCleanupMinutes) * time.Minute,
			Run: func(context.Context) (int, error) {
				return sessionsSvc.Cleanup(), nil
			},
		},
		{
			ID:       "rate-limit-evict",
			Name:     "Drop idle rate limit buckets",
			Interval: time.Duration(cfg.RateLimitEvictMinutes) * time.Minute,
			Run: func(context.Context) (int, error) {
				return limiter.Evict(time.Now()), nil
			},
		},
	}
	for _, task := range tasks {
		if err := s.Register(task); err != nil {
			log.Fatalf("failed to register task %s: %v", task.ID, err)
		}
	}
}

// setupLogging tees the standard logger and slog to a rotating file.
func setupLogging(cfg config.LogConfig) {
	if cfg.File == "" {
		return
	}
	logDir := filepath.Dir(cfg.File)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		return
	}
	fileWriter := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	multiWriter := io.MultiWriter(os.Stdout, fileWriter)
	// slog.SetDefault rewires the log package, so it goes first
	slog.SetDefault(slog.New(slog.NewTextHandler(multiWriter, nil)))
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Logging to file: %s", cfg.File)
}
