package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"cdr.dev/slog/v3"
	"cdr.dev/slog/v3/sloggers/sloghuman"

	"github.com/tsanders-rh/lactl/internal/api"
	"github.com/tsanders-rh/lactl/internal/janitor"
	"github.com/tsanders-rh/lactl/internal/policy"
	"github.com/tsanders-rh/lactl/internal/profile"
	"github.com/tsanders-rh/lactl/internal/store"
)

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	log := slog.Make(sloghuman.Sink(os.Stderr)).Leveled(slog.LevelInfo)
	if os.Getenv("LOG_LEVEL") == "debug" {
		log = log.Leveled(slog.LevelDebug)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost:5432/lactl?sslmode=disable"
	}

	profilesDir := os.Getenv("PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = "internal/profile/definitions"
	}

	config := api.DefaultServerConfig()
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Fatal(ctx, "invalid PORT", slog.F("port", portStr), slog.Error(err))
		}
		config.Port = port
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, o)
			}
		}
	}

	log.Info(ctx, "connecting to database")
	st, err := store.NewStore(ctx, dbURL)
	if err != nil {
		log.Fatal(ctx, "failed to connect to database", slog.Error(err))
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		log.Fatal(ctx, "failed to run migrations", slog.Error(err))
	}

	registry, err := profile.NewRegistry(profile.NewLoader(profilesDir))
	if err != nil {
		log.Fatal(ctx, "failed to load profiles", slog.F("dir", profilesDir), slog.Error(err))
	}
	log.Info(ctx, "loaded cluster profiles",
		slog.F("count", registry.Count()),
		slog.F("enabled", registry.CountEnabled()))

	policyEngine := policy.NewEngine(profile.NewRenderer(registry), nil)
	server := api.NewServer(config, api.NewStoreHistory(st), registry, policyEngine, log)

	log.Info(ctx, "server configured",
		slog.F("port", config.Port),
		slog.F("cors_origins", config.AllowedOrigins))

	if os.Getenv("JANITOR_DISABLED") != "true" {
		j := janitor.NewJanitor(nil, st.Runs, nil, log)
		go func() {
			_ = j.Start(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

wait:
	for {
		select {
		case err := <-errCh:
			log.Fatal(ctx, "server stopped", slog.Error(err))
		case sig := <-signals:
			if sig != syscall.SIGHUP {
				break wait
			}
			if err := registry.Reload(); err != nil {
				log.Error(ctx, "profile reload failed, keeping previous profiles", slog.Error(err))
				continue
			}
			log.Info(ctx, "reloaded cluster profiles", slog.F("enabled", registry.CountEnabled()))
		}
	}

	log.Info(ctx, "shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server forced to shut down", slog.Error(err))
		return
	}

	log.Info(ctx, "server exited")
}
