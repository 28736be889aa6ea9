package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/kalcerwatch/kalcerwatch/internal/alerts"
	"github.com/kalcerwatch/kalcerwatch/internal/api"
	"github.com/kalcerwatch/kalcerwatch/internal/auth"
	"github.com/kalcerwatch/kalcerwatch/internal/config"
	"github.com/kalcerwatch/kalcerwatch/internal/contacts"
	"github.com/kalcerwatch/kalcerwatch/internal/metrics"
	"github.com/kalcerwatch/kalcerwatch/internal/rtdb"
	"github.com/kalcerwatch/kalcerwatch/internal/telemetry"
	"github.com/kalcerwatch/kalcerwatch/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	// Bootstrap logger until the config says otherwise.
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envFile, "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	level.Set(cfg.Log.SlogLevel())
	slog.SetDefault(slog.New(newLogHandler(cfg.Log.Format, level)))

	slog.Info("kalcerwatch starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"backend", cfg.Firebase.Backend,
		"auth_mode", cfg.Server.Auth.Mode,
		"history_limit", cfg.History.Limit,
		"label_mode", cfg.History.LabelMode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	raw, err := openStore(ctx, cfg.Firebase)
	if err != nil {
		slog.Error("failed to open realtime store", "backend", cfg.Firebase.Backend, "err", err)
		os.Exit(1)
	}

	m := metrics.New()
	st := m.InstrumentStore(raw)

	readings := telemetry.New(st, cfg.Firebase.Paths, cfg.History)
	readings.OnDegrade(func(error) { m.HistoryDegraded.Inc() })
	book := contacts.New(st, cfg.Firebase.Paths.Contacts)

	// Alerts engine: polls the current reading and notifies contacts.
	alertEngine := alerts.New(cfg.Alerts, book)
	alertEngine.OnFire(func(a alerts.Alert) {
		m.AlertsFired.WithLabelValues(a.RuleName, a.Severity).Inc()
	})
	go alertEngine.Run(ctx, readings, cfg.Alerts.PollInterval)

	// WebSocket hub: pushes the current reading to dashboard clients.
	hub := ws.New(readings, cfg.Stream.Interval)
	hub.TrackClients(m.WSClients)
	go hub.Run(ctx)

	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			level.Set(next.Log.SlogLevel())
			alertEngine.SetRules(next.Alerts)
			slog.Info("config applied",
				"log_level", next.Log.SlogLevel().String(),
				"alert_rules", len(next.Alerts.Rules),
			)
		})
		if err != nil {
			slog.Warn("config watch disabled", "path", *configPath, "err", err)
		}
	}()

	httpMux := http.NewServeMux()
	httpMux.Handle("/ws/stream", m.Middleware("/ws/stream", hub))
	httpMux.Handle("/metrics", m.Handler())
	httpMux.Handle("/", api.New(api.Deps{
		Telemetry: readings,
		Contacts:  book,
		Alerts:    alertEngine,
		Metrics:   m,
	}))

	protect := auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		cfg.Server.Auth.Paths,
	)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           protect(httpMux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("kalcerwatch shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	alertEngine.Wait()
}

// newLogHandler returns a JSON handler, or a colourised console handler for
// format "text".
func newLogHandler(format string, level slog.Leveler) slog.Handler {
	if format == "text" {
		return tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
}

// openStore returns the configured realtime store backend.
func openStore(ctx context.Context, cfg config.FirebaseConfig) (rtdb.Store, error) {
	if cfg.Backend != config.BackendMemory {
		fb, err := rtdb.NewFirebase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return fb, nil
	}

	mem := rtdb.NewMemory()
	if cfg.SeedFile == "" {
		return mem, nil
	}
	f, err := os.Open(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	if err := mem.Load(f); err != nil {
		return nil, err
	}
	slog.Info("memory store seeded", "path", cfg.SeedFile)
	return mem, nil
}
