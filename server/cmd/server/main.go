package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lapboard/lapboard/server/internal/api"
	"github.com/lapboard/lapboard/server/internal/board"
	"github.com/lapboard/lapboard/server/internal/config"
	"github.com/lapboard/lapboard/server/internal/metrics"
	"github.com/lapboard/lapboard/server/internal/mirror"
	"github.com/lapboard/lapboard/server/internal/persist"
	"github.com/lapboard/lapboard/server/internal/store"
	"github.com/lapboard/lapboard/server/internal/ws"
)

var version = "dev"

// shutdownTimeout bounds how long in-flight HTTP requests get on shutdown.
const shutdownTimeout = 5 * time.Second

// CLI flags. Set flags and environment variables override config.yaml.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path; empty uses built-in defaults" env:"LAPBOARD_CONFIG"`
	Port      int              `short:"p" help:"HTTP port" env:"PORT"`
	Env       string           `help:"Run mode: production or development" env:"NODE_ENV"`
	DataFile  string           `help:"Data file path" env:"DATA_FILE"`
	PublicDir string           `help:"Directory of static files served at /" env:"PUBLIC_DIR"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`
}

func main() {
	// .env is optional; it must be loaded before kong reads the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "lapboard: load .env: %v\n", err)
	}

	var cli CLI
	kong.Parse(&cli,
		kong.Name("lapboard"),
		kong.Description("Lap timing leaderboard server."),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lapboard: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, &cli)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "lapboard: config: %v\n", err)
		os.Exit(1)
	}

	var level slog.LevelVar
	level.Set(cfg.Log.SlogLevel())
	slog.SetDefault(newLogger(cfg, &level))

	if err := run(cfg, cli.Config, &level); err != nil {
		slog.Error("lapboard: fatal", "err", err)
		os.Exit(1)
	}
}

// applyOverrides copies set flags and environment variables over cfg.
// NODE_ENV values other than "production" mean development.
func applyOverrides(cfg *config.Config, cli *CLI) {
	if cli.Port != 0 {
		cfg.Server.HTTPPort = cli.Port
	}
	if cli.Env != "" {
		cfg.Server.Env = config.EnvDevelopment
		if cli.Env == config.EnvProduction {
			cfg.Server.Env = config.EnvProduction
		}
	}
	if cli.DataFile != "" {
		cfg.Data.Path = cli.DataFile
	}
	if cli.PublicDir != "" {
		cfg.Server.PublicDir = cli.PublicDir
	}
}

func newLogger(cfg *config.Config, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, configPath string, level *slog.LevelVar) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("lapboard: starting", "version", version, "env", cfg.Server.Env, "data", cfg.Data.Path)

	var (
		rec        metrics.Recorder = metrics.NoopRecorder{}
		metricsOpt []api.Option
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		metricsOpt = append(metricsOpt, api.WithMetrics(metrics.HTTPHandler(reg)))
	}

	st := store.New()
	svc := board.New(st, rec)

	saver := persist.NewManager(cfg.Data.Path, cfg.Data.SaveDebounce, st, persist.WithRecorder(rec))
	svc.SetSaver(saver)

	hubOpts := []ws.Option{ws.WithSendBuffer(cfg.WS.SendBuffer), ws.WithRecorder(rec)}
	var pub *mirror.Publisher
	if cfg.NATS.URL != "" {
		p, err := mirror.Connect(mirror.Config{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject})
		if err != nil {
			slog.Warn("lapboard: nats mirror disabled", "url", cfg.NATS.URL, "err", err)
		} else {
			pub = p
			hubOpts = append(hubOpts, ws.WithSink(pub))
			slog.Info("lapboard: mirroring state to nats", "url", cfg.NATS.URL, "subject", pub.Subject())
		}
	}
	hub := ws.New(svc, hubOpts...)
	svc.SetBroadcaster(hub)
	go hub.Run(ctx)

	initial, err := persist.Load(cfg.Data.Path)
	if err != nil {
		slog.Error("lapboard: data file unreadable, starting empty", "path", cfg.Data.Path, "err", err)
		initial = store.State{}
	}
	svc.Restore(initial)
	slog.Info("lapboard: state loaded", "cars", svc.CarCount())

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(c *config.Config) {
				level.Set(c.Log.SlogLevel())
				slog.Info("lapboard: log level updated", "level", c.Log.Level)
			})
			if err != nil {
				slog.Warn("lapboard: config watch stopped", "err", err)
			}
		}()
	}

	opts := append([]api.Option{
		api.WithWebSocket(hub),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
		api.WithObserverCount(hub.Count),
	}, metricsOpt...)
	if cfg.Server.PublicDir != "" {
		opts = append(opts, api.WithPublicDir(cfg.Server.PublicDir))
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.New(svc, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	banner(cfg)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			saver.Flush()
			return fmt.Errorf("http server: %w", err)
		}
	}

	slog.Info("lapboard: shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("lapboard: http shutdown", "err", err)
	}
	if saver.Flush() {
		slog.Info("lapboard: pending save flushed", "path", saver.Path())
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			slog.Warn("lapboard: nats close", "err", err)
		}
	}
	return nil
}

func banner(cfg *config.Config) {
	base := fmt.Sprintf("http://localhost:%d", cfg.Server.HTTPPort)
	slog.Info("lapboard: listening",
		"mode", cfg.Server.Env,
		"port", cfg.Server.HTTPPort,
		"api", base+"/api/state",
		"ws", "ws"+base[len("http"):]+"/ws",
	)
	if cfg.Server.PublicDir != "" {
		slog.Info("lapboard: serving static files", "dir", cfg.Server.PublicDir, "url", base+"/")
	}
	if cfg.Metrics.Enabled {
		slog.Info("lapboard: metrics enabled", "url", base+"/metrics")
	}
}
