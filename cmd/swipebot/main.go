package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/swipebot/config"
	"github.com/alejandrodnm/swipebot/internal/adapters/notify"
	"github.com/alejandrodnm/swipebot/internal/adapters/polymarket"
	"github.com/alejandrodnm/swipebot/internal/adapters/storage"
	"github.com/alejandrodnm/swipebot/internal/application/swipe"
	"github.com/alejandrodnm/swipebot/internal/telemetry"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	user := flag.String("user", "", "user address (default: signer address, or a paper user with -dry-run)")
	dryRun := flag.Bool("dry-run", false, "simulate submissions instead of sending transactions")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	report := flag.Bool("report", false, "print positions and unresolved submissions, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		slog.Warn("tracing disabled", "err", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "err", err)
		}
	}()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	client := polymarket.NewClient(cfg.API.GammaBase)
	console := notify.NewConsole()

	if *report {
		if err := runReport(ctx, store, client, console, *user); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	chain, err := setupChain(ctx, cfg, *dryRun)
	if err != nil {
		slog.Error("failed to set up chain", "err", err)
		os.Exit(1)
	}
	defer chain.close()

	owner := *user
	if owner == "" {
		owner = chain.defaultUser
	}

	swipeCfg := swipe.Config{
		MaxBatchSize:      cfg.Batch.MaxSize,
		InactivityTimeout: cfg.InactivityTimeout(),
		ReleaseCooldown:   cfg.ReleaseCooldown(),
		StaleAfter:        cfg.StaleAfter(),
	}
	manager := swipe.NewManager(sessionContext(ctx), swipe.Deps{
		Markets:   client,
		Calls:     chain.calls,
		Submitter: chain.submitter,
		Allowance: chain.allowance,
		Storage:   store,
		Journal:   store,
		Notifier:  console,
	}, swipeCfg)

	slog.Info("swipebot starting",
		"config", *configPath,
		"user", owner,
		"dry_run", *dryRun,
		"max_batch", swipeCfg.MaxBatchSize,
		"inactivity", swipeCfg.InactivityTimeout,
	)

	r := &repl{
		ctx:          ctx,
		user:         owner,
		manager:      manager,
		markets:      client,
		store:        store,
		console:      console,
		defaultStake: decimal.NewFromFloat(cfg.Batch.DefaultStakeUSDC),
		in:           os.Stdin,
		out:          os.Stdout,
	}
	if err := r.run(); err != nil {
		slog.Error("session exited with error", "err", err)
	}
	// Un segundo SIGINT vuelve a matar el proceso.
	cancel()

	// Los envíos en vuelo siguen hasta su receipt o hasta el timeout.
	closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.InactivityTimeout()+30*time.Second)
	defer closeCancel()
	if err := manager.Close(closeCtx); err != nil {
		slog.Warn("sessions closed with errors", "err", err)
	}

	slog.Info("swipebot stopped cleanly")
}

// sessionContext keeps ctx's values but not its cancellation. The signal only
// stops the REPL; manager.Close bounds the wait for in-flight submissions.
func sessionContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
