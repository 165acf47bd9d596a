package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/camuig/whale-dashboard/internal/backend"
	"github.com/camuig/whale-dashboard/internal/config"
	"github.com/camuig/whale-dashboard/internal/logger"
	"github.com/camuig/whale-dashboard/internal/scheduler"
	"github.com/camuig/whale-dashboard/internal/sorting"
	"github.com/camuig/whale-dashboard/internal/storage"
	"github.com/camuig/whale-dashboard/internal/telegram"
	"github.com/camuig/whale-dashboard/internal/view"
	"github.com/camuig/whale-dashboard/internal/web"
)

const historyRetention = 30 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "data/whale-dashboard.db", "path to SQLite database")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Init logger
	log := logger.New(cfg.Logging.Level)
	log.Info("starting whale-dashboard", "backend", cfg.Backend.BaseURL)

	// Init query history
	var (
		recorder  view.Recorder
		history   web.History
		digestRec scheduler.Recorder
	)
	if cfg.StorageEnabled() {
		db, err := storage.NewDatabase(*dbPath)
		if err != nil {
			log.Error("database init failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := storage.Close(db); err != nil {
				log.Error("database close error", "error", err)
			}
		}()

		repo := storage.NewRepository(db)
		if n, err := repo.Prune(time.Now().Add(-historyRetention)); err != nil {
			log.Warn("prune query history", "error", err)
		} else if n > 0 {
			log.Info("query history pruned", "removed", n)
		}
		recorder, history, digestRec = repo, repo, repo
	}

	// Init services
	client, err := backend.NewClient(cfg, log.With("component", "backend"))
	if err != nil {
		log.Error("backend client init failed", "error", err)
		os.Exit(1)
	}

	var sortOpts []sorting.Option
	if cfg.Web.StableSort {
		sortOpts = append(sortOpts, sorting.WithStableTieBreak())
	}
	sorter := sorting.NewEngine(sortOpts...)

	renderOpts := view.RenderOptions{ExplorerURL: cfg.Web.ExplorerURL, Location: cfg.Location()}
	factory := func() *view.Dashboard {
		return view.NewDashboard(view.Bindings(client, renderOpts), sorter, log, recorder)
	}

	webServer, err := web.NewServer(cfg, factory, history, log)
	if err != nil {
		log.Error("web server init failed", "error", err)
		os.Exit(1)
	}

	notifier := telegram.NewNotifier(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(webServer.Start)

	if cfg.Digest.Enabled {
		digest := scheduler.NewDigest(client, notifier, digestRec, cfg, log)
		g.Go(func() error {
			digest.Run(gctx)
			return nil
		})
	}

	notifier.NotifyStatus("🐋 Whale dashboard started")

	// Wait for shutdown signal or a failed component
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("web server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("whale-dashboard stopped with error", "error", err)
		notifier.NotifyError("shutdown", err)
		os.Exit(1)
	}

	notifier.NotifyStatus("🛑 Whale dashboard stopped")
	log.Info("whale-dashboard stopped")
}
