package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/camuig/whale-dashboard/internal/backend"
	"github.com/camuig/whale-dashboard/internal/config"
	"github.com/camuig/whale-dashboard/internal/logger"
	"github.com/camuig/whale-dashboard/internal/scheduler"
	"github.com/camuig/whale-dashboard/internal/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "print the digest without sending it")
	topN := flag.Int("top", 0, "assets per side (defaults to digest.top_n)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *topN > 0 {
		cfg.Digest.TopN = *topN
	}

	log := logger.New(cfg.Logging.Level)

	client, err := backend.NewClient(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend init error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		digest := scheduler.NewDigest(client, nil, nil, cfg, log)
		text, _, err := digest.Build(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "digest error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(text)
		fmt.Println("\nDry run, nothing sent.")
		return
	}

	notifier := telegram.NewNotifier(cfg, log)
	if !notifier.Enabled() {
		fmt.Fprintln(os.Stderr, "telegram is not configured; use -dry-run to print only")
		os.Exit(1)
	}

	digest := scheduler.NewDigest(client, notifier, nil, cfg, log)
	text, err := digest.RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "digest error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(text)
	fmt.Println("\nDigest sent.")
}
