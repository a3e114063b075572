package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/app"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/queue"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/joho/godotenv"
)

type options struct {
	configPath   string
	doSync       bool
	migrateLinks bool
	purgeLinks   bool
	queueStatus  bool
	timeout      time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "configPath", "", "Path to configuration file")
	flag.BoolVar(&opts.doSync, "sync", false, "Reconcile the index with channel history")
	flag.BoolVar(&opts.migrateLinks, "migrate-links", false, "Embed legacy short links into file records and delete the legacy keys")
	flag.BoolVar(&opts.purgeLinks, "purge-links", false, "Delete every legacy short link key")
	flag.BoolVar(&opts.queueStatus, "queue-status", false, "Print persisted delete queue tasks without modifying them")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall deadline")
	flag.Parse()

	if !opts.doSync && !opts.migrateLinks && !opts.purgeLinks && !opts.queueStatus {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	if err := run(opts); err != nil {
		log.Printf("Maintenance failed: %v", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.InitLogger(&cfg.Logger)

	deps, err := app.NewDeps(cfg)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warnw("Index close error", "error", err.Error())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	if opts.doSync {
		report, err := deps.Files.Sync(ctx)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		_ = out.Encode(map[string]any{"sync": report})
	}

	if opts.migrateLinks {
		report, err := deps.Links.MigrateLegacy(ctx)
		if err != nil {
			return fmt.Errorf("legacy link migration: %w", err)
		}
		_ = out.Encode(map[string]any{"migrateLinks": report})
	}

	if opts.purgeLinks {
		n, err := deps.Links.PurgeLegacy(ctx)
		if err != nil {
			return fmt.Errorf("legacy link purge: %w", err)
		}
		_ = out.Encode(map[string]any{"purgedLinks": n})
	}

	if opts.queueStatus {
		tasks, err := queue.ReadTasks(ctx, deps.TaskStore, cfg.QueueMaxRetries(), cfg.QueueRetryDelay())
		if err != nil {
			return err
		}
		_ = out.Encode(map[string]any{"deleteQueue": tasks})
	}
	return nil
}
