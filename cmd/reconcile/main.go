package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cineseat/internal/pricing"
	"cineseat/internal/reconcile"
	"cineseat/internal/shared/config"
	"cineseat/internal/shared/database"
	"cineseat/pkg/cache"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		sessionFlag = flag.String("session", "", "reconcile a single session id")
		dryRun      = flag.Bool("dry-run", false, "report what would change without writing")
		batchSize   = flag.Int("batch-size", 0, "sessions per page (default from RECONCILE_BATCH_SIZE)")
		limit       = flag.Int("limit", 0, "stop after this many sessions, 0 for all")
		txPolicy    = flag.String("tx-policy", "", "auto or required (default from RECONCILE_TX_POLICY)")
		asJSON      = flag.Bool("json", false, "print the report as JSON")
	)
	flag.Parse()

	_ = godotenv.Load()
	logger.SetDefault(logger.NewWithWriter(os.Stderr, slog.LevelWarn))
	log := logger.GetDefault()

	policy, err := reconcile.ParseTxPolicy(*txPolicy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", slog.Any("error", err))
		return 2
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Error("Failed to initialize database", slog.Any("error", err))
		return 1
	}
	defer db.Close()

	var cacheService cache.Service
	if db.Redis != nil {
		cacheService = cache.NewService(db.Redis)
	}
	prices := pricing.NewService(pricing.NewRepository(db.Primary), cacheService, cfg)
	engine := reconcile.NewEngine(reconcile.NewStore(db.Primary), prices, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch := &reconcile.BatchReport{}
	if *sessionFlag != "" {
		sessionID, err := uuid.Parse(*sessionFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid session id %q\n", *sessionFlag)
			return 2
		}
		report, _ := engine.ReconcileSession(ctx, sessionID, reconcile.Options{DryRun: *dryRun, TxPolicy: policy})
		batch.Add(report)
	} else {
		batch, err = engine.ReconcileAll(ctx, reconcile.BatchOptions{
			BatchSize: *batchSize,
			Limit:     *limit,
			DryRun:    *dryRun,
			TxPolicy:  policy,
		})
		if err != nil {
			log.Error("Reconciliation aborted", slog.Any("error", err))
			if batch == nil {
				return 1
			}
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(batch); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else if err := batch.WriteTable(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err != nil || batch.Totals.Failed > 0 {
		return 1
	}
	return 0
}
