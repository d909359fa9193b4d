// Command pairs matches filtered DEX swaps against CEX trades and replaces
// the arbitrage_opportunities table with the result.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"arbscan/internal/arbitrage"
	"arbscan/internal/config"
	"arbscan/internal/database"
	"arbscan/internal/logging"
)

func main() {
	configPath := pflag.StringP("config", "c", ".", "directory containing config.yaml and .env")
	workers := pflag.IntP("workers", "w", 0, "number of parallel matcher partitions (overrides matching.workers)")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("cannot load config", "error", err)
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("workers") {
		cfg.Matching.Workers = *workers
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid flags", "error", err)
			os.Exit(1)
		}
	}

	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, &cfg); err != nil {
		logger.Error("Pair computation failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	pool, err := database.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := database.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	logger.Info("Starting pair computation",
		"windowSeconds", cfg.Matching.WindowSeconds,
		"minRelativeSpread", cfg.Matching.MinRelativeSpread,
		"workers", cfg.Matching.Workers,
		"knownAddresses", len(cfg.Filter.KnownAddresses),
	)

	engine := arbitrage.NewArbitrageEngine(logger, repo, cfg)
	_, err = engine.RunPairs(ctx)
	return err
}
