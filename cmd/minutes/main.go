// Command minutes compares per-minute average prices of both venues and
// replaces the arbitrage_opportunities_minute table with the result.
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
	start := pflag.String("start", "", "first minute to aggregate, RFC 3339, 2006-01-02[ 15:04[:05]] UTC or unix seconds")
	end := pflag.String("end", "", "last minute to aggregate, same formats as --start")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("cannot load config", "error", err)
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("start") {
		cfg.Minute.Start = *start
	}
	if pflag.CommandLine.Changed("end") {
		cfg.Minute.End = *end
	}
	from, to, err := cfg.Minute.Range()
	if err != nil {
		slog.Error("invalid time range", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, &cfg, arbitrage.TimeRange{Start: from, End: to}); err != nil {
		logger.Error("Minute computation failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, rng arbitrage.TimeRange) error {
	pool, err := database.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := database.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	logger.Info("Starting minute computation",
		"minProfitRate", cfg.Minute.MinProfitRate,
		"start", rng.Start,
		"end", rng.End,
	)

	engine := arbitrage.NewArbitrageEngine(logger, repo, cfg)
	_, err = engine.RunMinutes(ctx, rng)
	return err
}
