package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"arbscan/internal/config"
	"arbscan/internal/database"
	"arbscan/internal/filter"
	"arbscan/internal/model"
	"arbscan/internal/normalize"
)

// ArbitrageEngine runs the batch computations and writes their results.
type ArbitrageEngine struct {
	logger     *slog.Logger
	repo       database.Repository
	cfg        *config.Config
	normalizer *normalize.Normalizer
}

// NewArbitrageEngine creates a new instance of the ArbitrageEngine.
func NewArbitrageEngine(logger *slog.Logger, repo database.Repository, cfg *config.Config) *ArbitrageEngine {
	return &ArbitrageEngine{
		logger:     logger,
		repo:       repo,
		cfg:        cfg,
		normalizer: normalize.NewNormalizer(cfg.Venues.Dex.Costs(), cfg.Venues.Cex.Costs()),
	}
}

// RunPairs filters the DEX swaps, matches them against every CEX trade and
// replaces the opportunity table with the result.
func (e *ArbitrageEngine) RunPairs(ctx context.Context) (Summary, error) {
	logger := e.logger.With("run_id", uuid.NewString(), "job", "pairs")
	started := time.Now()

	dexRows, err := e.repo.LoadDexSwaps(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load dex swaps: %w", err)
	}
	dex := e.normalizer.DexTrades(dexRows)
	logger.Info("Loaded DEX swaps", "count", len(dex))

	pipeline := filter.NewDefaultPipeline(logger.With("component", "filter"),
		e.cfg.Filter.KnownAddresses, e.cfg.Filter.MaxGasSimpleSwap)
	dex = pipeline.Run(dex)
	logger.Info("Filtered DEX swaps", "remaining", len(dex))

	cexRows, err := e.repo.LoadCexTrades(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load cex trades: %w", err)
	}
	cex := e.normalizer.CexTrades(cexRows)
	logger.Info("Loaded CEX trades", "count", len(cex))

	matcher := NewMatcher(logger.With("component", "matcher"),
		e.cfg.Matching.WindowSeconds, e.cfg.Matching.MinRelativeSpread, e.cfg.Matching.Workers)
	pairs, err := matcher.Match(ctx, dex, cex)
	if err != nil {
		return Summary{}, fmt.Errorf("match trades: %w", err)
	}

	opps := make([]model.Opportunity, 0, len(pairs))
	for _, p := range pairs {
		opps = append(opps, p.Opportunity())
	}
	if err := e.repo.ReplaceOpportunities(ctx, opps); err != nil {
		return Summary{}, fmt.Errorf("store opportunities: %w", err)
	}

	summary := Summarize(opps)
	logger.Info("Pair computation finished",
		"opportunities", summary.Opportunities,
		"totalProfit", summary.TotalProfit.StringFixed(6),
		"avgProfitRatePercent", summary.AverageProfitRatePercent.StringFixed(4),
		"distinctDexTrades", summary.DistinctDexTrades,
		"distinctCexTrades", summary.DistinctCexTrades,
		"elapsed", time.Since(started),
	)
	if summary.ReusesLegs() {
		logger.Warn("Some trades back several opportunities; total profit counts them once per opportunity",
			"opportunities", summary.Opportunities,
			"distinctDexTrades", summary.DistinctDexTrades,
			"distinctCexTrades", summary.DistinctCexTrades,
		)
	}
	return summary, nil
}

// RunMinutes aggregates both raw streams per minute over rng and replaces the
// minute opportunity table with the result.
func (e *ArbitrageEngine) RunMinutes(ctx context.Context, rng TimeRange) (MinuteSummary, error) {
	logger := e.logger.With("run_id", uuid.NewString(), "job", "minutes")
	started := time.Now()

	dexRows, err := e.repo.LoadDexSwaps(ctx)
	if err != nil {
		return MinuteSummary{}, fmt.Errorf("load dex swaps: %w", err)
	}
	cexRows, err := e.repo.LoadCexTrades(ctx)
	if err != nil {
		return MinuteSummary{}, fmt.Errorf("load cex trades: %w", err)
	}
	dex := e.normalizer.DexTrades(dexRows)
	cex := e.normalizer.CexTrades(cexRows)
	logger.Info("Loaded trades", "dex", len(dex), "cex", len(cex), "start", rng.Start, "end", rng.End)

	agg := NewMinuteAggregator(e.cfg.Minute.MinProfitRate, e.cfg.Venues.Dex.Costs(), e.cfg.Venues.Cex.Costs())
	opps := agg.Aggregate(dex, cex, rng)

	if err := e.repo.ReplaceMinuteOpportunities(ctx, opps); err != nil {
		return MinuteSummary{}, fmt.Errorf("store minute opportunities: %w", err)
	}

	summary := SummarizeMinutes(opps)
	logger.Info("Minute computation finished",
		"minutes", summary.Minutes,
		"dexToCex", summary.DexToCex,
		"cexToDex", summary.CexToDex,
		"totalUnitProfit", summary.TotalUnitProfit.StringFixed(6),
		"avgProfitRatePercent", summary.AverageProfitRatePercent.StringFixed(4),
		"elapsed", time.Since(started),
	)
	return summary, nil
}
