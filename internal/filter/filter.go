// Package filter removes DEX swaps that do not reflect a single retail actor's
// direct swap before they are matched against CEX trades.
package filter

import (
	"log/slog"

	"arbscan/internal/model"
)

// Result is the output of a stage: the trades that passed and how many were
// excluded for each reason.
type Result struct {
	Kept     []model.DexTrade
	Excluded map[string]int
}

// ExcludedTotal sums the exclusions over every reason.
func (r Result) ExcludedTotal() int {
	total := 0
	for _, n := range r.Excluded {
		total += n
	}
	return total
}

// Stage is a pure filter over DEX trades. Implementations must not perform I/O
// and must return the same result for the same input.
type Stage interface {
	Name() string
	Apply(trades []model.DexTrade) Result
}

// Pipeline applies stages in order and reports what each one excluded.
type Pipeline struct {
	logger *slog.Logger
	stages []Stage
}

// NewPipeline creates a Pipeline running the given stages in sequence.
func NewPipeline(logger *slog.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{logger: logger, stages: stages}
}

// NewDefaultPipeline builds the known-actor, simple-swap and first-mover stages.
func NewDefaultPipeline(logger *slog.Logger, knownAddresses []string, maxGas float64) *Pipeline {
	return NewPipeline(logger,
		NewKnownActorStage(knownAddresses),
		NewSimpleSwapStage(maxGas),
		NewFirstMoverStage(),
	)
}

// Run applies every stage. Trades are expected in (block, tx index, log index) order.
func (p *Pipeline) Run(trades []model.DexTrade) []model.DexTrade {
	for _, stage := range p.stages {
		res := stage.Apply(trades)
		for reason, n := range res.Excluded {
			if n == 0 {
				continue
			}
			p.logger.Info("Filter stage excluded swaps",
				"stage", stage.Name(),
				"reason", reason,
				"excluded", n,
			)
		}
		p.logger.Info("Filter stage done",
			"stage", stage.Name(),
			"excluded", res.ExcludedTotal(),
			"remaining", len(res.Kept),
		)
		trades = res.Kept
	}
	return trades
}
