package arbitrage

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/model"
)

// Pair is a DEX swap and a CEX trade that together form a profitable,
// causally ordered arbitrage.
type Pair struct {
	Dex            model.DexTrade
	Cex            model.CexTrade
	CexDirection   model.Direction
	Route          model.Route
	RelativeSpread float64
	Result         ProfitResult
}

// Opportunity converts the pair into its persisted form.
func (p Pair) Opportunity() model.Opportunity {
	buyAt := time.Unix(p.Result.Buy.Timestamp, 0).UTC()
	sellAt := time.Unix(p.Result.Sell.Timestamp, 0).UTC()
	occurred := buyAt
	if sellAt.Before(buyAt) {
		occurred = sellAt
	}
	return model.Opportunity{
		DexTxHash:        p.Dex.TxHash,
		DexLogIndex:      p.Dex.LogIndex,
		CexTradeID:       p.Cex.ID,
		OccurredAt:       occurred,
		BuyAt:            buyAt,
		SellAt:           sellAt,
		DexPrice:         p.Dex.Price,
		CexPrice:         p.Cex.Price,
		PriceDiffPercent: p.RelativeSpread * 100,
		Profit:           p.Result.NetProfit,
		ProfitRate:       p.Result.ProfitRate,
		Volume:           p.Result.Volume,
		RelativeSpread:   p.RelativeSpread,
		Direction:        p.Route,
	}
}

// Matcher pairs DEX swaps with CEX trades inside a symmetric time window.
type Matcher struct {
	logger    *slog.Logger
	window    int64
	minSpread float64
	workers   int
}

// NewMatcher creates a Matcher. window is the radius in seconds, minSpread the
// minimum relative spread and workers the number of DEX partitions scored in parallel.
func NewMatcher(logger *slog.Logger, window int64, minSpread float64, workers int) *Matcher {
	if workers < 1 {
		workers = 1
	}
	return &Matcher{logger: logger, window: window, minSpread: minSpread, workers: workers}
}

// cexIndex is the CEX side sorted by timestamp with a parallel timestamp array.
type cexIndex struct {
	trades []model.CexTrade
	ts     []int64
}

func newCexIndex(trades []model.CexTrade) *cexIndex {
	sorted := slices.Clone(trades)
	slices.SortStableFunc(sorted, func(a, b model.CexTrade) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	ts := make([]int64, len(sorted))
	for i, t := range sorted {
		ts[i] = t.Timestamp
	}
	return &cexIndex{trades: sorted, ts: ts}
}

// between returns the trades with start <= timestamp <= end.
func (x *cexIndex) between(start, end int64) []model.CexTrade {
	left := sort.Search(len(x.ts), func(i int) bool { return x.ts[i] >= start })
	right := sort.Search(len(x.ts), func(i int) bool { return x.ts[i] > end })
	if left >= right {
		return nil
	}
	return x.trades[left:right]
}

// Match scores every DEX trade against the CEX trades in its window and
// returns the profitable pairs sorted by relative spread, highest first.
// Legs are not exclusive: a trade may appear in several pairs.
func (m *Matcher) Match(ctx context.Context, dex []model.DexTrade, cex []model.CexTrade) ([]Pair, error) {
	if len(dex) == 0 || len(cex) == 0 {
		return nil, nil
	}

	idx := newCexIndex(cex)
	workers := min(m.workers, len(dex))
	chunk := (len(dex) + workers - 1) / workers
	parts := make([][]Pair, workers)
	progress := newProgress(m.logger, len(dex))

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(dex))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			var out []Pair
			for _, d := range dex[lo:hi] {
				if err := gctx.Err(); err != nil {
					return err
				}
				out = m.matchOne(d, idx, out)
				progress.tick()
			}
			parts[w] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pairs := slices.Concat(parts...)
	slices.SortStableFunc(pairs, func(a, b Pair) int {
		return cmp.Compare(b.RelativeSpread, a.RelativeSpread)
	})
	return pairs, nil
}

func (m *Matcher) matchOne(d model.DexTrade, idx *cexIndex, out []Pair) []Pair {
	for _, c := range idx.between(d.Timestamp-m.window, d.Timestamp+m.window) {
		cexDir, ok := EffectiveDirection(d, c)
		if !ok {
			continue
		}

		spread := RelativeSpread(d.Price, c.Price)
		if spread < m.minSpread {
			continue
		}

		res, route, ok := EvaluatePair(d, c, cexDir)
		if !ok || !res.Profitable() {
			continue
		}

		// the buy has to happen before the compensating sale
		if res.Buy.Timestamp >= res.Sell.Timestamp {
			continue
		}

		out = append(out, Pair{
			Dex:            d,
			Cex:            c,
			CexDirection:   cexDir,
			Route:          route,
			RelativeSpread: spread,
			Result:         res,
		})
	}
	return out
}

// progress logs roughly every 10% of processed DEX trades.
type progress struct {
	logger   *slog.Logger
	total    int64
	interval int64
	done     atomic.Int64
}

func newProgress(logger *slog.Logger, total int) *progress {
	return &progress{logger: logger, total: int64(total), interval: max(1, int64(total)/10)}
}

func (p *progress) tick() {
	n := p.done.Add(1)
	if n%p.interval == 0 || n == p.total {
		p.logger.Info("Matching progress", "processed", n, "total", p.total)
	}
}
