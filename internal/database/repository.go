package database

import (
	"context"
	"errors"

	"arbscan/internal/model"
)

// ErrStoreWrite wraps every failure of a full-replace write. The previous rows
// are left untouched when it is returned.
var ErrStoreWrite = errors.New("opportunity store write failed")

// TradeSource loads the raw trades of both venues.
type TradeSource interface {
	// LoadDexSwaps returns swaps ordered by (block number, transaction index, log index).
	LoadDexSwaps(ctx context.Context) ([]model.DexSwapRow, error)
	// LoadCexTrades returns trades ordered by timestamp.
	LoadCexTrades(ctx context.Context) ([]model.CexTradeRow, error)
}

// OpportunityStore replaces the computed results. Each call deletes every
// prior row of its table and inserts the new set as one unit.
type OpportunityStore interface {
	ReplaceOpportunities(ctx context.Context, opps []model.Opportunity) error
	ReplaceMinuteOpportunities(ctx context.Context, opps []model.MinuteOpportunity) error
}

// Repository defines the standard interface for database operations.
type Repository interface {
	TradeSource
	OpportunityStore
	Migrate(ctx context.Context) error
}
