package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/model"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPostgresRepository(mockPool)
}

func sampleOpportunities() []model.Opportunity {
	at := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	return []model.Opportunity{
		{
			DexTxHash: "0xabc", DexLogIndex: 1, CexTradeID: 7,
			OccurredAt: at, BuyAt: at, SellAt: at.Add(100 * time.Second),
			DexPrice: 2500, CexPrice: 2550, PriceDiffPercent: 1.98, Profit: 64.8,
			ProfitRate: 0.0129, Volume: 2, RelativeSpread: 0.0198, Direction: model.RouteDexToCex,
		},
		{
			DexTxHash: "0xdef", DexLogIndex: 0, CexTradeID: 8,
			OccurredAt: at, BuyAt: at, SellAt: at.Add(10 * time.Second),
			DexPrice: 2600, CexPrice: 2550, PriceDiffPercent: 1.94, Profit: 30,
			ProfitRate: 0.01, Volume: 1, RelativeSpread: 0.0194, Direction: model.RouteCexToDex,
		},
	}
}

func TestPostgresRepository_ReplaceOpportunities(t *testing.T) {
	ctx := context.Background()

	t.Run("delete then copy in one transaction", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM arbitrage_opportunities").WillReturnResult(pgxmock.NewResult("DELETE", 5))
		mock.ExpectCopyFrom(pgx.Identifier{"arbitrage_opportunities"}, opportunityColumns).WillReturnResult(2)
		mock.ExpectCommit()

		err := repo.ReplaceOpportunities(ctx, sampleOpportunities())
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty set only clears the table", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM arbitrage_opportunities").WillReturnResult(pgxmock.NewResult("DELETE", 5))
		mock.ExpectCommit()

		err := repo.ReplaceOpportunities(ctx, nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete failure rolls back", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM arbitrage_opportunities").WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		err := repo.ReplaceOpportunities(ctx, sampleOpportunities())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStoreWrite)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back the delete", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM arbitrage_opportunities").WillReturnResult(pgxmock.NewResult("DELETE", 5))
		mock.ExpectCopyFrom(pgx.Identifier{"arbitrage_opportunities"}, opportunityColumns).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := repo.ReplaceOpportunities(ctx, sampleOpportunities())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStoreWrite)
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short copy is a failure", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM arbitrage_opportunities").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectCopyFrom(pgx.Identifier{"arbitrage_opportunities"}, opportunityColumns).WillReturnResult(1)
		mock.ExpectRollback()

		err := repo.ReplaceOpportunities(ctx, sampleOpportunities())
		assert.ErrorIs(t, err, ErrStoreWrite)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err := repo.ReplaceOpportunities(ctx, sampleOpportunities())
		assert.ErrorIs(t, err, ErrStoreWrite)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_ReplaceMinuteOpportunities(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMockRepo(t)

	opps := []model.MinuteOpportunity{{
		Minute: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC), DexPrice: 2500, CexPrice: 2520,
		DexTradeCount: 3, CexTradeCount: 5, PriceDiffPercent: 0.8, Profit: 7.4, ProfitRate: 0.0029,
		Direction: model.RouteDexToCex,
	}}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM arbitrage_opportunities_minute").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"arbitrage_opportunities_minute"}, minuteOpportunityColumns).WillReturnResult(1)
	mock.ExpectCommit()

	assert.NoError(t, repo.ReplaceMinuteOpportunities(ctx, opps))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LoadDexSwaps(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMockRepo(t)
	at := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	cols := []string{
		"id", "tx_hash", "log_index", "traded_at", "amount_a", "amount_b", "price",
		"block_number", "has_block", "transaction_index", "sender", "recipient",
		"gas_used", "has_gas_used", "sqrt_price_x96", "tick",
	}
	mock.ExpectQuery("FROM dex_swaps").WillReturnRows(pgxmock.NewRows(cols).
		AddRow(int64(1), "0xabc", 2, at, -5000.0, 2.0, 2500.0, int64(100), true, 3, "0xs", "0xr", 150000.0, true, "79228162514264337593543950336", int64(-200)).
		AddRow(int64(2), "0xdef", 0, at, 2500.0, -1.0, 2500.0, int64(0), false, 0, "", "", 0.0, false, "", int64(0)))

	swaps, err := repo.LoadDexSwaps(ctx)
	require.NoError(t, err)
	require.Len(t, swaps, 2)
	assert.Equal(t, "0xabc", swaps[0].TxHash)
	assert.Equal(t, int64(100), swaps[0].BlockNumber)
	assert.True(t, swaps[0].HasBlock)
	assert.Equal(t, 150000.0, swaps[0].GasUsed)
	assert.Equal(t, int64(-200), swaps[0].Tick)
	assert.False(t, swaps[1].HasBlock)
	assert.False(t, swaps[1].HasGasUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LoadCexTrades(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMockRepo(t)
	at := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM cex_trades").WillReturnRows(pgxmock.NewRows([]string{"id", "traded_at", "price", "quantity"}).
		AddRow(int64(10), at, 2550.0, 3.0))

	trades, err := repo.LoadCexTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, model.CexTradeRow{ID: 10, TradedAt: at, Price: 2550, Quantity: 3}, trades[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LoadQueryError(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("FROM cex_trades").WillReturnError(errors.New("relation does not exist"))

	_, err := repo.LoadCexTrades(ctx)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Migrate(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMockRepo(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS dex_swaps").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, repo.Migrate(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
