package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbscan/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	opportunitiesTable       = "arbitrage_opportunities"
	minuteOpportunitiesTable = "arbitrage_opportunities_minute"
)

var opportunityColumns = []string{
	"dex_tx_hash", "dex_log_index", "cex_trade_id", "occurred_at", "buy_at", "sell_at",
	"dex_price", "cex_price", "price_diff_percent", "profit", "profit_rate", "volume",
	"relative_spread", "direction",
}

var minuteOpportunityColumns = []string{
	"minute_at", "dex_price", "cex_price", "dex_trade_count", "cex_trade_count",
	"price_diff_percent", "profit", "profit_rate", "direction",
}

// DBPool is the subset of pgxpool.Pool used by the repository.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	Pool DBPool
}

// NewPostgresRepository creates a repository on the given pool.
func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

// NewPool connects to PostgreSQL and verifies the connection.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded SQL files in lexical order. They are idempotent.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := r.Pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

const selectDexSwaps = `
	SELECT id, COALESCE(tx_hash, ''), COALESCE(log_index, 0), traded_at,
		COALESCE(amount_a, 0), COALESCE(amount_b, 0), COALESCE(price, 0),
		COALESCE(block_number, 0), block_number IS NOT NULL,
		COALESCE(transaction_index, 0), COALESCE(sender, ''), COALESCE(recipient, ''),
		COALESCE(gas_used, 0)::float8, gas_used IS NOT NULL,
		COALESCE(sqrt_price_x96::text, ''), COALESCE(tick, 0)::bigint
	FROM dex_swaps
	WHERE traded_at IS NOT NULL
	ORDER BY block_number ASC NULLS LAST, transaction_index ASC NULLS FIRST, log_index ASC
`

// LoadDexSwaps loads every swap in block order.
func (r *PostgresRepository) LoadDexSwaps(ctx context.Context) ([]model.DexSwapRow, error) {
	rows, err := r.Pool.Query(ctx, selectDexSwaps)
	if err != nil {
		return nil, fmt.Errorf("query dex swaps: %w", err)
	}
	defer rows.Close()

	var out []model.DexSwapRow
	for rows.Next() {
		var s model.DexSwapRow
		if err := rows.Scan(
			&s.ID, &s.TxHash, &s.LogIndex, &s.TradedAt,
			&s.AmountA, &s.AmountB, &s.Price,
			&s.BlockNumber, &s.HasBlock,
			&s.TransactionIndex, &s.Sender, &s.Recipient,
			&s.GasUsed, &s.HasGasUsed,
			&s.SqrtPriceX96, &s.Tick,
		); err != nil {
			return nil, fmt.Errorf("scan dex swap: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dex swaps: %w", err)
	}
	return out, nil
}

const selectCexTrades = `
	SELECT id, traded_at, COALESCE(price, 0), COALESCE(quantity, 0)
	FROM cex_trades
	WHERE traded_at IS NOT NULL
	ORDER BY traded_at ASC, id ASC
`

// LoadCexTrades loads every exchange trade in time order.
func (r *PostgresRepository) LoadCexTrades(ctx context.Context) ([]model.CexTradeRow, error) {
	rows, err := r.Pool.Query(ctx, selectCexTrades)
	if err != nil {
		return nil, fmt.Errorf("query cex trades: %w", err)
	}
	defer rows.Close()

	var out []model.CexTradeRow
	for rows.Next() {
		var c model.CexTradeRow
		if err := rows.Scan(&c.ID, &c.TradedAt, &c.Price, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan cex trade: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cex trades: %w", err)
	}
	return out, nil
}

// ReplaceOpportunities swaps the content of arbitrage_opportunities for opps.
func (r *PostgresRepository) ReplaceOpportunities(ctx context.Context, opps []model.Opportunity) error {
	return r.replace(ctx, opportunitiesTable, opportunityColumns, len(opps), func(i int) ([]any, error) {
		o := opps[i]
		return []any{
			o.DexTxHash, o.DexLogIndex, o.CexTradeID, o.OccurredAt, o.BuyAt, o.SellAt,
			o.DexPrice, o.CexPrice, o.PriceDiffPercent, o.Profit, o.ProfitRate, o.Volume,
			o.RelativeSpread, string(o.Direction),
		}, nil
	})
}

// ReplaceMinuteOpportunities swaps the content of arbitrage_opportunities_minute for opps.
func (r *PostgresRepository) ReplaceMinuteOpportunities(ctx context.Context, opps []model.MinuteOpportunity) error {
	return r.replace(ctx, minuteOpportunitiesTable, minuteOpportunityColumns, len(opps), func(i int) ([]any, error) {
		o := opps[i]
		return []any{
			o.Minute, o.DexPrice, o.CexPrice, o.DexTradeCount, o.CexTradeCount,
			o.PriceDiffPercent, o.Profit, o.ProfitRate, string(o.Direction),
		}, nil
	})
}

// replace deletes all rows of table and copies n new rows in one transaction.
// Any failure rolls the transaction back.
func (r *PostgresRepository) replace(ctx context.Context, table string, columns []string, n int, row func(int) ([]any, error)) (err error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrStoreWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrStoreWrite, table, err)
	}

	if n > 0 {
		var copied int64
		copied, err = tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromSlice(n, row))
		if err != nil {
			return fmt.Errorf("%w: copy into %s: %w", ErrStoreWrite, table, err)
		}
		if copied != int64(n) {
			err = fmt.Errorf("%w: copied %d of %d rows into %s", ErrStoreWrite, copied, n, table)
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit %s: %w", ErrStoreWrite, table, err)
	}
	return nil
}
