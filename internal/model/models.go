package model

import (
	"math"
	"time"
)

// Direction is the side of a trade from the point of view of the base asset.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

// Venue identifies where a leg of an arbitrage is executed.
type Venue string

const (
	VenueDex Venue = "dex"
	VenueCex Venue = "cex"
)

// Route labels an arbitrage by where the base asset is bought and where it is sold.
type Route string

const (
	RouteDexToCex Route = "dex->cex"
	RouteCexToDex Route = "cex->dex"
)

// Costs holds the fixed per-venue trading costs, both as fractions (0.001 = 0.1%).
type Costs struct {
	FeeRate  float64
	Slippage float64
}

// Leg is one side of a hypothetical arbitrage.
type Leg struct {
	Venue     Venue
	Price     float64
	FeeRate   float64
	Slippage  float64
	Timestamp int64
}

// DexTrade is a normalized on-chain swap event, identified by (TxHash, LogIndex).
type DexTrade struct {
	TxHash    string
	LogIndex  int
	Timestamp int64 // unix seconds
	AmountA   float64
	AmountB   float64
	Price     float64 // B per A

	BlockNumber      int64
	HasBlock         bool
	TransactionIndex int
	Sender           string
	Recipient        string
	GasUsed          float64
	HasGasUsed       bool
	SqrtPriceX96     string
	Tick             int64

	FeeRate  float64
	Slippage float64
}

// Direction is derived from the sign of AmountB and never stored.
func (t DexTrade) Direction() Direction {
	if t.AmountB > 0 {
		return Buy
	}
	return Sell
}

// BaseVolume is the absolute amount of the base asset moved by the swap.
func (t DexTrade) BaseVolume() float64 {
	return math.Abs(t.AmountB)
}

func (t DexTrade) Leg() Leg {
	return Leg{Venue: VenueDex, Price: t.Price, FeeRate: t.FeeRate, Slippage: t.Slippage, Timestamp: t.Timestamp}
}

// CexTrade is a normalized exchange trade or kline. It carries no direction:
// the side a CEX trade plays in a match is decided per candidate by the matcher.
type CexTrade struct {
	ID        int64
	Timestamp int64 // unix seconds
	Price     float64
	Quantity  float64

	FeeRate  float64
	Slippage float64
}

func (t CexTrade) Leg() Leg {
	return Leg{Venue: VenueCex, Price: t.Price, FeeRate: t.FeeRate, Slippage: t.Slippage, Timestamp: t.Timestamp}
}

// DexSwapRow is a raw row of the dex_swaps table. Nullable columns are
// reported through the Has* flags.
type DexSwapRow struct {
	ID               int64     `db:"id"`
	TxHash           string    `db:"tx_hash"`
	LogIndex         int       `db:"log_index"`
	TradedAt         time.Time `db:"traded_at"`
	AmountA          float64   `db:"amount_a"`
	AmountB          float64   `db:"amount_b"`
	Price            float64   `db:"price"`
	BlockNumber      int64     `db:"block_number"`
	HasBlock         bool
	TransactionIndex int     `db:"transaction_index"`
	Sender           string  `db:"sender"`
	Recipient        string  `db:"recipient"`
	GasUsed          float64 `db:"gas_used"`
	HasGasUsed       bool
	SqrtPriceX96     string `db:"sqrt_price_x96"`
	Tick             int64  `db:"tick"`
}

// CexTradeRow is a raw row of the cex_trades table.
type CexTradeRow struct {
	ID       int64     `db:"id"`
	TradedAt time.Time `db:"traded_at"`
	Price    float64   `db:"price"`
	Quantity float64   `db:"quantity"`
}

// Opportunity is one matched (DEX swap, CEX trade) pair persisted to arbitrage_opportunities.
type Opportunity struct {
	ID               int64     `db:"id"`
	DexTxHash        string    `db:"dex_tx_hash"`
	DexLogIndex      int       `db:"dex_log_index"`
	CexTradeID       int64     `db:"cex_trade_id"`
	OccurredAt       time.Time `db:"occurred_at"`
	BuyAt            time.Time `db:"buy_at"`
	SellAt           time.Time `db:"sell_at"`
	DexPrice         float64   `db:"dex_price"`
	CexPrice         float64   `db:"cex_price"`
	PriceDiffPercent float64   `db:"price_diff_percent"`
	Profit           float64   `db:"profit"`
	ProfitRate       float64   `db:"profit_rate"`
	Volume           float64   `db:"volume"`
	RelativeSpread   float64   `db:"relative_spread"`
	Direction        Route     `db:"direction"`
}

// MinuteOpportunity is the best arbitrage direction for one minute where both venues traded.
// Profit is expressed per unit of base asset.
type MinuteOpportunity struct {
	ID               int64     `db:"id"`
	Minute           time.Time `db:"minute_at"`
	DexPrice         float64   `db:"dex_price"`
	CexPrice         float64   `db:"cex_price"`
	DexTradeCount    int       `db:"dex_trade_count"`
	CexTradeCount    int       `db:"cex_trade_count"`
	PriceDiffPercent float64   `db:"price_diff_percent"`
	Profit           float64   `db:"profit"`
	ProfitRate       float64   `db:"profit_rate"`
	Direction        Route     `db:"direction"`
}
