package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"arbscan/internal/model"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Matching MatchingConfig `mapstructure:"matching"`
	Minute   MinuteConfig   `mapstructure:"minute"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Venues   VenuesConfig   `mapstructure:"venues"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// MatchingConfig defines the pairwise matcher settings.
type MatchingConfig struct {
	WindowSeconds     int64   `mapstructure:"window_seconds"`
	MinRelativeSpread float64 `mapstructure:"min_relative_spread"`
	Workers           int     `mapstructure:"workers"`
}

// MinuteConfig defines the minute aggregator settings. Start and End are
// optional time bounds, see ParseTimeBound.
type MinuteConfig struct {
	MinProfitRate float64 `mapstructure:"min_profit_rate"`
	Start         string  `mapstructure:"start"`
	End           string  `mapstructure:"end"`
}

// FilterConfig defines the heuristic DEX filters.
type FilterConfig struct {
	KnownAddresses   []string `mapstructure:"known_addresses"`
	MaxGasSimpleSwap float64  `mapstructure:"max_gas_simple_swap"`
}

// VenuesConfig holds the trading costs of both venues.
type VenuesConfig struct {
	Dex CostConfig `mapstructure:"dex"`
	Cex CostConfig `mapstructure:"cex"`
}

// CostConfig defines fee and slippage of a venue as fractions.
type CostConfig struct {
	FeeRate  float64 `mapstructure:"fee_rate"`
	Slippage float64 `mapstructure:"slippage"`
}

func (c CostConfig) Costs() model.Costs {
	return model.Costs{FeeRate: c.FeeRate, Slippage: c.Slippage}
}

// DatabaseConfig defines the database connection settings. URL wins over the
// individual fields when set.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection string for pgx.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// LogConfig defines the logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultKnownAddresses are routers, aggregators and bot addresses whose
// swaps do not represent a single direct trade.
var DefaultKnownAddresses = []string{
	// Uniswap
	"0x7a250d5630b4cf539739df2c5dacb4c659f2488d",
	"0xf164fc0ec4e93095b804a4795bbe1e041497b92a",
	"0xe592427a0aece92de3edee1f18e0157c05861564",
	"0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45",
	"0x5c69bee701ef814a2b6a3edd4b1652cb9cc5aa6f",
	// 1inch
	"0x1111111254eeb25477b68fb85ed929f73a960582",
	"0x11111112542d85b3ef69ae05771c2dccff4faa26",
	"0x1111111254fb6c44bac0bed2854e76f90643097d",
	"0x111111125421ca6dc452d289314280a0f8842a65",
	// 0x
	"0xdef1c0ded9bec7f1a1670819833240f027b25eff",
	// Paraswap
	"0xdef171fe48cf0115b1d80b88dc8eab59176fee57",
	"0x880a845a85f843a5c67db2061623c6fc3bfb1f36",
	// CoW Protocol
	"0x9008d19f58aabd9ed0d60971565aa8510560ab41",
	"0x3328f5f2cecaf00a2443082b657cedeaf70bfae1",
	// SushiSwap
	"0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f",
	// Matcha
	"0x617dee16b86534a5d792a4d7a62fbcb1e6b8e2e4",
	// Curve
	"0x99c9fc46f92e8a1c0dec1b1747d010903e884be1",
	// Balancer
	"0xba12222222228d8ba445958a75a0704d566bf2c8",
	// KyberSwap
	"0xdf1ec4e6182ef4b5d12b8f1c91b9b6b9e81c5e5e",
	// Bancor
	"0x2f9ec37d6ccfff0cab22e3b4e403fa9a05edb2ef",
	// zero address, used by some MEV transactions
	"0x0000000000000000000000000000000000000000",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("matching.window_seconds", 300)
	v.SetDefault("matching.min_relative_spread", 0.01)
	v.SetDefault("matching.workers", 1)

	v.SetDefault("minute.min_profit_rate", 0.0)
	v.SetDefault("minute.start", "")
	v.SetDefault("minute.end", "")

	v.SetDefault("filter.known_addresses", DefaultKnownAddresses)
	v.SetDefault("filter.max_gas_simple_swap", 400000)

	v.SetDefault("venues.dex.fee_rate", 0.003)
	v.SetDefault("venues.dex.slippage", 0.002)
	v.SetDefault("venues.cex.fee_rate", 0.001)
	v.SetDefault("venues.cex.slippage", 0.001)

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "arbscan")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config.yaml is not an error; a .env file in path is loaded first
// when present. DATABASE_URL is honoured as database.url.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load(filepath.Join(path, ".env"))

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err = v.BindEnv("database.url", "DATABASE_URL"); err != nil {
		return
	}

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config: %w", err)
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unmarshal config: %w", err)
	}
	err = config.Validate()
	return
}

// Validate rejects settings the computation cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Matching.WindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("matching.window_seconds must not be negative, got %d", c.Matching.WindowSeconds))
	}
	if c.Matching.MinRelativeSpread < 0 {
		errs = append(errs, fmt.Errorf("matching.min_relative_spread must not be negative, got %g", c.Matching.MinRelativeSpread))
	}
	if c.Matching.Workers < 1 {
		errs = append(errs, fmt.Errorf("matching.workers must be at least 1, got %d", c.Matching.Workers))
	}
	if c.Filter.MaxGasSimpleSwap < 0 {
		errs = append(errs, fmt.Errorf("filter.max_gas_simple_swap must not be negative, got %g", c.Filter.MaxGasSimpleSwap))
	}
	venues := []struct {
		name string
		cost CostConfig
	}{{"venues.dex", c.Venues.Dex}, {"venues.cex", c.Venues.Cex}}
	for _, v := range venues {
		name, cost := v.name, v.cost
		if cost.FeeRate < 0 || cost.FeeRate >= 1 {
			errs = append(errs, fmt.Errorf("%s.fee_rate must be in [0, 1), got %g", name, cost.FeeRate))
		}
		if cost.Slippage < 0 || cost.Slippage >= 1 {
			errs = append(errs, fmt.Errorf("%s.slippage must be in [0, 1), got %g", name, cost.Slippage))
		}
	}
	if _, _, err := c.Minute.Range(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Range parses Start and End and checks that they are ordered. A zero time
// means the bound is derived from the data.
func (m MinuteConfig) Range() (start, end time.Time, err error) {
	if start, err = ParseTimeBound(m.Start); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("minute.start: %w", err)
	}
	if end, err = ParseTimeBound(m.End); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("minute.end: %w", err)
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("minute.start %s is after minute.end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimeBound accepts RFC 3339, "2006-01-02[ 15:04[:05]]" in UTC, or unix
// seconds. An empty string yields the zero time.
func ParseTimeBound(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable time %q", ErrInvalidConfig, s)
}
