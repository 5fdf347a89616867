// Package config builds the pipeline configuration from the process environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// CoinGecko API tiers.
const (
	TierDemo    = "demo"
	TierPro     = "pro"
	TierAnalyst = "analyst"
)

// CoinGecko base URLs and auth headers.
const (
	CoinGeckoFreeURL    = "https://api.coingecko.com/api/v3"
	CoinGeckoProURL     = "https://pro-api.coingecko.com/api/v3"
	CoinGeckoDemoHeader = "x-cg-demo-api-key"
	CoinGeckoProHeader  = "x-cg-pro-api-key"
)

// Config is constructed once at process start and passed to every component.
type Config struct {
	CoinGecko   CoinGeckoConfig
	DexScreener DexScreenerConfig
	TVL         TVLConfig
	HTTP        HTTPConfig
	Paths       PathsConfig
	Log         LogConfig
	Sinks       SinksConfig

	// ProtocolSlugs are fetched individually by the DeFiLlama extractor.
	ProtocolSlugs []string
}

// CoinGeckoConfig holds market-data API settings.
type CoinGeckoConfig struct {
	APIKey     string
	Tier       string
	VSCurrency string
	PerPage    int
	Pages      int
	Days       int
	TokenIDs   []string
}

// DexScreenerConfig holds DEX-pair API settings.
type DexScreenerConfig struct {
	Chains         []string
	Dexes          []string
	TokenAddresses []string
	PairLimit      int
}

// TVLConfig controls the batched historical-TVL collector.
type TVLConfig struct {
	BatchSize    int
	RequestDelay time.Duration
	BatchDelay   time.Duration
	WindowDays   int
	MaxProtocols int
}

// HTTPConfig controls the fetch layer.
type HTTPConfig struct {
	Timeout     time.Duration
	MaxAttempts int
}

// PathsConfig holds the raw and processed data directories.
type PathsConfig struct {
	RawDir       string
	ProcessedDir string
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string
	Pretty bool
}

// SinksConfig lists optional external services. Empty values disable them.
type SinksConfig struct {
	PostgresDSN   string
	ClickHouseDSN string
	RedisAddr     string
	CacheTTL      time.Duration
	MetricsAddr   string
	Schedule      string
}

// env mirrors the environment variables. List values arrive comma separated.
type env struct {
	CoinGeckoAPIKey   string        `env:"COINGECKO_API_KEY"`
	CoinGeckoTier     string        `env:"COINGECKO_API_TIER,default=demo"`
	VSCurrency        string        `env:"VS_CURRENCY,default=usd"`
	PerPage           int           `env:"COINGECKO_PER_PAGE,default=200"`
	Pages             int           `env:"COINGECKO_PAGES,default=1"`
	HistoryDays       int           `env:"HISTORY_DAYS,default=30"`
	TokenIDs          string        `env:"TOKEN_IDS_FOR_HISTORY"`
	ProtocolSlugs     string        `env:"PROTOCOL_SLUGS"`
	DexChains         string        `env:"DEX_CHAINS"`
	DexNames          string        `env:"DEX_NAMES"`
	DexTokenAddresses string        `env:"DEX_TOKEN_ADDRESSES"`
	DexPairLimit      int           `env:"DEX_PAIR_LIMIT,default=100"`
	BatchSize         int           `env:"TVL_BATCH_SIZE,default=50"`
	RequestDelay      time.Duration `env:"TVL_REQUEST_DELAY,default=100ms"`
	BatchDelay        time.Duration `env:"TVL_BATCH_DELAY,default=1s"`
	WindowDays        int           `env:"TVL_WINDOW_DAYS,default=30"`
	MaxProtocols      int           `env:"TVL_MAX_PROTOCOLS,default=0"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT,default=30s"`
	HTTPMaxAttempts   int           `env:"HTTP_MAX_ATTEMPTS,default=5"`
	RawDir            string        `env:"RAW_DATA_DIR,default=data/raw"`
	ProcessedDir      string        `env:"PROCESSED_DATA_DIR,default=data/processed"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	LogPretty         bool          `env:"LOG_PRETTY,default=false"`
	PostgresDSN       string        `env:"POSTGRES_DSN"`
	ClickHouseDSN     string        `env:"CLICKHOUSE_DSN"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	CacheTTL          time.Duration `env:"CACHE_TTL,default=10m"`
	MetricsAddr       string        `env:"METRICS_ADDR"`
	Schedule          string        `env:"SCHEDULE"`
}

// Default list values.
var (
	DefaultTokenIDs      = []string{"bitcoin", "ethereum", "solana"}
	DefaultProtocolSlugs = []string{"uniswap", "aave", "compound", "makerdao", "curve"}
	DefaultDexChains     = []string{"ethereum", "bsc", "solana", "polygon", "arbitrum"}
	DefaultDexNames      = []string{"uniswap", "pancakeswap", "raydium", "sushiswap"}
	DefaultDexTokens     = []string{
		"0xa0b86a33e6441b8b4b0d3325a7e3944f0a0e5b8a",
		"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599",
		"0xbb4cdb9cbd36b01bd1cbaef2af08854d3d3d31f5",
		"0x2170ed0880ac9a755fd29b2688956bd959f933f8",
		"So11111111111111111111111111111111111111112",
	}
)

// Load reads an optional .env file, decodes the environment and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var e env
	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	cfg := fromEnv(e)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no environment variable is set.
func Default() *Config {
	return fromEnv(env{
		CoinGeckoTier:   TierDemo,
		VSCurrency:      "usd",
		PerPage:         200,
		Pages:           1,
		HistoryDays:     30,
		DexPairLimit:    100,
		BatchSize:       50,
		RequestDelay:    100 * time.Millisecond,
		BatchDelay:      time.Second,
		WindowDays:      30,
		HTTPTimeout:     30 * time.Second,
		HTTPMaxAttempts: 5,
		RawDir:          "data/raw",
		ProcessedDir:    "data/processed",
		LogLevel:        "info",
		CacheTTL:        10 * time.Minute,
	})
}

func fromEnv(e env) *Config {
	return &Config{
		CoinGecko: CoinGeckoConfig{
			APIKey:     e.CoinGeckoAPIKey,
			Tier:       strings.ToLower(strings.TrimSpace(e.CoinGeckoTier)),
			VSCurrency: e.VSCurrency,
			PerPage:    e.PerPage,
			Pages:      e.Pages,
			Days:       e.HistoryDays,
			TokenIDs:   SplitList(e.TokenIDs, DefaultTokenIDs),
		},
		DexScreener: DexScreenerConfig{
			Chains:         SplitList(e.DexChains, DefaultDexChains),
			Dexes:          SplitList(e.DexNames, DefaultDexNames),
			TokenAddresses: SplitList(e.DexTokenAddresses, DefaultDexTokens),
			PairLimit:      e.DexPairLimit,
		},
		TVL: TVLConfig{
			BatchSize:    e.BatchSize,
			RequestDelay: e.RequestDelay,
			BatchDelay:   e.BatchDelay,
			WindowDays:   e.WindowDays,
			MaxProtocols: e.MaxProtocols,
		},
		HTTP: HTTPConfig{
			Timeout:     e.HTTPTimeout,
			MaxAttempts: e.HTTPMaxAttempts,
		},
		Paths: PathsConfig{
			RawDir:       e.RawDir,
			ProcessedDir: e.ProcessedDir,
		},
		Log: LogConfig{
			Level:  e.LogLevel,
			Pretty: e.LogPretty,
		},
		Sinks: SinksConfig{
			PostgresDSN:   e.PostgresDSN,
			ClickHouseDSN: e.ClickHouseDSN,
			RedisAddr:     e.RedisAddr,
			CacheTTL:      e.CacheTTL,
			MetricsAddr:   e.MetricsAddr,
			Schedule:      e.Schedule,
		},
		ProtocolSlugs: SplitList(e.ProtocolSlugs, DefaultProtocolSlugs),
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.CoinGecko.PerPage <= 0 {
		return fmt.Errorf("COINGECKO_PER_PAGE must be positive, got %d", c.CoinGecko.PerPage)
	}
	if c.CoinGecko.Pages <= 0 {
		return fmt.Errorf("COINGECKO_PAGES must be positive, got %d", c.CoinGecko.Pages)
	}
	if c.TVL.BatchSize <= 0 {
		return fmt.Errorf("TVL_BATCH_SIZE must be positive, got %d", c.TVL.BatchSize)
	}
	if c.TVL.RequestDelay < 0 || c.TVL.BatchDelay < 0 {
		return errors.New("TVL delays must not be negative")
	}
	if c.TVL.WindowDays <= 0 {
		return fmt.Errorf("TVL_WINDOW_DAYS must be positive, got %d", c.TVL.WindowDays)
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("HTTP_MAX_ATTEMPTS must be positive, got %d", c.HTTP.MaxAttempts)
	}
	if c.Paths.RawDir == "" || c.Paths.ProcessedDir == "" {
		return errors.New("data directories must be set")
	}
	return nil
}

// CoinGeckoBaseURL selects the paid or free base URL by tier.
func (c CoinGeckoConfig) CoinGeckoBaseURL() string {
	if c.IsPaidTier() {
		return CoinGeckoProURL
	}
	return CoinGeckoFreeURL
}

// IsPaidTier reports whether the tier uses the pro endpoint.
func (c CoinGeckoConfig) IsPaidTier() bool {
	return c.Tier == TierPro || c.Tier == TierAnalyst
}

// Headers returns the auth header for the configured tier.
// The demo header is only sent when a key is present.
func (c CoinGeckoConfig) Headers() map[string]string {
	if c.IsPaidTier() {
		return map[string]string{CoinGeckoProHeader: c.APIKey}
	}
	if c.APIKey != "" {
		return map[string]string{CoinGeckoDemoHeader: c.APIKey}
	}
	return map[string]string{}
}

// SplitList splits a comma separated value, dropping blanks.
// Returns def when nothing remains.
func SplitList(raw string, def []string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
