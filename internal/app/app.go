// Package app wires configuration, logging, the fetch layer, source clients
// and optional sinks for the command-line binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	rediscache "defi-bi-etl/internal/cache/redis"
	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/fetch"
	"defi-bi-etl/internal/logging"
	"defi-bi-etl/internal/observability"
	"defi-bi-etl/internal/sources/coingecko"
	"defi-bi-etl/internal/sources/defillama"
	"defi-bi-etl/internal/sources/dexscreener"
	"defi-bi-etl/internal/storage"
	chstore "defi-bi-etl/internal/storage/clickhouse"
	"defi-bi-etl/internal/storage/migrations"
	pgstore "defi-bi-etl/internal/storage/postgres"
)

// Runtime holds the components shared by one process.
type Runtime struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Fetcher *fetch.Client
	Sinks   storage.Sinks

	closers []func() error
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Setup builds the runtime from cfg. The response cache and sinks are
// connected only when configured.
func Setup(ctx context.Context, cfg *config.Config, component string) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Logger: logging.Component(logging.New(cfg.Log), component),
	}

	opts := []fetch.ClientOption{
		fetch.WithTimeout(cfg.HTTP.Timeout),
		fetch.WithMaxAttempts(cfg.HTTP.MaxAttempts),
		fetch.WithLogger(logging.Component(rt.Logger, "fetch")),
	}
	if cfg.Sinks.RedisAddr != "" {
		cache, err := rediscache.Connect(ctx, cfg.Sinks.RedisAddr)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, cache.Close)
		opts = append(opts, fetch.WithCache(cache, cfg.Sinks.CacheTTL))
		rt.Logger.Info().Str("addr", cfg.Sinks.RedisAddr).Dur("ttl", cfg.Sinks.CacheTTL).Msg("response cache enabled")
	}
	rt.Fetcher = fetch.NewClient(opts...)

	if err := rt.openSinks(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) openSinks(ctx context.Context) error {
	cfg := rt.Config.Sinks

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		rt.Sinks.Markets = pgstore.NewMarketSnapshotStore(pool)
		rt.Sinks.Protocols = pgstore.NewProtocolSnapshotStore(pool)
		rt.Logger.Info().Msg("postgres sink enabled")
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := chstore.EnsureDatabase(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, conn.Close)
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		rt.Sinks.Historical = chstore.NewHistoricalTvlStore(conn)
		rt.Logger.Info().Msg("clickhouse sink enabled")
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// CoinGecko returns a market-data client over the shared fetcher.
func (rt *Runtime) CoinGecko() *coingecko.Client {
	return coingecko.New(rt.Fetcher, rt.Config.CoinGecko)
}

// DeFiLlama returns a TVL client over the shared fetcher.
func (rt *Runtime) DeFiLlama() *defillama.Client {
	return defillama.New(rt.Fetcher)
}

// DexScreener returns a DEX-pair client over the shared fetcher.
func (rt *Runtime) DexScreener() *dexscreener.Client {
	return dexscreener.New(rt.Fetcher)
}

// MetricsHandler serves /metrics and /health.
func MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	return mux
}

// ServeMetrics runs the metrics endpoint on addr until ctx is done.
// An empty addr disables it.
func (rt *Runtime) ServeMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	srv := &http.Server{Addr: addr, Handler: MetricsHandler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	go func() {
		rt.Logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
}
