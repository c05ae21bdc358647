package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/catastro-cli/internal/catastro"
	"github.com/sells-group/catastro-cli/internal/resilience"
	"github.com/sells-group/catastro-cli/internal/store"
	"github.com/sells-group/catastro-cli/pkg/ovc"
)

// queryEnv holds the facade and the resources behind it.
type queryEnv struct {
	Catastro *catastro.Catastro
	Cache    *store.SQLiteCache // nil unless cache.enabled
}

// Close releases resources held by the query environment.
func (qe *queryEnv) Close() {
	if qe.Cache != nil {
		_ = qe.Cache.Close()
	}
}

// initQuery builds the OVC client from config, opens the response cache
// when enabled, and wraps both in the facade. Callers should defer
// env.Close().
func initQuery(ctx context.Context) (*queryEnv, error) {
	if err := cfg.Validate("query"); err != nil {
		return nil, err
	}

	opts := []ovc.Option{
		ovc.WithBaseURL(cfg.OVC.BaseURL),
		ovc.WithHTTPClient(&http.Client{Timeout: cfg.OVC.Timeout()}),
		ovc.WithRateLimit(cfg.OVC.RateLimit),
		ovc.WithUserAgent(cfg.OVC.UserAgent),
		ovc.WithRetry(resilience.FromSettings(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)),
	}

	env := &queryEnv{}
	if cfg.Cache.Enabled {
		cache, err := openCache(ctx)
		if err != nil {
			return nil, err
		}
		env.Cache = cache
		opts = append(opts, ovc.WithCache(cache, cfg.Cache.TTL()))
	}

	env.Catastro = catastro.New(ovc.NewClient(opts...), catastro.WithConcurrency(cfg.Scan.Concurrency))
	return env, nil
}

// openCache opens and migrates the SQLite response cache, dropping expired
// entries on the way.
func openCache(ctx context.Context) (*store.SQLiteCache, error) {
	cache, err := store.NewSQLite(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}
	if err := cache.Migrate(ctx); err != nil {
		_ = cache.Close()
		return nil, err
	}

	n, err := cache.DeleteExpired(ctx)
	if err != nil {
		zap.L().Warn("cache: prune failed", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("cache: pruned expired responses", zap.Int("deleted", n))
	}
	return cache, nil
}
