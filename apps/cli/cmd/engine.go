package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/reqprobe/reqprobe/packages/cache"
	"github.com/reqprobe/reqprobe/packages/core/config"
	"github.com/reqprobe/reqprobe/packages/core/engine"
	"github.com/reqprobe/reqprobe/packages/executor"
	"github.com/reqprobe/reqprobe/packages/gate"
	"github.com/reqprobe/reqprobe/packages/history"
)

// defaultHistoryPath places the durable history log under the user's home
// directory when the config does not name one.
func defaultHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".reqprobe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// buildEngine constructs the execution pipeline from the effective config.
// The returned cleanup flushes history and closes durable storage.
func buildEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	historyPath := cfg.HistoryPath
	if historyPath == "" {
		var err error
		historyPath, err = defaultHistoryPath()
		if err != nil {
			return nil, nil, err
		}
	}

	kv, err := history.NewSQLiteKV(historyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open history store: %w", err)
	}

	store := history.NewStore(kv,
		history.WithLimit(cfg.HistoryLimit),
		history.WithDebounce(time.Duration(cfg.HistoryDebounce)*time.Millisecond),
		history.WithCacheTTL(time.Duration(cfg.HistoryCacheTTL)*time.Second),
	)

	timeout := time.Duration(cfg.Timeout) * time.Millisecond

	gateOpts := []gate.Option{}
	if cfg.MaxBodySize > 0 {
		gateOpts = append(gateOpts, gate.WithMaxBodySize(cfg.MaxBodySize))
	}
	if len(cfg.AllowedHeaders) > 0 {
		gateOpts = append(gateOpts, gate.WithAllowedHeaders(cfg.AllowedHeaders))
	}

	directOpts := []executor.DirectOption{
		executor.WithTimeout(timeout),
		executor.WithFollowRedirects(cfg.GetFollowRedirects()),
		executor.WithMaxRedirects(cfg.MaxRedirects),
		executor.WithValidateSSL(cfg.GetValidateSSL()),
	}
	if cfg.Proxy != "" {
		directOpts = append(directOpts, executor.WithProxy(cfg.Proxy))
	}
	if len(cfg.Headers) > 0 {
		directOpts = append(directOpts, executor.WithDefaultHeaders(cfg.Headers))
	}

	isolatedOpts := []executor.IsolatedOption{
		executor.WithIsolatedTimeout(timeout),
		executor.WithIsolatedValidateSSL(cfg.GetValidateSSL()),
	}
	if cfg.Proxy != "" {
		isolatedOpts = append(isolatedOpts, executor.WithIsolatedProxy(cfg.Proxy))
	}

	batchOpts := []executor.BatchOption{
		executor.WithWindowSize(cfg.WindowSize),
	}
	if cfg.RateLimit > 0 {
		batchOpts = append(batchOpts, executor.WithRateLimit(cfg.RateLimit))
	}

	eng := engine.New(
		engine.WithGate(gate.New(gateOpts...)),
		engine.WithCache(cache.New(
			cache.WithTTL(time.Duration(cfg.CacheTTL)*time.Second),
			cache.WithCapacity(cfg.CacheCapacity),
		)),
		engine.WithSelector(executor.NewSelector(
			executor.NewDirect(directOpts...),
			executor.NewIsolated(isolatedOpts...),
		)),
		engine.WithBatch(executor.NewBatch(batchOpts...)),
		engine.WithHistory(store),
		engine.WithTimeout(timeout),
	)

	cleanup := func() {
		_ = eng.Close()
		_ = kv.Close()
	}

	return eng, cleanup, nil
}
