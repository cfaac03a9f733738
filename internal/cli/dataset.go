package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ppiankov/docket/internal/cache"
	"github.com/ppiankov/docket/internal/dataset"
)

// newLoader builds a dataset loader from the active config
func newLoader() *dataset.Loader {
	d := cfg.Dataset
	fetcher := dataset.NewFetcher(d.Timeout, d.UserAgent, d.MaxBodyBytes, d.HTTPProxy, d.HTTPSProxy, d.NoProxy).
		WithLogger(logger)
	if d.Cache.Enabled {
		fetcher.WithCache(cache.NewLayeredCache(d.Cache.MemoryTTL, d.Cache.Dir, d.Cache.DiskTTL), d.Cache.DiskTTL)
	}
	return dataset.NewLoader(fetcher, d.MaxBodyBytes, logger)
}

// loadSnapshot loads the configured dataset, bounded by the fetch timeout
// plus one retry cycle
func loadSnapshot(ctx context.Context) (*dataset.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*cfg.Dataset.Timeout)
	defer cancel()

	snap, err := newLoader().Load(ctx, cfg.Dataset.Path)
	if err != nil {
		return nil, err
	}
	if snap.Stats.Malformed > 0 {
		logger.Warn("malformed records skipped", zap.Int("count", snap.Stats.Malformed))
	}
	return snap, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
