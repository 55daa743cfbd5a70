package webapi

import (
	"context"

	"github.com/mlbench/benchdash/internal/cache"
)

// BundleStore provides the current aggregate bundle. *cache.Orchestrator
// implements it.
type BundleStore interface {
	// GetOrCompute returns the cached bundle, recomputing it when expired or
	// when forceRefresh is set.
	GetOrCompute(ctx context.Context, forceRefresh bool) (cache.Result, error)
	// RefreshAsync starts a forced refresh in the background.
	RefreshAsync(ctx context.Context) <-chan error
	// Status describes the cache.
	Status() cache.Status
}

var _ BundleStore = (*cache.Orchestrator)(nil)
