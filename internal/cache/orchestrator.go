// Package cache holds the current aggregate bundle and recomputes it when it
// expires or a refresh is forced. The bundle is swapped in with a single
// atomic store, so readers never see a partially built value.
package cache

//go:generate go tool mockgen -source=orchestrator.go -destination=mock_source_test.go -package=cache Source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/models"
	"github.com/mlbench/benchdash/internal/normalize"
	"github.com/mlbench/benchdash/internal/projectconfig"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable is returned when no bundle has ever been computed and the
// refresh that was attempted failed.
var ErrUnavailable = errors.New("cache: benchmark data unavailable")

// Source supplies raw records. provider.Provider satisfies it.
type Source interface {
	Fetch(ctx context.Context) ([]map[string]any, error)
}

// Config wires an Orchestrator.
type Config struct {
	Source       Source
	TTL          time.Duration
	FetchTimeout time.Duration
	Aggregation  aggregation.Options
	Logger       *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock used for expiry and bundle timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Result is what a caller of GetOrCompute receives. When Stale is set the
// bundle is the previous one and RefreshError explains why it was kept.
type Result struct {
	Bundle       *models.Bundle
	Stale        bool
	RefreshError error
}

// Status describes the cache for the status endpoint.
type Status struct {
	CacheValid          bool       `json:"cache_valid"`
	LastUpdated         *time.Time `json:"last_updated"`
	TTLMinutes          int        `json:"ttl_minutes"`
	HasData             bool       `json:"has_data"`
	DataCount           int        `json:"data_count"`
	AgeSeconds          *float64   `json:"age_seconds"`
	Generation          string     `json:"generation,omitempty"`
	Refreshing          bool       `json:"refreshing"`
	LastRefreshError    string     `json:"last_refresh_error,omitempty"`
	LastRefreshFailedAt *time.Time `json:"last_refresh_failed_at,omitempty"`
}

type entry struct {
	bundle     *models.Bundle
	computedAt time.Time
}

// Orchestrator owns the current bundle. It is safe for concurrent use.
type Orchestrator struct {
	src          Source
	ttl          time.Duration
	fetchTimeout time.Duration
	opts         aggregation.Options
	logger       *slog.Logger
	now          func() time.Time

	current    atomic.Pointer[entry]
	group      singleflight.Group
	refreshing atomic.Int32

	mu        sync.Mutex
	lastErr   error
	lastErrAt time.Time
}

// New creates an Orchestrator. Nothing is fetched until the first call to
// GetOrCompute or RefreshAsync.
func New(cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		src:          cfg.Source,
		ttl:          cfg.TTL,
		fetchTimeout: cfg.FetchTimeout,
		opts:         cfg.Aggregation,
		logger:       cfg.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.ttl <= 0 {
		o.ttl = projectconfig.DefaultTTLMinutes * time.Minute
	}
	if o.fetchTimeout <= 0 {
		o.fetchTimeout = projectconfig.DefaultFetchTimeout
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.opts.Now == nil {
		o.opts.Now = o.now
	}
	return o
}

// GetOrCompute returns the cached bundle while it is valid and forceRefresh
// is false. Otherwise it recomputes, joining a refresh already in flight.
//
// A failed refresh keeps the previous bundle and reports it as stale. With
// no previous bundle the error wraps ErrUnavailable. A
// *aggregation.ComputationError is always returned as an error.
func (o *Orchestrator) GetOrCompute(ctx context.Context, forceRefresh bool) (Result, error) {
	if !forceRefresh {
		if e := o.current.Load(); o.valid(e) {
			return Result{Bundle: e.bundle}, nil
		}
	}

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-o.refresh(ctx):
		if r.Err == nil {
			return Result{Bundle: r.Val.(*models.Bundle)}, nil
		}
		var ce *aggregation.ComputationError
		if errors.As(r.Err, &ce) {
			return Result{}, r.Err
		}
		if e := o.current.Load(); e != nil {
			return Result{Bundle: e.bundle, Stale: true, RefreshError: r.Err}, nil
		}
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, r.Err)
	}
}

// RefreshAsync starts a forced refresh that outlives ctx's cancellation.
// The channel receives the refresh error, or nil, and is then closed.
func (o *Orchestrator) RefreshAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	ch := o.refresh(ctx)
	go func() {
		defer close(done)
		done <- (<-ch).Err
	}()
	return done
}

// Current returns the installed bundle without triggering a refresh.
func (o *Orchestrator) Current() (*models.Bundle, bool) {
	e := o.current.Load()
	if e == nil {
		return nil, false
	}
	return e.bundle, true
}

// Status reports the cache state at the current clock time.
func (o *Orchestrator) Status() Status {
	s := Status{
		TTLMinutes: int(o.ttl / time.Minute),
		Refreshing: o.refreshing.Load() > 0,
	}
	if e := o.current.Load(); e != nil {
		updated := e.computedAt
		age := o.now().Sub(e.computedAt).Seconds()
		s.CacheValid = o.valid(e)
		s.LastUpdated = &updated
		s.HasData = true
		s.DataCount = len(e.bundle.Records)
		s.AgeSeconds = &age
		s.Generation = e.bundle.Generation
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastErr != nil {
		failedAt := o.lastErrAt
		s.LastRefreshError = o.lastErr.Error()
		s.LastRefreshFailedAt = &failedAt
	}
	return s
}

func (o *Orchestrator) valid(e *entry) bool {
	return e != nil && o.now().Sub(e.computedAt) < o.ttl
}

// refresh joins or starts the shared recompute. It runs detached from the
// caller's cancellation, bounded by the fetch timeout.
func (o *Orchestrator) refresh(ctx context.Context) <-chan singleflight.Result {
	detached := context.WithoutCancel(ctx)
	return o.group.DoChan("refresh", func() (any, error) {
		return o.recompute(detached)
	})
}

func (o *Orchestrator) recompute(ctx context.Context) (*models.Bundle, error) {
	o.refreshing.Add(1)
	defer o.refreshing.Add(-1)
	start := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	raws, err := o.src.Fetch(fetchCtx)
	cancel()
	if err != nil {
		o.logger.Warn("benchmark refresh failed", "stage", "fetch", "error", err)
		o.recordFailure(err)
		return nil, err
	}

	res := normalize.Normalize(raws)
	bundle, err := aggregation.Aggregate(res.Records, o.opts)
	if err != nil {
		o.logger.Error("benchmark refresh failed", "stage", "aggregate", "error", err)
		o.recordFailure(err)
		return nil, err
	}
	bundle.Dropped = res.Dropped
	bundle.Skipped = res.Skipped

	o.current.Store(&entry{bundle: bundle, computedAt: o.now()})
	o.recordFailure(nil)

	o.logger.Info("benchmark cache refreshed",
		"generation", bundle.Generation,
		"records", len(bundle.Records),
		"dropped", res.Dropped,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	for _, s := range res.Skipped {
		o.logger.Debug("record skipped", "index", s.Index, "id", s.ID, "reason", s.Reason)
	}
	return bundle, nil
}

func (o *Orchestrator) recordFailure(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastErr = err
	if err != nil {
		o.lastErrAt = o.now()
	}
}
