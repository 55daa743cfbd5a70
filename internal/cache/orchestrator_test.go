package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func raws() []map[string]any {
	return []map[string]any{
		{
			"id":         "bert-base-uncased",
			"task":       "text-classification",
			"parameters": float64(110_000_000),
			"evaluations": []any{
				map[string]any{"metric": "accuracy", "value": 0.92, "dataset": "imdb"},
			},
		},
		{
			"id":         "distilbert-base-uncased",
			"task":       "text-classification",
			"parameters": float64(66_000_000),
			"evaluations": []any{
				map[string]any{"metric": "accuracy", "value": 0.88, "dataset": "imdb"},
			},
		},
		{"task": "translation"},
		{"id": "bert-base-uncased", "task": "text-classification"},
	}
}

func newOrchestrator(t *testing.T, src Source, clk *clock) *Orchestrator {
	t.Helper()
	return New(Config{
		Source:       src,
		TTL:          time.Hour,
		FetchTimeout: 5 * time.Second,
	}, WithClock(clk.Now))
}

func TestGetOrCompute_CachesUntilExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).Return(raws(), nil).Times(2)

	clk := newClock()
	o := newOrchestrator(t, src, clk)

	first, err := o.GetOrCompute(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, first.Bundle)
	assert.False(t, first.Stale)
	assert.Len(t, first.Bundle.Records, 2)
	assert.Equal(t, clk.Now(), first.Bundle.ComputedAt)

	clk.Advance(59 * time.Minute)
	again, err := o.GetOrCompute(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, first.Bundle, again.Bundle, "valid cache returns the same bundle")

	clk.Advance(2 * time.Minute)
	expired, err := o.GetOrCompute(context.Background(), false)
	require.NoError(t, err)
	assert.NotSame(t, first.Bundle, expired.Bundle)
	assert.NotEqual(t, first.Bundle.Generation, expired.Bundle.Generation)
}

func TestGetOrCompute_ForceRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).Return(raws(), nil).Times(3)

	o := newOrchestrator(t, src, newClock())
	var prev *Result
	for range 3 {
		res, err := o.GetOrCompute(context.Background(), true)
		require.NoError(t, err)
		if prev != nil {
			assert.NotSame(t, prev.Bundle, res.Bundle)
		}
		prev = &res
	}
}

func TestGetOrCompute_DroppedRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).Return(raws(), nil)

	res, err := newOrchestrator(t, src, newClock()).GetOrCompute(context.Background(), false)
	require.NoError(t, err)

	b := res.Bundle
	assert.Equal(t, 2, b.Dropped)
	require.Len(t, b.Skipped, 2)
	assert.Equal(t, 2, b.Skipped[0].Index)
	assert.Equal(t, "duplicate id", b.Skipped[1].Reason)
	assert.Equal(t, len(raws()), len(b.Records)+b.Dropped)

	lb, ok := b.FindLeaderboard("text-classification", "imdb", "accuracy")
	require.True(t, ok)
	assert.Equal(t, "bert-base-uncased", lb.Entries[0].Model.ID)
}

func TestGetOrCompute_StaleOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	upstream := &provider.Error{Source: "hub", Op: "list models", Err: errors.New("unexpected status 502 Bad Gateway")}
	gomock.InOrder(
		src.EXPECT().Fetch(gomock.Any()).Return(raws(), nil),
		src.EXPECT().Fetch(gomock.Any()).Return(nil, upstream),
	)

	clk := newClock()
	o := newOrchestrator(t, src, clk)
	good, err := o.GetOrCompute(context.Background(), false)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	res, err := o.GetOrCompute(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Same(t, good.Bundle, res.Bundle, "previous bundle is kept")
	require.Error(t, res.RefreshError)
	assert.ErrorIs(t, res.RefreshError, upstream)

	st := o.Status()
	assert.False(t, st.CacheValid)
	assert.True(t, st.HasData)
	assert.Contains(t, st.LastRefreshError, "502")
	require.NotNil(t, st.LastRefreshFailedAt)
	assert.Equal(t, clk.Now(), *st.LastRefreshFailedAt)
}

func TestGetOrCompute_UnavailableWithoutData(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).Return(nil, &provider.Error{Source: "hub", Op: "list models", Err: provider.ErrNoRecords})

	o := newOrchestrator(t, src, newClock())
	_, err := o.GetOrCompute(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, provider.ErrNoRecords)

	var pe *provider.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "hub", pe.Source)

	_, ok := o.Current()
	assert.False(t, ok)
}

func TestGetOrCompute_FetchTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]map[string]any, error) {
		<-ctx.Done()
		return nil, &provider.Error{Source: "hub", Op: "list models", Err: ctx.Err()}
	})

	o := New(Config{Source: src, FetchTimeout: 20 * time.Millisecond})
	_, err := o.GetOrCompute(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetOrCompute_ComputationErrorIsHard(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).Return(raws(), nil)

	var calls atomic.Int32
	now := func() time.Time {
		if calls.Add(1) > 1 {
			panic("clock failure")
		}
		return time.Now()
	}
	o := New(Config{Source: src, Aggregation: aggregation.Options{Now: now}})

	_, err := o.GetOrCompute(context.Background(), false)
	var ce *aggregation.ComputationError
	require.ErrorAs(t, err, &ce)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestGetOrCompute_SingleFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	release := make(chan struct{})
	started := make(chan struct{})
	src.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]map[string]any, error) {
		close(started)
		<-release
		return raws(), nil
	}).Times(1)

	o := newOrchestrator(t, src, newClock())

	const callers = 16
	results := make([]Result, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Go(func() {
			res, err := o.GetOrCompute(context.Background(), false)
			assert.NoError(t, err)
			results[i] = res
		})
	}

	<-started
	assert.Eventually(t, func() bool { return o.Status().Refreshing }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0].Bundle, r.Bundle)
	}
	assert.False(t, o.Status().Refreshing)
}

func TestGetOrCompute_CallerCancelDoesNotAbortRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	release := make(chan struct{})
	started := make(chan struct{})
	src.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]map[string]any, error) {
		close(started)
		<-release
		return raws(), ctx.Err()
	}).Times(1)

	o := newOrchestrator(t, src, newClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := o.GetOrCompute(ctx, false)
		cancelled <- err
	}()
	<-started

	waiter := make(chan Result, 1)
	go func() {
		res, err := o.GetOrCompute(context.Background(), false)
		assert.NoError(t, err)
		waiter <- res
	}()

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	close(release)
	res := <-waiter
	require.NotNil(t, res.Bundle)
	assert.False(t, res.Stale)
}

func TestRefreshAsync(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]map[string]any, error) {
		return raws(), ctx.Err()
	})

	o := newOrchestrator(t, src, newClock())
	ctx, cancel := context.WithCancel(context.Background())
	done := o.RefreshAsync(ctx)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not finish")
	}
	b, ok := o.Current()
	require.True(t, ok)
	assert.Len(t, b.Records, 2)
}

func TestStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).Return(raws(), nil)

	clk := newClock()
	o := newOrchestrator(t, src, clk)

	empty := o.Status()
	assert.Equal(t, Status{TTLMinutes: 60}, empty)

	res, err := o.GetOrCompute(context.Background(), false)
	require.NoError(t, err)
	clk.Advance(90 * time.Second)

	st := o.Status()
	assert.True(t, st.CacheValid)
	assert.True(t, st.HasData)
	assert.Equal(t, 2, st.DataCount)
	assert.Equal(t, res.Bundle.Generation, st.Generation)
	require.NotNil(t, st.AgeSeconds)
	assert.Equal(t, 90.0, *st.AgeSeconds)
	require.NotNil(t, st.LastUpdated)
	assert.Equal(t, res.Bundle.ComputedAt, *st.LastUpdated)
	assert.Empty(t, st.LastRefreshError)
	assert.Nil(t, st.LastRefreshFailedAt)
}

func TestNew_Defaults(t *testing.T) {
	o := New(Config{})
	assert.Equal(t, time.Hour, o.ttl)
	assert.Equal(t, 30*time.Second, o.fetchTimeout)
	assert.NotNil(t, o.logger)
	assert.NotNil(t, o.opts.Now)
}
