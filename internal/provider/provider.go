// Package provider fetches raw benchmark records from upstream sources.
// Providers return loosely typed maps; validation belongs to the normalize
// package.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mlbench/benchdash/internal/projectconfig"
)

// ErrNoRecords is returned when a source answered but yielded no records.
var ErrNoRecords = errors.New("no records")

// Provider is a source of raw model records.
type Provider interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Fetch returns every raw record the source currently holds.
	Fetch(ctx context.Context) ([]map[string]any, error)
}

// Error reports a failed fetch. Timeouts wrap context.DeadlineExceeded.
type Error struct {
	Source string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the fetch failed because a deadline passed.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Options carries dependencies shared by all providers.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New builds the provider selected by cfg.Kind. A hub source with
// cfg.SOTAURL set also reads the curated tables, after the hub listings.
func New(cfg projectconfig.SourceConfig, opts Options) (Provider, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch cfg.Kind {
	case projectconfig.SourceHub, "":
		hub := NewHub(HubConfig{
			BaseURL:     cfg.BaseURL,
			Tasks:       cfg.Tasks,
			Limit:       cfg.FetchLimit,
			Concurrency: cfg.Concurrency,
			Client:      opts.HTTPClient,
			Logger:      opts.Logger,
		})
		if cfg.SOTAURL == "" {
			return hub, nil
		}
		sota, err := NewSOTA(SOTAConfig{
			BaseURL: cfg.SOTAURL,
			Tables:  cfg.SOTATables,
			Client:  opts.HTTPClient,
			Logger:  opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return NewComposite(opts.Logger, hub, sota), nil
	case projectconfig.SourceFile:
		return NewFile(cfg.Path), nil
	case projectconfig.SourceBlob:
		return NewBlob(BlobConfig{
			AccountURL: cfg.Blob.AccountURL,
			Container:  cfg.Blob.Container,
			Name:       cfg.Blob.Name,
		})
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
