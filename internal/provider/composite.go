package provider

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Composite fetches from several providers concurrently and concatenates
// their records in provider order. Later providers repeating an id lose to
// earlier ones once the normalizer deduplicates.
type Composite struct {
	providers []Provider
	logger    *slog.Logger
}

// NewComposite combines providers. A nil logger uses slog.Default.
func NewComposite(logger *slog.Logger, providers ...Provider) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{providers: providers, logger: logger}
}

// Name implements Provider.
func (c *Composite) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// Fetch runs every provider and fails only when all of them failed.
func (c *Composite) Fetch(ctx context.Context) ([]map[string]any, error) {
	if len(c.providers) == 0 {
		return nil, &Error{Source: c.Name(), Op: "fetch", Err: errors.New("no providers configured")}
	}

	results := make([][]map[string]any, len(c.providers))
	errs := make([]error, len(c.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range c.providers {
		g.Go(func() error {
			records, err := p.Fetch(gctx)
			if err != nil {
				c.logger.Warn("provider fetch failed", "source", p.Name(), "error", err)
				errs[i] = err
				return nil
			}
			c.logger.Debug("provider fetched", "source", p.Name(), "records", len(records))
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var records []map[string]any
	for i := range c.providers {
		if errs[i] != nil {
			failed++
			continue
		}
		records = append(records, results[i]...)
	}
	if failed == len(c.providers) {
		if len(errs) == 1 {
			return nil, errs[0]
		}
		return nil, &Error{Source: c.Name(), Op: "fetch", Err: errors.Join(errs...)}
	}
	if len(records) == 0 {
		return nil, &Error{Source: c.Name(), Op: "fetch", Err: ErrNoRecords}
	}
	return records, nil
}
