package aggregation

import (
	"time"

	"github.com/google/uuid"
	"github.com/mlbench/benchdash/internal/models"
	"github.com/mlbench/benchdash/internal/projectconfig"
)

// Options tunes the derived views. Zero numeric fields and nil functions
// fall back to the defaults.
type Options struct {
	TopModels             int
	LeaderboardSize       int
	MinLeaderboardEntries int
	Granularity           models.Granularity
	NotableThreshold      float64
	Now                   func() time.Time
	Generation            func() string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TopModels:             projectconfig.DefaultTopModels,
		LeaderboardSize:       projectconfig.DefaultLeaderboardSize,
		MinLeaderboardEntries: projectconfig.DefaultMinLeaderboardEntries,
		Granularity:           models.Granularity(projectconfig.DefaultGranularity),
		NotableThreshold:      projectconfig.DefaultNotableThreshold,
		Now:                   func() time.Time { return time.Now().UTC() },
		Generation:            uuid.NewString,
	}
}

// OptionsFromConfig converts the aggregation section of the configuration.
func OptionsFromConfig(cfg projectconfig.AggregationConfig) Options {
	o := DefaultOptions()
	o.TopModels = cfg.TopModels
	o.LeaderboardSize = cfg.LeaderboardSize
	o.MinLeaderboardEntries = cfg.MinLeaderboardEntries
	if g, ok := models.ParseGranularity(cfg.Granularity); ok {
		o.Granularity = g
	}
	o.NotableThreshold = cfg.NotableThreshold
	return o.withDefaults()
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopModels <= 0 {
		o.TopModels = d.TopModels
	}
	if o.LeaderboardSize <= 0 {
		o.LeaderboardSize = d.LeaderboardSize
	}
	if o.MinLeaderboardEntries <= 0 {
		o.MinLeaderboardEntries = d.MinLeaderboardEntries
	}
	if _, ok := models.ParseGranularity(string(o.Granularity)); !ok {
		o.Granularity = d.Granularity
	}
	if o.NotableThreshold <= 0 || o.NotableThreshold > 1 {
		o.NotableThreshold = d.NotableThreshold
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	if o.Generation == nil {
		o.Generation = d.Generation
	}
	return o
}
