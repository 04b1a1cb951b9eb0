// Package pool implements the Dynamic Pool Controller of §4.D: a
// sampling loop that observes DB connection pool load and resizes it
// within [min, max], publishing metrics snapshots and resize/leak
// events to the pub/sub bus.
package pool

import "time"

// Config mirrors the pool section of §4.A's config tree.
type Config struct {
	Min                int
	Max                int
	MinOverflow        int
	MaxOverflow        int
	SampleInterval     time.Duration
	Cooldown           time.Duration
	HighUtilThreshold  float64
	LowUtilThreshold   float64
	ResizeStepUp       float64
	ResizeStepDown     float64
	LeakThreshold      time.Duration
}

// DefaultConfig returns the §4.A default pool configuration.
func DefaultConfig() Config {
	return Config{
		Min:               5,
		Max:               50,
		MinOverflow:       0,
		MaxOverflow:       10,
		SampleInterval:    60 * time.Second,
		Cooldown:          120 * time.Second,
		HighUtilThreshold: 0.80,
		LowUtilThreshold:  0.20,
		ResizeStepUp:      1.2,
		ResizeStepDown:    0.8,
		LeakThreshold:     300 * time.Second,
	}
}

// WithDefaults returns a copy of c with zero or negative fields replaced
// by defaults, matching the teacher's retention.Config idiom.
// MinOverflow and MaxOverflow are returned as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Min <= 0 {
		c.Min = d.Min
	}
	if c.Max <= 0 {
		c.Max = d.Max
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = d.SampleInterval
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.HighUtilThreshold <= 0 {
		c.HighUtilThreshold = d.HighUtilThreshold
	}
	if c.LowUtilThreshold <= 0 {
		c.LowUtilThreshold = d.LowUtilThreshold
	}
	if c.ResizeStepUp <= 0 {
		c.ResizeStepUp = d.ResizeStepUp
	}
	if c.ResizeStepDown <= 0 {
		c.ResizeStepDown = d.ResizeStepDown
	}
	if c.LeakThreshold <= 0 {
		c.LeakThreshold = d.LeakThreshold
	}
	return c
}
