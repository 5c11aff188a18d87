package session

import (
	"github.com/banshee-data/rep.report/internal/config"
	"github.com/banshee-data/rep.report/internal/reps"
	"github.com/banshee-data/rep.report/internal/side"
)

// Config holds every tunable of a session.
type Config struct {
	Pushup          reps.PushupThresholds
	Squat           reps.SquatThresholds
	SmoothingWindow int
	// DiscardDegenerate drops undefined (NaN) angle samples before they
	// reach the smoothing buffers. When false, a NaN enters the buffer
	// and the smoothed value stays NaN until it is evicted.
	DiscardDegenerate bool
	SidePolicy        side.Policy
	// MinVisibility, when positive, turns a frame into a miss if any
	// selected-side joint is less visible than this.
	MinVisibility float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Pushup:            reps.PushupThresholdsFromTuning(cfg),
		Squat:             reps.SquatThresholdsFromTuning(cfg),
		SmoothingWindow:   cfg.GetSmoothingWindow(),
		DiscardDegenerate: cfg.GetDiscardDegenerateSamples(),
		SidePolicy: side.Policy{
			Margin:      cfg.GetSideSwitchMargin(),
			DwellFrames: cfg.GetSideSwitchDwellFrames(),
		},
		MinVisibility: cfg.GetMinVisibility(),
	}
}

// Tuning returns c as a fully populated TuningConfig, the inverse of
// ConfigFromTuning. Its JSON form is a valid tuning file.
func (c Config) Tuning() *config.TuningConfig {
	return &config.TuningConfig{
		ElbowDownThreshold:       &c.Pushup.ElbowDown,
		ElbowUpThreshold:         &c.Pushup.ElbowUp,
		TorsoStraightThreshold:   &c.Pushup.TorsoStraight,
		KneeUpThreshold:          &c.Squat.KneeUp,
		KneeDownThreshold:        &c.Squat.KneeDown,
		SmoothingWindow:          &c.SmoothingWindow,
		DiscardDegenerateSamples: &c.DiscardDegenerate,
		SideSwitchMargin:         &c.SidePolicy.Margin,
		SideSwitchDwellFrames:    &c.SidePolicy.DwellFrames,
		MinVisibility:            &c.MinVisibility,
	}
}
