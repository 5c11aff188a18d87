package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// Every value in it matches the fallback of the corresponding Get* method.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// Every field is optional: a nil field falls back to the default returned
// by its Get* method, so partial files are safe.
type TuningConfig struct {
	// Push-up machine (degrees)
	ElbowDownThreshold     *float64 `json:"elbow_down_threshold,omitempty"`
	ElbowUpThreshold       *float64 `json:"elbow_up_threshold,omitempty"`
	TorsoStraightThreshold *float64 `json:"torso_straight_threshold,omitempty"`

	// Squat machine (degrees)
	KneeUpThreshold   *float64 `json:"knee_up_threshold,omitempty"`
	KneeDownThreshold *float64 `json:"knee_down_threshold,omitempty"`

	// Smoothing
	SmoothingWindow          *int  `json:"smoothing_window,omitempty"`
	DiscardDegenerateSamples *bool `json:"discard_degenerate_samples,omitempty"`

	// Side selection and landmark quality
	SideSwitchMargin      *float64 `json:"side_switch_margin,omitempty"`
	SideSwitchDwellFrames *int     `json:"side_switch_dwell_frames,omitempty"`
	MinVisibility         *float64 `json:"min_visibility,omitempty"`
}

// maxSmoothingWindow keeps a typo from allocating a huge buffer.
const maxSmoothingWindow = 300

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Its Get* methods return the built-in defaults.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set
// explicitly to its default.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		ElbowDownThreshold:       ptrFloat64(e.GetElbowDownThreshold()),
		ElbowUpThreshold:         ptrFloat64(e.GetElbowUpThreshold()),
		TorsoStraightThreshold:   ptrFloat64(e.GetTorsoStraightThreshold()),
		KneeUpThreshold:          ptrFloat64(e.GetKneeUpThreshold()),
		KneeDownThreshold:        ptrFloat64(e.GetKneeDownThreshold()),
		SmoothingWindow:          ptrInt(e.GetSmoothingWindow()),
		DiscardDegenerateSamples: ptrBool(e.GetDiscardDegenerateSamples()),
		SideSwitchMargin:         ptrFloat64(e.GetSideSwitchMargin()),
		SideSwitchDwellFrames:    ptrInt(e.GetSideSwitchDwellFrames()),
		MinVisibility:            ptrFloat64(e.GetMinVisibility()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/repcount/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Threshold
// pairs are checked against each other using the effective values, so a
// file overriding only one side of a pair is still checked.
func (c *TuningConfig) Validate() error {
	angles := []struct {
		name string
		v    *float64
	}{
		{"elbow_down_threshold", c.ElbowDownThreshold},
		{"elbow_up_threshold", c.ElbowUpThreshold},
		{"torso_straight_threshold", c.TorsoStraightThreshold},
		{"knee_up_threshold", c.KneeUpThreshold},
		{"knee_down_threshold", c.KneeDownThreshold},
	}
	for _, a := range angles {
		if a.v != nil && (*a.v < 0 || *a.v > 180) {
			return fmt.Errorf("%s must be between 0 and 180 degrees, got %f", a.name, *a.v)
		}
	}

	if c.GetElbowDownThreshold() >= c.GetElbowUpThreshold() {
		return fmt.Errorf("elbow_down_threshold (%g) must be below elbow_up_threshold (%g)",
			c.GetElbowDownThreshold(), c.GetElbowUpThreshold())
	}
	if c.GetKneeDownThreshold() >= c.GetKneeUpThreshold() {
		return fmt.Errorf("knee_down_threshold (%g) must be below knee_up_threshold (%g)",
			c.GetKneeDownThreshold(), c.GetKneeUpThreshold())
	}

	if c.SmoothingWindow != nil {
		if *c.SmoothingWindow < 1 || *c.SmoothingWindow > maxSmoothingWindow {
			return fmt.Errorf("smoothing_window must be between 1 and %d, got %d", maxSmoothingWindow, *c.SmoothingWindow)
		}
	}

	if c.SideSwitchMargin != nil {
		if *c.SideSwitchMargin < 0 || *c.SideSwitchMargin > 1 {
			return fmt.Errorf("side_switch_margin must be between 0 and 1, got %f", *c.SideSwitchMargin)
		}
	}

	if c.SideSwitchDwellFrames != nil {
		if *c.SideSwitchDwellFrames < 0 {
			return fmt.Errorf("side_switch_dwell_frames must be non-negative, got %d", *c.SideSwitchDwellFrames)
		}
	}

	if c.MinVisibility != nil {
		if *c.MinVisibility < 0 || *c.MinVisibility > 1 {
			return fmt.Errorf("min_visibility must be between 0 and 1, got %f", *c.MinVisibility)
		}
	}

	return nil
}

// GetElbowDownThreshold returns the elbow_down_threshold value or the default.
func (c *TuningConfig) GetElbowDownThreshold() float64 {
	if c.ElbowDownThreshold == nil {
		return 130
	}
	return *c.ElbowDownThreshold
}

// GetElbowUpThreshold returns the elbow_up_threshold value or the default.
func (c *TuningConfig) GetElbowUpThreshold() float64 {
	if c.ElbowUpThreshold == nil {
		return 165
	}
	return *c.ElbowUpThreshold
}

// GetTorsoStraightThreshold returns the torso_straight_threshold value or the default.
func (c *TuningConfig) GetTorsoStraightThreshold() float64 {
	if c.TorsoStraightThreshold == nil {
		return 150
	}
	return *c.TorsoStraightThreshold
}

// GetKneeUpThreshold returns the knee_up_threshold value or the default.
func (c *TuningConfig) GetKneeUpThreshold() float64 {
	if c.KneeUpThreshold == nil {
		return 165
	}
	return *c.KneeUpThreshold
}

// GetKneeDownThreshold returns the knee_down_threshold value or the default.
func (c *TuningConfig) GetKneeDownThreshold() float64 {
	if c.KneeDownThreshold == nil {
		return 115
	}
	return *c.KneeDownThreshold
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return 5
	}
	return *c.SmoothingWindow
}

// GetDiscardDegenerateSamples returns the discard_degenerate_samples value or the default.
func (c *TuningConfig) GetDiscardDegenerateSamples() bool {
	if c.DiscardDegenerateSamples == nil {
		return true
	}
	return *c.DiscardDegenerateSamples
}

// GetSideSwitchMargin returns the side_switch_margin value or the default.
func (c *TuningConfig) GetSideSwitchMargin() float64 {
	if c.SideSwitchMargin == nil {
		return 0 // default: frame-by-frame side choice
	}
	return *c.SideSwitchMargin
}

// GetSideSwitchDwellFrames returns the side_switch_dwell_frames value or the default.
func (c *TuningConfig) GetSideSwitchDwellFrames() int {
	if c.SideSwitchDwellFrames == nil {
		return 0
	}
	return *c.SideSwitchDwellFrames
}

// GetMinVisibility returns the min_visibility value or the default.
func (c *TuningConfig) GetMinVisibility() float64 {
	if c.MinVisibility == nil {
		return 0 // default: accept any detected joint
	}
	return *c.MinVisibility
}
