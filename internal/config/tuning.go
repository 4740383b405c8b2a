// Package config loads the engine tuning parameters from JSON. Every field
// is a pointer so partial configs are safe: fields omitted from the file
// fall back to defaults through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig represents the root configuration for analysis parameters.
// The same JSON schema is accepted at startup and by the monitor's params
// endpoint, so one file serves both.
type TuningConfig struct {
	// Security detector params
	RogueSignalMarginDb *float64 `json:"rogue_signal_margin_db,omitempty"`

	// Flow monitor params
	FlowSamplePeriod *float64 `json:"flow_sample_period,omitempty"` // simulated seconds

	// Live monitor params
	EventRingSize *int `json:"event_ring_size,omitempty"`

	// Sink toggles. Paths and addresses come from flags; these only gate
	// whether each sink is attached at all.
	TraceEnabled   *bool `json:"trace_enabled,omitempty"`
	StoreEnabled   *bool `json:"store_enabled,omitempty"`
	MetricsEnabled *bool `json:"metrics_enabled,omitempty"`

	// Replay params
	ReplayPacing *bool `json:"replay_pacing,omitempty"` // pace replay to simulated time
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to have a .json extension and to be under the max file size.
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
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.RogueSignalMarginDb != nil {
		if *c.RogueSignalMarginDb <= 0 {
			return fmt.Errorf("rogue_signal_margin_db must be positive, got %f", *c.RogueSignalMarginDb)
		}
	}

	if c.FlowSamplePeriod != nil {
		if *c.FlowSamplePeriod <= 0 {
			return fmt.Errorf("flow_sample_period must be positive, got %f", *c.FlowSamplePeriod)
		}
	}

	if c.EventRingSize != nil {
		if *c.EventRingSize < 0 {
			return fmt.Errorf("event_ring_size must be non-negative, got %d", *c.EventRingSize)
		}
	}

	return nil
}

// GetRogueSignalMarginDb returns the rogue_signal_margin_db value or the default.
func (c *TuningConfig) GetRogueSignalMarginDb() float64 {
	if c.RogueSignalMarginDb == nil {
		return 3.0 // default
	}
	return *c.RogueSignalMarginDb
}

// GetFlowSamplePeriod returns the flow_sample_period value or the default.
func (c *TuningConfig) GetFlowSamplePeriod() float64 {
	if c.FlowSamplePeriod == nil {
		return 1.0 // default: one summary per simulated second
	}
	return *c.FlowSamplePeriod
}

// GetEventRingSize returns the event_ring_size value or the default.
func (c *TuningConfig) GetEventRingSize() int {
	if c.EventRingSize == nil {
		return 2048 // default
	}
	return *c.EventRingSize
}

// GetTraceEnabled returns the trace_enabled value or the default.
func (c *TuningConfig) GetTraceEnabled() bool {
	if c.TraceEnabled == nil {
		return true // default: CSV traces on
	}
	return *c.TraceEnabled
}

// GetStoreEnabled returns the store_enabled value or the default.
func (c *TuningConfig) GetStoreEnabled() bool {
	if c.StoreEnabled == nil {
		return true // default: sqlite store on
	}
	return *c.StoreEnabled
}

// GetMetricsEnabled returns the metrics_enabled value or the default.
func (c *TuningConfig) GetMetricsEnabled() bool {
	if c.MetricsEnabled == nil {
		return true // default: prometheus counters on
	}
	return *c.MetricsEnabled
}

// GetReplayPacing returns the replay_pacing value or the default.
func (c *TuningConfig) GetReplayPacing() bool {
	if c.ReplayPacing == nil {
		return false // default: replay as fast as possible
	}
	return *c.ReplayPacing
}
