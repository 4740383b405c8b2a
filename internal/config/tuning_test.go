package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetRogueSignalMarginDb() != 3.0 {
		t.Errorf("GetRogueSignalMarginDb() = %f, want 3.0", cfg.GetRogueSignalMarginDb())
	}
	if cfg.GetFlowSamplePeriod() != 1.0 {
		t.Errorf("GetFlowSamplePeriod() = %f, want 1.0", cfg.GetFlowSamplePeriod())
	}
	if cfg.GetEventRingSize() != 2048 {
		t.Errorf("GetEventRingSize() = %d, want 2048", cfg.GetEventRingSize())
	}
	if cfg.GetTraceEnabled() != true {
		t.Errorf("GetTraceEnabled() = %v, want true", cfg.GetTraceEnabled())
	}
	if cfg.GetStoreEnabled() != true {
		t.Errorf("GetStoreEnabled() = %v, want true", cfg.GetStoreEnabled())
	}
	if cfg.GetMetricsEnabled() != true {
		t.Errorf("GetMetricsEnabled() = %v, want true", cfg.GetMetricsEnabled())
	}
	if cfg.GetReplayPacing() != false {
		t.Errorf("GetReplayPacing() = %v, want false", cfg.GetReplayPacing())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "rogue_signal_margin_db": 5.5,
  "flow_sample_period": 0.5,
  "event_ring_size": 100,
  "trace_enabled": false,
  "replay_pacing": true
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.RogueSignalMarginDb == nil || *cfg.RogueSignalMarginDb != 5.5 {
		t.Errorf("Expected RogueSignalMarginDb 5.5, got %v", cfg.RogueSignalMarginDb)
	}
	if cfg.GetRogueSignalMarginDb() != 5.5 {
		t.Errorf("GetRogueSignalMarginDb() = %f, want 5.5", cfg.GetRogueSignalMarginDb())
	}
	if cfg.GetFlowSamplePeriod() != 0.5 {
		t.Errorf("GetFlowSamplePeriod() = %f, want 0.5", cfg.GetFlowSamplePeriod())
	}
	if cfg.GetEventRingSize() != 100 {
		t.Errorf("GetEventRingSize() = %d, want 100", cfg.GetEventRingSize())
	}
	if cfg.GetTraceEnabled() != false {
		t.Errorf("GetTraceEnabled() = %v, want false", cfg.GetTraceEnabled())
	}
	if cfg.GetReplayPacing() != true {
		t.Errorf("GetReplayPacing() = %v, want true", cfg.GetReplayPacing())
	}

	// Omitted fields keep their defaults.
	if cfg.StoreEnabled != nil {
		t.Errorf("Expected StoreEnabled nil, got %v", *cfg.StoreEnabled)
	}
	if cfg.GetStoreEnabled() != true {
		t.Errorf("GetStoreEnabled() = %v, want default true", cfg.GetStoreEnabled())
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	if err := os.WriteFile(configPath, []byte(`{"flow_sample_period": 2.0}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetFlowSamplePeriod() != 2.0 {
		t.Errorf("GetFlowSamplePeriod() = %f, want 2.0", cfg.GetFlowSamplePeriod())
	}
	if cfg.GetRogueSignalMarginDb() != 3.0 {
		t.Errorf("GetRogueSignalMarginDb() = %f, want default 3.0", cfg.GetRogueSignalMarginDb())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("a: 1"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig("/nonexistent/config.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadTuningConfigBadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TuningConfig)
		wantErr bool
	}{
		{"empty is valid", func(c *TuningConfig) {}, false},
		{"negative margin", func(c *TuningConfig) {
			v := -1.0
			c.RogueSignalMarginDb = &v
		}, true},
		{"zero flow period", func(c *TuningConfig) {
			v := 0.0
			c.FlowSamplePeriod = &v
		}, true},
		{"negative ring size", func(c *TuningConfig) {
			v := -5
			c.EventRingSize = &v
		}, true},
		{"zero ring size is valid", func(c *TuningConfig) {
			v := 0
			c.EventRingSize = &v
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EmptyTuningConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
