package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_ADDR", "DATABASE_URL", "WEIGHT_STABILIZED",
		"MAX_CONCURRENT_ESTIMATIONS", "PROPENSITY_CLIP_LOW", "PROPENSITY_CLIP_HIGH",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q, want :8080", cfg.ServerAddr)
	}
	if !cfg.Stabilized {
		t.Error("stabilization should default on")
	}
	if cfg.MaxConcurrentEstimations != 8 {
		t.Errorf("MaxConcurrentEstimations = %d, want 8", cfg.MaxConcurrentEstimations)
	}
	if cfg.ClipLow != nil || cfg.ClipHigh != nil {
		t.Error("clip bounds should default open")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/causalkit")
	t.Setenv("WEIGHT_STABILIZED", "false")
	t.Setenv("MAX_CONCURRENT_ESTIMATIONS", "2")
	t.Setenv("PROPENSITY_CLIP_LOW", "0.01")
	t.Setenv("PROPENSITY_CLIP_HIGH", "0.99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != ":9999" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.Stabilized {
		t.Error("stabilization should be off")
	}
	if cfg.MaxConcurrentEstimations != 2 {
		t.Errorf("MaxConcurrentEstimations = %d", cfg.MaxConcurrentEstimations)
	}
	if cfg.ClipLow == nil || *cfg.ClipLow != 0.01 {
		t.Errorf("ClipLow = %v", cfg.ClipLow)
	}
	if cfg.ClipHigh == nil || *cfg.ClipHigh != 0.99 {
		t.Errorf("ClipHigh = %v", cfg.ClipHigh)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("WEIGHT_STABILIZED", "maybe")
	if _, err := Load(); err == nil {
		t.Error("malformed WEIGHT_STABILIZED should fail")
	}
	t.Setenv("WEIGHT_STABILIZED", "")

	t.Setenv("MAX_CONCURRENT_ESTIMATIONS", "0")
	if _, err := Load(); err == nil {
		t.Error("non-positive MAX_CONCURRENT_ESTIMATIONS should fail")
	}
	t.Setenv("MAX_CONCURRENT_ESTIMATIONS", "")

	t.Setenv("PROPENSITY_CLIP_LOW", "tiny")
	if _, err := Load(); err == nil {
		t.Error("malformed PROPENSITY_CLIP_LOW should fail")
	}
}
