package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Negotiation.MaxRounds != 5 {
		t.Errorf("max_rounds = %d, want 5", cfg.Negotiation.MaxRounds)
	}
	if cfg.Negotiation.ConfidenceThreshold != 0.7 {
		t.Errorf("confidence_threshold = %v, want 0.7", cfg.Negotiation.ConfidenceThreshold)
	}
	if len(cfg.Negotiation.RateCard) == 0 {
		t.Error("default rate card is empty")
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealforge.yaml")
	yaml := `
server:
  port: "9090"
negotiation:
  max_rounds: 3
  confidence_threshold: 0.85
  brand_reference_ttl: 30m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Negotiation.MaxRounds != 3 {
		t.Errorf("max_rounds = %d, want 3", cfg.Negotiation.MaxRounds)
	}
	if cfg.Negotiation.BrandReferenceTTL != 30*time.Minute {
		t.Errorf("brand_reference_ttl = %v, want 30m", cfg.Negotiation.BrandReferenceTTL)
	}
	// Untouched sections keep defaults.
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q, want default", cfg.NATS.URL)
	}
}

func TestLoadFromEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealforge.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DEALFORGE_PORT", "7070")
	t.Setenv("DEALFORGE_MAX_ROUNDS", "2")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env override 7070", cfg.Server.Port)
	}
	if cfg.Negotiation.MaxRounds != 2 {
		t.Errorf("max_rounds = %d, want env override 2", cfg.Negotiation.MaxRounds)
	}
}

func TestValidateRejectsBadConfidenceThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealforge.yaml")
	if err := os.WriteFile(path, []byte("negotiation:\n  confidence_threshold: 1.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected validation error for threshold > 1")
	}
}

func TestValidateRejectsMalformedRateCard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealforge.yaml")
	yaml := `
negotiation:
  rate_card:
    - min_audience: 1
      cpm: "not-a-number"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected validation error for malformed cpm")
	}
}
