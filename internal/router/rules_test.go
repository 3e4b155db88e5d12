package router

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigParsesRulesAndDefaultsAckPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
sinks:
  - name: primary
    type: http
    params:
      url: http://localhost:9200/ingest
rules:
  - label_key: app
    label_value: billing
    sinks: [primary]
defaults: [primary]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Name != "primary" || cfg.Sinks[0].Type != "http" {
		t.Errorf("Sinks = %+v", cfg.Sinks)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].LabelValue != "billing" {
		t.Errorf("Rules = %+v", cfg.Rules)
	}
	if cfg.AckPolicy != AckAny {
		t.Errorf("AckPolicy = %q, want default %q", cfg.AckPolicy, AckAny)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Error("expected an error loading a missing rules file")
	}
}
