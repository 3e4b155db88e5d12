package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a router rule file. The shape — read a YAML file at
// startup into a small typed struct — is adapted from
// SteelMorgan-1c-log-checker/internal/mapping/cluster_map.go's
// LoadClusterMap, generalized from a GUID->name lookup table to routing
// rules.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("router: read rules file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("router: parse rules file %s: %w", path, err)
	}
	if cfg.AckPolicy == "" {
		cfg.AckPolicy = AckAny
	}
	return cfg, nil
}
