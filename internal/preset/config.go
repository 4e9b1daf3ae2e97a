package preset

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/clock"
)

// GrantSpec is one grant line in a custom preset definition.
type GrantSpec struct {
	Capability  string   `yaml:"capability"`
	WindowID    string   `yaml:"window_id,omitempty"`
	ResourceIDs []string `yaml:"resource_ids,omitempty"`
	RequiresACC bool     `yaml:"requires_acc,omitempty"`
}

// Config holds custom presets loaded from a YAML file. Custom names shadow
// built-ins when both exist.
type Config struct {
	Presets map[string][]GrantSpec `yaml:"presets"`
}

// LoadConfig reads and validates a custom preset file. An empty path yields
// an empty config (built-ins only).
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{Presets: map[string][]GrantSpec{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse preset config %s: %w", path, err)
	}
	if cfg.Presets == nil {
		cfg.Presets = map[string][]GrantSpec{}
	}

	for name, specs := range cfg.Presets {
		if len(specs) == 0 {
			return nil, fmt.Errorf("preset %q defines no grants", name)
		}
		for i, spec := range specs {
			if _, err := capability.ParseKind(spec.Capability); err != nil {
				return nil, fmt.Errorf("preset %q grant %d: %w", name, i, err)
			}
		}
	}

	return &cfg, nil
}

// Resolve builds the grants for name, preferring a custom definition over a
// built-in. Fails on names known to neither.
func (c *Config) Resolve(name, appID string, ttl time.Duration, now clock.Clock) ([]capability.Grant, error) {
	specs, ok := c.Presets[name]
	if !ok {
		return ByName(name, appID, ttl, now)
	}

	expiry := now().Add(ttl)
	grants := make([]capability.Grant, 0, len(specs))
	for _, spec := range specs {
		kind, err := capability.ParseKind(spec.Capability)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		g := newGrant(kind, appID, expiry, spec.RequiresACC)
		g.Scope.WindowID = spec.WindowID
		g.Scope.ResourceIDs = spec.ResourceIDs
		grants = append(grants, g)
	}
	return grants, nil
}
