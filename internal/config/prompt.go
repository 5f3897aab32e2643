package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptConfig captures extraction prompt tuning. The fields can be
// customized via a YAML file pointed at by CONFIG_PATH.
type PromptConfig struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	ExtraRules  string  `json:"extra_rules" yaml:"extra_rules"`
}

const defaultExtractionTemp = 0.2

// DefaultPromptConfig returns the baked-in tuning defaults.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{Temperature: defaultExtractionTemp}
}

// LoadPromptConfig reads YAML and merges it with defaults. An empty path
// yields the defaults without error.
func LoadPromptConfig(path string) (PromptConfig, error) {
	cfg := DefaultPromptConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	var parsed struct {
		Prompt PromptConfig `json:"prompt" yaml:"prompt"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cfg, err
	}
	return MergePromptConfig(cfg, parsed.Prompt), nil
}

// MergePromptConfig overlays non-empty fields onto the base config.
func MergePromptConfig(base PromptConfig, override PromptConfig) PromptConfig {
	if override.Temperature > 0 {
		base.Temperature = override.Temperature
	}
	if strings.TrimSpace(override.ExtraRules) != "" {
		base.ExtraRules = strings.TrimSpace(override.ExtraRules)
	}
	return base
}
