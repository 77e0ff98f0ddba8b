package packs

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PackConfig is the typed view of pack.yaml. Parsing it structurally
// (instead of regex-matching the raw text) is what makes the policy
// extraction reliable.
type PackConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Locale       string `yaml:"locale"`
	SourceURL    string `yaml:"source_url"`
	SafetyPolicy string `yaml:"safety_policy"`
}

// ParseConfig decodes pack.yaml and checks the required keys.
func ParseConfig(raw []byte) (*PackConfig, error) {
	var cfg PackConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse pack.yaml: %w", err)
	}
	var missing []string
	if strings.TrimSpace(cfg.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(cfg.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(cfg.SafetyPolicy) == "" {
		missing = append(missing, "safety_policy")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("pack.yaml must contain %s", strings.Join(missing, ", "))
	}
	cfg.SafetyPolicy = strings.TrimSpace(cfg.SafetyPolicy)
	return &cfg, nil
}
