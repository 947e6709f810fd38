package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// DefaultDefinitions returns the built-in rule pack.
func DefaultDefinitions() []RuleDefinition {
	defs, err := ParseDefinitions(defaultRules, "yaml")
	if err != nil {
		panic(fmt.Sprintf("built-in rule pack is invalid: %v", err))
	}
	return defs
}

// ReadDefinitions reads a YAML or JSON rule pack; the extension picks the
// format.
func ReadDefinitions(path string) ([]RuleDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules pack: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ParseDefinitions(data, format)
}

// ParseDefinitions decodes a rule pack in "yaml", "yml" or "json" format.
func ParseDefinitions(data []byte, format string) ([]RuleDefinition, error) {
	var rs Ruleset
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("invalid JSON format: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported rules format %q", format)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("missing rules field")
	}
	return rs.Rules, nil
}
