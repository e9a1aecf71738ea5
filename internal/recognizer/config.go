package recognizer

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns/default.yaml
var defaultRecognizersYAML []byte

// File is the top-level YAML structure of a recognizer definitions file.
type File struct {
	Recognizers []Config `yaml:"recognizers"`
}

// Config describes one pattern recognizer.
type Config struct {
	Name            string          `yaml:"name" json:"name"`
	SupportedEntity string          `yaml:"supported_entity" json:"supported_entity"`
	Enabled         *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns        []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Context         []string        `yaml:"context,omitempty" json:"context,omitempty"`
	DenyList        []string        `yaml:"deny_list,omitempty" json:"deny_list,omitempty"`
	DenyListScore   float64         `yaml:"deny_list_score,omitempty" json:"deny_list_score,omitempty"`
	// Validator is an extra check a regex match must pass: "luhn" or "iban".
	Validator string `yaml:"validator,omitempty" json:"validator,omitempty"`
}

// PatternConfig is a single regex within a recognizer.
type PatternConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

func (c *Config) enabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ParseFile parses recognizer YAML.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &f, nil
}

// LoadFile reads recognizer YAML from disk. A missing file yields (nil, nil).
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseFile(data)
}

// DefaultConfigs returns the embedded recognizer definitions.
func DefaultConfigs() ([]Config, error) {
	f, err := ParseFile(defaultRecognizersYAML)
	if err != nil {
		return nil, err
	}
	return f.Recognizers, nil
}

// Merge layers recognizer definitions. A later definition replaces an
// earlier one with the same name; new names are appended.
func Merge(layers ...[]Config) []Config {
	index := make(map[string]int)
	var merged []Config
	for _, layer := range layers {
		for _, c := range layer {
			if i, ok := index[c.Name]; ok {
				merged[i] = c
				continue
			}
			index[c.Name] = len(merged)
			merged = append(merged, c)
		}
	}
	return merged
}

// Validate checks the fields NewPattern relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("recognizer name is required")
	}
	if strings.TrimSpace(c.SupportedEntity) == "" {
		return fmt.Errorf("recognizer %q: supported_entity is required", c.Name)
	}
	if len(c.Patterns) == 0 && len(c.DenyList) == 0 {
		return fmt.Errorf("recognizer %q: needs patterns or a deny_list", c.Name)
	}
	for _, p := range c.Patterns {
		if p.Score < 0 || p.Score > 1 {
			return fmt.Errorf("recognizer %q pattern %q: score %v outside [0,1]", c.Name, p.Name, p.Score)
		}
	}
	if c.DenyListScore < 0 || c.DenyListScore > 1 {
		return fmt.Errorf("recognizer %q: deny_list_score %v outside [0,1]", c.Name, c.DenyListScore)
	}
	switch c.Validator {
	case "", ValidatorLuhn, ValidatorIBAN:
	default:
		return fmt.Errorf("recognizer %q: unknown validator %q", c.Name, c.Validator)
	}
	return nil
}

// BuildPatterns compiles every enabled definition into a recognizer.
func BuildPatterns(configs []Config) ([]Recognizer, error) {
	var out []Recognizer
	for i := range configs {
		if !configs[i].enabled() {
			continue
		}
		p, err := NewPattern(configs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadPatterns builds the embedded defaults merged with the definitions in
// path (optional).
func LoadPatterns(path string) ([]Recognizer, error) {
	defaults, err := DefaultConfigs()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}
	var extra []Config
	if path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, fmt.Errorf("recognizer file %s not found", path)
		}
		extra = f.Recognizers
	}
	return BuildPatterns(Merge(defaults, extra))
}
