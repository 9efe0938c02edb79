package adl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the naming overrides that are not part of the architecture
// description itself. The engine only ever reads it.
type Config struct {
	// ClassAliases renames a register file's backend class, e.g. to merge
	// two register files under one class.
	ClassAliases map[string]string `yaml:"class_aliases"`

	// RegisterAliases adds alternate names for canonical register names.
	RegisterAliases map[string][]string `yaml:"register_aliases"`

	// DecoderMethods and EncoderMethods override the default methods for
	// an immediate or register class, keyed by class name.
	DecoderMethods map[string]string `yaml:"decoder_methods"`
	EncoderMethods map[string]string `yaml:"encoder_methods"`

	// Predicates maps an instruction attribute (usually an extension name)
	// to a backend predicate name.
	Predicates map[string]string `yaml:"predicates"`

	IgnoredAttributes   []string `yaml:"ignored_attributes"`
	IgnoredInstructions []string `yaml:"ignored_instructions"`

	GPRFiles []string `yaml:"gpr_files"`
	CSRFiles []string `yaml:"csr_files"`

	// SideEffectAttributes extends the fixed side-effect vocabulary.
	SideEffectAttributes []string `yaml:"side_effect_attributes"`
}

func DefaultConfig() *Config {
	return &Config{
		GPRFiles: []string{"GPR", "XPR"},
		CSRFiles: []string{"CSR"},
	}
}

func LoadConfig(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := ParseConfig(src)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", filename, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig, so a table only needs
// to name what it overrides.
func ParseConfig(src []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(src, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) classAlias(file string) string {
	if alias, ok := c.ClassAliases[file]; ok && alias != "" {
		return alias
	}
	return file
}

func (c *Config) ignoresInstruction(name string, attrs AttrSet) bool {
	for _, n := range c.IgnoredInstructions {
		if n == name {
			return true
		}
	}
	for _, a := range c.IgnoredAttributes {
		if attrs.Has(a) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
