// Package catalog holds the declarative scenario tables the sequencer runs.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/gridcheck/internal/models"
)

// Catalog is an ordered list of scenarios
type Catalog struct {
	Name      string            `toml:"name" yaml:"name"`
	Scenarios []models.Scenario `toml:"scenarios" yaml:"scenarios" validate:"required,min=1,dive"`

	// Source is the file the catalog was loaded from, empty for the built-in catalog
	Source string `toml:"-" yaml:"-"`
}

// ParseTOML parses a catalog from TOML content ([[scenarios]] tables)
func ParseTOML(content []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(content, &c); err != nil {
		return nil, fmt.Errorf("invalid TOML syntax: %w", err)
	}
	return &c, nil
}

// ParseYAML parses a catalog from YAML content (a scenarios sequence)
func ParseYAML(content []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(content, &c); err != nil {
		return nil, fmt.Errorf("invalid YAML syntax: %w", err)
	}
	return &c, nil
}

// LoadFromFile reads and validates a catalog; the format follows the file extension
func LoadFromFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var c *Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		c, err = ParseTOML(content)
	case ".yaml", ".yml":
		c, err = ParseYAML(content)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (use .toml, .yaml or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	c.Source = path
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Validate checks struct tags, each scenario's own rules and that every reported id is unique
func (c *Catalog) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	seen := make(map[string]string)
	for _, scenario := range c.Scenarios {
		if err := scenario.Validate(); err != nil {
			return fmt.Errorf("invalid catalog: %w", err)
		}
		for _, id := range scenario.StepIDs() {
			if owner, ok := seen[id]; ok {
				return fmt.Errorf("invalid catalog: step id %q of scenario %s already used by scenario %s", id, scenario.ID, owner)
			}
			seen[id] = scenario.ID
		}
	}
	return nil
}

// StepCount returns the number of reported steps across all scenarios
func (c *Catalog) StepCount() int {
	n := 0
	for _, scenario := range c.Scenarios {
		n += len(scenario.StepIDs())
	}
	return n
}
