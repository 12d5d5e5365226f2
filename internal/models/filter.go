package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterKind identifies the control used to filter a grid column
type FilterKind string

const (
	// FilterKindInput is a free-text input filter
	FilterKindInput FilterKind = "input"
	// FilterKindSelect is a constrained option-set (enum) filter
	FilterKindSelect FilterKind = "select"
)

// FilterCriterion describes one filter to apply to a grid column.
// For select filters the value must be a boolean-like token (true/false, yes/no, 1/0,
// enabled/disabled).
type FilterCriterion struct {
	Field string     `toml:"field" yaml:"field" json:"field" validate:"required"`
	Kind  FilterKind `toml:"kind" yaml:"kind" json:"kind" validate:"required,oneof=input select"`
	Value string     `toml:"value" yaml:"value" json:"value" validate:"required"`
}

// Validate checks that the value's shape matches the filter kind
func (c FilterCriterion) Validate() error {
	if strings.TrimSpace(c.Field) == "" {
		return fmt.Errorf("filter field is required")
	}
	switch c.Kind {
	case FilterKindInput:
		if c.Value == "" {
			return fmt.Errorf("filter %s: input value is required", c.Field)
		}
	case FilterKindSelect:
		if _, err := c.BoolValue(); err != nil {
			return fmt.Errorf("filter %s: %w", c.Field, err)
		}
	default:
		return fmt.Errorf("filter %s: unknown kind %q", c.Field, c.Kind)
	}
	return nil
}

// BoolValue interprets the value of a select filter
func (c FilterCriterion) BoolValue() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(c.Value)) {
	case "yes", "enabled", "on":
		return true, nil
	case "no", "disabled", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(c.Value))
	if err != nil {
		return false, fmt.Errorf("value %q is not a boolean-like enum value", c.Value)
	}
	return b, nil
}

func (c FilterCriterion) String() string {
	return fmt.Sprintf("%s %s=%q", c.Kind, c.Field, c.Value)
}
