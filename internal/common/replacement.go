// -----------------------------------------------------------------------
// Last Modified: Monday, 19th October 2026 9:15:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

// Package common provides placeholder expansion for selector templates and
// ${ENV_VAR} resolution for configuration values.
//
// Selector templates use {name} placeholders:
//   Input:  "td.column-{field}"
//   Values: {"field": "active"}
//   Output: "td.column-active"
//
// Configuration values use ${NAME} references resolved from the process environment.
// Missing variables are logged as warnings and left unchanged.
package common

import (
	"fmt"
	"os"
	"reflect"
	"regexp"

	"github.com/ternarybob/arbor"
)

// placeholderPattern matches {name} placeholders in selector templates
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// envRefPattern matches ${NAME} references in configuration values
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandPlaceholders replaces {name} placeholders with values. Unknown placeholders are kept.
func ExpandPlaceholders(template string, values map[string]string) string {
	if template == "" {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		if value, exists := values[match[1:len(match)-1]]; exists {
			return value
		}
		return match
	})
}

// ReplaceEnvReferences replaces ${NAME} references in the input using lookup
func ReplaceEnvReferences(input string, lookup func(string) (string, bool), logger arbor.ILogger) string {
	if input == "" {
		return input
	}
	return envRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[2 : len(match)-1]
		if value, exists := lookup(name); exists {
			return value
		}
		logger.Warn().
			Str("reference", match).
			Msg("Unresolved environment reference - variable not set")
		return match
	})
}

// ResolveEnvReferences walks a struct pointer and replaces ${NAME} references in
// string fields, nested structs, string slices and string maps.
func ResolveEnvReferences(v interface{}, logger arbor.ILogger) error {
	return resolveWith(v, os.LookupEnv, logger)
}

func resolveWith(v interface{}, lookup func(string) (string, bool), logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("ResolveEnvReferences requires a pointer, got %T", v)
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ResolveEnvReferences requires a struct pointer, got pointer to %v", val.Kind())
	}
	return resolveStructValue(val, lookup, logger)
}

func resolveStructValue(val reflect.Value, lookup func(string) (string, bool), logger arbor.ILogger) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			oldValue := field.String()
			if newValue := ReplaceEnvReferences(oldValue, lookup, logger); oldValue != newValue {
				field.SetString(newValue)
				// Values are usually secrets; log the field only
				logger.Debug().Str("field", fieldType.Name).Msg("Resolved environment reference in config field")
			}

		case reflect.Struct:
			if err := resolveStructValue(field, lookup, logger); err != nil {
				return fmt.Errorf("failed to resolve in nested struct field '%s': %w", fieldType.Name, err)
			}

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				if err := resolveStructValue(field.Elem(), lookup, logger); err != nil {
					return fmt.Errorf("failed to resolve in pointer field '%s': %w", fieldType.Name, err)
				}
			}

		case reflect.Map:
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.String && !field.IsNil() {
				mapVal := field.Interface().(map[string]string)
				for key, value := range mapVal {
					mapVal[key] = ReplaceEnvReferences(value, lookup, logger)
				}
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for i := 0; i < field.Len(); i++ {
					elem := field.Index(i)
					elem.SetString(ReplaceEnvReferences(elem.String(), lookup, logger))
				}
			}
		}
	}

	return nil
}
