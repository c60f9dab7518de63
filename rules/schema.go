package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
)

// Schema describes the facts a rule set may reference.
// Maps object names to field definitions (field name -> CEL type name).
type Schema map[string]map[string]string

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var validCELTypes = map[string]bool{
	"int":       true,
	"int64":     true,
	"float64":   true,
	"string":    true,
	"bool":      true,
	"bytes":     true,
	"timestamp": true,
	"duration":  true,
}

var reservedKeywords = map[string]bool{
	"true": true, "false": true, "null": true,
	"if": true, "else": true, "for": true, "while": true,
	"break": true, "continue": true, "return": true,
	"var": true, "let": true, "const": true, "function": true,
	"in": true, "as": true, "import": true, "package": true,
	"namespace": true, "loop": true, "void": true,
}

// NewEnvFromSchema validates schema and creates a CEL environment with one
// dynamic variable per top-level object.
func NewEnvFromSchema(schema Schema) (*cel.Env, error) {
	if err := ValidateSchema(schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	var opts []cel.EnvOption
	for objectName := range schema {
		opts = append(opts, cel.Variable(objectName, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// ValidateSchema returns an error describing the first problem found in schema.
func ValidateSchema(schema Schema) error {
	if len(schema) == 0 {
		return fmt.Errorf("schema cannot be empty, must contain at least one object definition")
	}

	if len(schema) > 100 {
		return fmt.Errorf("schema contains %d objects, maximum allowed is 100", len(schema))
	}

	for objectName, fields := range schema {
		if err := validateIdentifier(objectName); err != nil {
			return fmt.Errorf("invalid object name %q: %w", objectName, err)
		}

		if len(fields) == 0 {
			return fmt.Errorf("object %q must contain at least one field", objectName)
		}

		if len(fields) > 200 {
			return fmt.Errorf("object %q contains %d fields, maximum allowed is 200", objectName, len(fields))
		}

		for fieldName, typeName := range fields {
			if err := validateIdentifier(fieldName); err != nil {
				return fmt.Errorf("invalid field name %q in object %q: %w", fieldName, objectName, err)
			}

			if typeName == "" {
				return fmt.Errorf("field %q in object %q has empty type name", fieldName, objectName)
			}

			if strings.TrimSpace(typeName) != typeName {
				return fmt.Errorf("field %q in object %q has type with leading/trailing whitespace: %q", fieldName, objectName, typeName)
			}

			if !validCELTypes[typeName] {
				return fmt.Errorf("field %q in object %q has invalid type %q (must be one of: int, int64, float64, string, bool, bytes, timestamp, duration)", fieldName, objectName, typeName)
			}
		}
	}

	return nil
}

func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("identifier length %d exceeds maximum of 100 characters", len(name))
	}

	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$")
	}

	if reservedKeywords[name] {
		return fmt.Errorf("cannot use reserved keyword %q as identifier", name)
	}

	return nil
}
