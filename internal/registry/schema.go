// Package registry implements the Tool Registry & Dispatcher of §4.H:
// an ordered tool_name -> {description, input_schema, handler,
// default_timeout_ms} map, JSON-schema-like argument validation,
// per-invocation deadlines, and a bounded invocation ring buffer.
package registry

import "fmt"

// FieldType names the scalar JSON types the registry validates.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
)

// Field describes one property of a tool's input schema.
type Field struct {
	Type     FieldType
	Required bool
}

// Schema is a JSON-schema-like record sufficient to validate argument
// presence and scalar types (§4.H).
type Schema struct {
	Properties map[string]Field
}

// Validate checks args against the schema: every required field must
// be present, and every present field with a known type must match
// that type. Extra fields not named in the schema are permitted.
func (s Schema) Validate(args map[string]any) error {
	for name, field := range s.Properties {
		value, present := args[name]
		if !present {
			if field.Required {
				return fmt.Errorf("missing required argument %q", name)
			}
			continue
		}
		if err := checkType(name, field.Type, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name string, want FieldType, value any) error {
	if value == nil {
		return nil
	}
	switch want {
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
	case TypeNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("argument %q must be a number", name)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", name)
		}
	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("argument %q must be an object", name)
		}
	case TypeArray:
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("argument %q must be an array", name)
		}
	}
	return nil
}
