package gateway

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// convertSchema converts a JSON Schema to the genai.Schema the Gemini API
// expects for structured output
func convertSchema(schema *jsonschema.Schema) (*genai.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	converted := &genai.Schema{}

	switch schema.Type {
	case "object":
		converted.Type = genai.TypeObject
	case "string":
		converted.Type = genai.TypeString
	case "integer":
		converted.Type = genai.TypeInteger
	case "number":
		converted.Type = genai.TypeNumber
	case "boolean":
		converted.Type = genai.TypeBoolean
	case "array":
		converted.Type = genai.TypeArray
	default:
		if schema.Type != "" {
			return nil, goerr.New("unsupported schema type", goerr.V("type", schema.Type))
		}
	}

	if schema.Description != "" {
		converted.Description = schema.Description
	}

	if len(schema.Enum) > 0 {
		converted.Enum = make([]string, 0, len(schema.Enum))
		for _, v := range schema.Enum {
			if s, ok := v.(string); ok {
				converted.Enum = append(converted.Enum, s)
			}
		}
	}

	if len(schema.Properties) > 0 {
		converted.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			p, err := convertSchema(prop)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert property schema", goerr.V("property", name))
			}
			converted.Properties[name] = p
		}
	}

	if len(schema.Required) > 0 {
		converted.Required = schema.Required
	}

	if schema.Items != nil {
		items, err := convertSchema(schema.Items)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert items schema")
		}
		converted.Items = items
	}

	return converted, nil
}
