package utils

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaOptimizationPayload is the schema name for job payload validation
const SchemaOptimizationPayload = "optimization_payload"

// optimizationPayloadSchema constrains the opaque payload attached to a job at
// creation time. The engine never interprets the payload beyond this shape.
const optimizationPayloadSchema = `{
	"type": "object",
	"properties": {
		"dataset_id": {"type": "integer", "minimum": 1},
		"sku": {"type": "string", "minLength": 1},
		"horizon": {"type": "integer", "minimum": 1},
		"frequency": {"type": "string"},
		"notes": {"type": "string"}
	},
	"additionalProperties": true
}`

// JSONSchemaValidator handles validation against JSON schemas
type JSONSchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewJSONSchemaValidator creates a validator preloaded with the engine schemas
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	v := &JSONSchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema),
	}

	if err := v.LoadSchema(SchemaOptimizationPayload, optimizationPayloadSchema); err != nil {
		return nil, err
	}

	return v, nil
}

// LoadSchema loads and compiles a JSON schema
func (v *JSONSchemaValidator) LoadSchema(name, schema string) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	compiledSchema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	v.schemas[name] = compiledSchema
	return nil
}

// ValidateAgainstSchema validates data against a named schema
func (v *JSONSchemaValidator) ValidateAgainstSchema(name string, data interface{}) error {
	// Convert data to JSON
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	return v.ValidateJSON(name, jsonData)
}

// ValidateJSON validates raw JSON bytes against a named schema
func (v *JSONSchemaValidator) ValidateJSON(name string, jsonData []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema %s not found", name)
	}

	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := schema.Validate(documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages string
		for i, resultErr := range result.Errors() {
			if i > 0 {
				errorMessages += "; "
			}
			errorMessages += resultErr.String()
		}
		return fmt.Errorf("%w: %s", ErrValidation, errorMessages)
	}

	return nil
}
