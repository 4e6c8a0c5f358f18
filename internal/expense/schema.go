package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrSchema is returned for a body that does not have the shape of an
// expense request.
var ErrSchema = errors.New("request body does not match schema")

const amountSchema = `{"anyOf": [
	{"type": "number"},
	{"type": "string", "pattern": "^-?[0-9]+(\\.[0-9]+)?$"}
]}`

var allocationsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"},
			"percentage": ` + amountSchema + `,
			"amount": ` + amountSchema + `
		}
	}
}`

var createSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["description", "total_amount"],
	"properties": {
		"description": {"type": "string"},
		"total_amount": ` + amountSchema + `,
		"currency": {"type": "string", "maxLength": 8},
		"is_shared": {"type": "boolean"},
		"split_type": {"type": "string"},
		"paid_by": {"type": ["string", "null"]},
		"allocations": ` + allocationsSchema + `,
		"receipt_image_key": {"type": ["string", "null"]},
		"category": {"type": ["string", "null"]},
		"trip_id": {"type": ["string", "null"]}
	}
}`

var updateSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"description": {"type": "string"},
		"total_amount": ` + amountSchema + `,
		"currency": {"type": "string", "maxLength": 8},
		"is_shared": {"type": "boolean"},
		"paid_by": {"type": "string"},
		"allocations": ` + allocationsSchema + `,
		"receipt_image_key": {"type": "string"},
		"category": {"type": "string"},
		"trip_id": {"type": "string"}
	}
}`

var (
	createRequestSchema = mustCompile("create_expense.json", createSchema)
	updateRequestSchema = mustCompile("update_expense.json", updateSchema)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// decodeRequest checks data against schema and then decodes it into dst.
func decodeRequest(schema *jsonschema.Schema, data []byte, dst any) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrSchema, describe(ve))
		}
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}

// describe returns the deepest failure, which names the offending field.
func describe(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return ve.InstanceLocation + ": " + ve.Message
}
