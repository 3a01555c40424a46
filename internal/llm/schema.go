package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is sent to the model as an output constraint and used
// locally to validate what comes back. Every field is optional: an invoice
// photographed badly may yield nothing but raw text.
func BuildInvoiceJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"invoice_number":  map[string]any{"type": "string"},
			"invoice_date":    map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"customer_name":   map[string]any{"type": "string"},
			"contract_number": map[string]any{"type": "string"},
			"car_number":      map[string]any{"type": "string"},
			"total_amount":    map[string]any{"type": "number", "minimum": 0.0},
			"payment_period":  map[string]any{"type": "string"},
			"notes":           map[string]any{"type": "string"},
			"language_detected": map[string]any{
				"type": "string",
				"enum": []string{"arabic", "english", "mixed"},
			},
			"raw_text": map[string]any{"type": "string"},
			"context_clues": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"car_numbers":       stringArrayProp(),
					"months":            stringArrayProp(),
					"amounts":           stringArrayProp(),
					"agreement_numbers": stringArrayProp(),
				},
			},
		},
	}
}

func stringArrayProp() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
