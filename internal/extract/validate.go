package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pagescribe/internal/automation"
)

// validatePayload checks the raw decoded model object, before sentinel
// rewriting, against a schema built from the automation's field spec.
// Every value must be a scalar; a model that returns nested objects or
// arrays for a field fails here instead of being silently stringified.
func validatePayload(fieldSpec string, pairs []pair) error {
	schemaBytes, err := json.Marshal(payloadSchema(automation.SplitFields(fieldSpec)))
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.json", bytes.NewReader(schemaBytes)); err != nil {
		return err
	}
	compiled, err := compiler.Compile("extraction.json")
	if err != nil {
		return err
	}
	data := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		data[kv.key] = kv.value
	}
	if err := compiled.Validate(data); err != nil {
		return fmt.Errorf("extraction reply failed validation: %w", err)
	}
	return nil
}

func payloadSchema(names []string) map[string]any {
	scalar := map[string]any{"type": []string{"string", "number", "boolean", "null"}}
	properties := make(map[string]any, len(names))
	for _, name := range names {
		properties[name] = scalar
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": scalar,
	}
}
