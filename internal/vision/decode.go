package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"shiftledger/internal/common"
)

// decodeResponse turns the model's text into a validated field map. Models
// wrap JSON in markdown fences or leave it slightly malformed often enough
// that we strip and repair before validating.
func decodeResponse(text string, schemaMap map[string]any) (map[string]any, error) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil, common.NewAppError("VISION", "empty response from model", common.ErrValidation)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		repaired, rErr := jsonrepair.RepairJSON(cleaned)
		if rErr != nil {
			return nil, common.NewAppError("VISION", "response is not repairable JSON", rErr)
		}
		if err := json.Unmarshal([]byte(repaired), &m); err != nil {
			return nil, common.NewAppError("VISION", "unmarshal repaired response", err)
		}
	}
	if len(m) == 0 {
		return nil, common.NewAppError("VISION", "response decoded to an empty object", common.ErrValidation)
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return nil, common.NewAppError("VISION", "re-marshal response", err)
	}
	if err := validateJSONAgainstSchema(schemaMap, doc); err != nil {
		return nil, err
	}
	return m, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// validateJSONAgainstSchema validates data against schemaMap.
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
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
