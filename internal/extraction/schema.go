package extraction

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed case_schema.json
var caseSchemaJSON string

// ValidateCase checks a structured case payload against the case
// schema. Callers that receive an error should fall back to storing
// the raw payload rather than aborting.
func ValidateCase(payload map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(caseSchemaJSON)
	docLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return fmt.Errorf("case payload invalid: %s", strings.Join(msgs, "; "))
}
