// Package narrative structures raw extraction output into case records
// and generates ICSR-style case narratives from them.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/ae-intake/internal/extraction"
	"github.com/jonathan/ae-intake/internal/llm"
	"github.com/jonathan/ae-intake/internal/prompts"
)

// APICallError indicates the language-model collaborator failed
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("llm call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// StructureCase converts a raw extraction payload into a structured
// case record via the language model. When the model's output fails
// schema validation the raw payload is returned unchanged so the
// pipeline can still persist something reviewable.
func StructureCase(ctx context.Context, client llm.Client, raw map[string]any) (map[string]any, error) {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction payload: %w", err)
	}

	system := prompts.MustGet("analysis.json", "system")
	user := prompts.Format(prompts.MustGet("analysis.json", "structure_case"),
		map[string]string{"Extraction": string(rawJSON)})

	responseText, err := client.GenerateJSON(ctx, system, user, llm.TierLite)
	if err != nil {
		return nil, &APICallError{Message: "failed to structure case", Cause: err}
	}

	var structured map[string]any
	if err := json.Unmarshal([]byte(responseText), &structured); err != nil {
		return raw, nil
	}
	if err := extraction.ValidateCase(structured); err != nil {
		return raw, nil
	}
	return structured, nil
}

// Generate writes a case narrative for a structured case record
func Generate(ctx context.Context, client llm.Client, caseData map[string]any) (string, error) {
	caseJSON, err := json.Marshal(caseData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal case data: %w", err)
	}

	system := prompts.MustGet("narrative.json", "system")
	user := prompts.Format(prompts.MustGet("narrative.json", "case_narrative"),
		map[string]string{"Case": string(caseJSON)})

	text, err := client.Generate(ctx, system, user, llm.TierStandard)
	if err != nil {
		return "", &APICallError{Message: "failed to generate narrative", Cause: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &APICallError{Message: "empty narrative from model"}
	}
	return text, nil
}
