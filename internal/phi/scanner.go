// Package phi detects and redacts protected health information in
// free text using a fixed set of pattern categories.
package phi

import "regexp"

// FieldType identifies a sensitive-data category
type FieldType string

const (
	FieldSSN           FieldType = "SSN"
	FieldPhone         FieldType = "PHONE"
	FieldEmail         FieldType = "EMAIL"
	FieldDateOfBirth   FieldType = "DATE_OF_BIRTH"
	FieldMedicalRecord FieldType = "MEDICAL_RECORD"
	FieldHealthCard    FieldType = "HEALTH_CARD"
)

// Classification levels for detected fields
const (
	ClassificationPII       = "PII"
	ClassificationPHI       = "PHI"
	ClassificationSensitive = "SENSITIVE"
	ClassificationPublic    = "PUBLIC"
)

// Field is a single detected sensitive-data occurrence
type Field struct {
	Type           FieldType `json:"type"`
	Value          string    `json:"value"`
	Encrypted      bool      `json:"encrypted"`
	Classification string    `json:"classification"`
}

// category pairs a field type with its pattern and classification.
// The scan order is fixed.
type category struct {
	fieldType      FieldType
	pattern        *regexp.Regexp
	classification string
}

var categories = []category{
	{FieldSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), ClassificationPHI},
	{FieldPhone, regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`), ClassificationPHI},
	{FieldEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), ClassificationPII},
	{FieldDateOfBirth, regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12]\d|3[01])[/-](?:19|20)\d{2}\b`), ClassificationPHI},
	{FieldMedicalRecord, regexp.MustCompile(`(?i)\bMRN?[:#\s]\s*\d{6,10}\b`), ClassificationPHI},
	{FieldHealthCard, regexp.MustCompile(`\b\d{4}[-\s]\d{3}[-\s]\d{3}(?:[-\s]?[A-Z]{2})?\b`), ClassificationPHI},
}

// Detect scans text against every category and returns one Field per
// match. Duplicates are kept; no matches yields nil. Detect never
// fails and has no side effects.
func Detect(text string) []Field {
	if text == "" {
		return nil
	}

	var fields []Field
	for _, cat := range categories {
		for _, match := range cat.pattern.FindAllString(text, -1) {
			fields = append(fields, Field{
				Type:           cat.fieldType,
				Value:          match,
				Encrypted:      false,
				Classification: cat.classification,
			})
		}
	}
	return fields
}

// Summarize counts detected fields by classification
func Summarize(fields []Field) map[string]int {
	summary := make(map[string]int)
	for _, f := range fields {
		summary[f.Classification]++
	}
	return summary
}
