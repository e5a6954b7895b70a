package phi

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/ae-intake/internal/compliance"
)

// Risk levels for a scanned document
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// highRiskThreshold is the field count above which a document is HIGH
// risk. Fixed policy, not configurable.
const highRiskThreshold = 5

// SecurityReport summarizes a document security scan
type SecurityReport struct {
	HasPHI    bool    `json:"has_phi"`
	Fields    []Field `json:"phi_fields,omitempty"`
	RiskLevel string  `json:"risk_level"`
}

// ValidateDocumentSecurity scans document content for sensitive data,
// classifies the risk level, and records one audit event summarizing
// the scan.
func ValidateDocumentSecurity(ctx context.Context, logger *compliance.Logger, documentID uuid.UUID, content string) SecurityReport {
	fields := Detect(content)

	report := SecurityReport{
		HasPHI: len(fields) > 0,
		Fields: fields,
	}
	switch {
	case len(fields) > highRiskThreshold:
		report.RiskLevel = RiskHigh
	case len(fields) > 0:
		report.RiskLevel = RiskMedium
	default:
		report.RiskLevel = RiskLow
	}

	if logger != nil {
		logger.Log(ctx, compliance.Event{
			Action:     "document_security_scan",
			DocumentID: &documentID,
			Details: map[string]any{
				"phi_detected":        report.HasPHI,
				"phi_fields_detected": len(fields),
				"phi_classifications": Summarize(fields),
				"risk_level":          report.RiskLevel,
			},
		})
	}

	return report
}
