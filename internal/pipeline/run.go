// Package pipeline provides the high-level orchestration for document
// intake: upload, security scan, extraction, analysis, persistence,
// and narrative generation.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/ae-intake/internal/compliance"
	"github.com/jonathan/ae-intake/internal/db"
	"github.com/jonathan/ae-intake/internal/extraction"
	"github.com/jonathan/ae-intake/internal/ingestion"
	"github.com/jonathan/ae-intake/internal/llm"
	"github.com/jonathan/ae-intake/internal/narrative"
	"github.com/jonathan/ae-intake/internal/phi"
	"github.com/jonathan/ae-intake/internal/progress"
	"github.com/jonathan/ae-intake/internal/retry"
	"github.com/jonathan/ae-intake/internal/storage"
)

// Stage progress percentages surfaced to the UI. Fixed per stage, not
// computed from throughput.
const (
	PercentUploaded  = 10
	PercentRecorded  = 20
	PercentScanned   = 30
	PercentExtracted = 50
	PercentAnalyzed  = 80
	PercentCompleted = 100
)

// totalSteps is the number of checkpointed stages per session
const totalSteps = 3

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id,omitempty"`
	Stage      string `json:"stage"`
	Percent    int    `json:"percent"`
	Message    string `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Database is the slice of persistence the pipeline needs.
// *db.DB satisfies it.
type Database interface {
	CreateDocument(ctx context.Context, input *db.DocumentInput) (*db.Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error
	SaveExtraction(ctx context.Context, input *db.ExtractionInput) (*db.Extraction, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*db.Document, error)
	GetExtraction(ctx context.Context, documentID uuid.UUID) (*db.Extraction, error)
	CreateNarrative(ctx context.Context, documentID uuid.UUID, content, model string) (*db.Narrative, error)
}

// Extractor is the external document-parsing collaborator.
// *extraction.Client satisfies it.
type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte) (map[string]any, error)
}

// Deps holds the collaborators shared by every pipeline run
type Deps struct {
	DB        Database
	Store     storage.Store
	Extractor Extractor
	LLM       llm.Client // nil skips the analysis stage
	Audit     *compliance.Logger
	Tracker   *progress.Tracker
	RetryCfg  retry.Config
}

// Options holds per-run inputs
type Options struct {
	UserID     string
	Filename   string
	Content    []byte
	OnProgress ProgressCallback
}

// Result summarizes a completed pipeline run
type Result struct {
	DocumentID uuid.UUID
	SessionID  string
	Security   phi.SecurityReport
	Extraction *db.Extraction
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *Options, docID uuid.UUID, sessionID, stage string, percent int, message string) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			DocumentID: docID.String(),
			SessionID:  sessionID,
			Stage:      stage,
			Percent:    percent,
			Message:    message,
		})
	}
}

// Run executes the full intake pipeline for one uploaded file.
//
// Invalid files are rejected before any session or record is created.
// Observability failures (progress saves, audit writes) never abort
// the run; only failures of the user-initiated stages do.
func Run(ctx context.Context, deps Deps, opts Options) (*Result, error) {
	pageCount, err := ingestion.ValidateUpload(opts.Filename, opts.Content)
	if err != nil {
		return nil, err
	}

	docID := uuid.New()
	sessionID := deps.Tracker.NewSession(ctx, docID.String(), totalSteps)

	fail := func(stage string, err error) (*Result, error) {
		// Session state is advisory; the document status is what
		// callers observe.
		_ = deps.Tracker.SetStatus(ctx, sessionID, progress.StatusFailed)
		_ = deps.DB.UpdateDocumentStatus(ctx, docID, db.DocumentStatusFailed)
		deps.Audit.Log(ctx, compliance.Event{
			Action:     "processing_failed",
			DocumentID: &docID,
			UserID:     opts.UserID,
			Details: map[string]any{
				"session_id": sessionID,
				"stage":      stage,
				"error":      err.Error(),
			},
		})
		return nil, fmt.Errorf("%s failed: %w", stage, err)
	}

	// Stage 1: upload the blob
	storagePath := fmt.Sprintf("documents/%s/%s", docID, opts.Filename)
	_, err = retry.WithRetry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, deps.Store.Upload(ctx, storagePath, opts.Content)
	}, deps.RetryCfg, deps.Audit, "upload "+storagePath)
	if err != nil {
		return fail("upload", err)
	}
	emitProgress(&opts, docID, sessionID, "uploaded", PercentUploaded, "File stored")

	// Stage 2: create the document record
	doc, err := retry.WithRetry(ctx, func(ctx context.Context) (*db.Document, error) {
		return deps.DB.CreateDocument(ctx, &db.DocumentInput{
			ID:          docID,
			UserID:      opts.UserID,
			Filename:    opts.Filename,
			StoragePath: storagePath,
			MimeType:    "application/pdf",
			SizeBytes:   int64(len(opts.Content)),
			PageCount:   &pageCount,
		})
	}, deps.RetryCfg, deps.Audit, "create document record")
	if err != nil {
		return fail("create document record", err)
	}
	_ = deps.DB.UpdateDocumentStatus(ctx, doc.ID, db.DocumentStatusProcessing)
	emitProgress(&opts, docID, sessionID, "recorded", PercentRecorded, "Document record created")

	// Stage 3: security scan. Checkpoint after the scan completes.
	// The scan runs over the decoded page content, never the raw
	// container bytes, so xref offsets and object headers cannot
	// register as detections.
	text, terr := ingestion.ExtractText(opts.Content)
	if terr != nil {
		// Validation already accepted the file; an unreadable content
		// stream leaves nothing to scan.
		log.Printf("text extraction failed for document %s: %v", docID, terr)
		text = ""
	}
	report := phi.ValidateDocumentSecurity(ctx, deps.Audit, docID, text)
	deps.Tracker.Checkpoint(sessionID, "security_scan", map[string]any{
		"risk_level":   report.RiskLevel,
		"phi_detected": report.HasPHI,
	})(ctx)
	emitProgress(&opts, docID, sessionID, "scanned", PercentScanned,
		fmt.Sprintf("Security scan complete: %s risk", report.RiskLevel))

	// Stage 4: external extraction, with a minimal fallback when the
	// service is down. The primary path retries before the fallback
	// engages.
	extract := retry.NewFallbackHandler(
		func(ctx context.Context) (map[string]any, error) {
			return retry.WithRetry(ctx, func(ctx context.Context) (map[string]any, error) {
				return deps.Extractor.Extract(ctx, opts.Filename, opts.Content)
			}, deps.RetryCfg, deps.Audit, "extract "+docID.String())
		},
		func(ctx context.Context) (map[string]any, error) {
			return extraction.Minimal(opts.Filename), nil
		},
		deps.Audit, "extraction "+docID.String(),
	)
	payload, err := extract(ctx)
	if err != nil {
		return fail("extraction", err)
	}
	usedFallback, _ := payload["fallback"].(bool)
	deps.Tracker.Checkpoint(sessionID, "extraction", map[string]any{
		"fallback": usedFallback,
	})(ctx)
	emitProgress(&opts, docID, sessionID, "extracted", PercentExtracted, "Extraction complete")

	// Stage 5: LLM analysis structures the raw payload. Skipped when
	// no model is configured or the fallback produced the payload.
	model := ""
	if deps.LLM != nil && !usedFallback {
		structured, err := narrative.StructureCase(ctx, deps.LLM, payload)
		if err != nil {
			return fail("analysis", err)
		}
		payload = structured
		model = deps.LLM.ModelName(llm.TierLite)
	}
	emitProgress(&opts, docID, sessionID, "analyzed", PercentAnalyzed, "Analysis complete")

	// Stage 6: persist the extraction
	ext, err := retry.WithRetry(ctx, func(ctx context.Context) (*db.Extraction, error) {
		return deps.DB.SaveExtraction(ctx, &db.ExtractionInput{
			DocumentID: docID,
			Payload:    payload,
			Fallback:   usedFallback,
			Model:      model,
		})
	}, deps.RetryCfg, deps.Audit, "persist extraction")
	if err != nil {
		return fail("persist extraction", err)
	}

	deps.Tracker.Checkpoint(sessionID, "completed", nil)(ctx)
	_ = deps.Tracker.SetStatus(ctx, sessionID, progress.StatusCompleted)
	_ = deps.DB.UpdateDocumentStatus(ctx, docID, db.DocumentStatusCompleted)

	deps.Audit.Log(ctx, compliance.Event{
		Action:     "document_processed",
		DocumentID: &docID,
		UserID:     opts.UserID,
		Details: map[string]any{
			"session_id":          sessionID,
			"phi_detected":        report.HasPHI,
			"phi_fields_detected": len(report.Fields),
			"phi_classifications": phi.Summarize(report.Fields),
			"risk_level":          report.RiskLevel,
			"fallback_extraction": usedFallback,
		},
	})
	emitProgress(&opts, docID, sessionID, "completed", PercentCompleted, "Processing complete")

	return &Result{
		DocumentID: docID,
		SessionID:  sessionID,
		Security:   report,
		Extraction: ext,
	}, nil
}

// GenerateNarrative produces and persists a case narrative for an
// already-processed document. Invoked on user action, outside Run.
func GenerateNarrative(ctx context.Context, deps Deps, documentID uuid.UUID, userID string) (*db.Narrative, error) {
	if deps.LLM == nil {
		return nil, fmt.Errorf("no language model configured")
	}

	ext, err := deps.DB.GetExtraction(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction: %w", err)
	}
	if ext == nil {
		return nil, fmt.Errorf("no extraction found for document %s", documentID)
	}

	// Direct identifiers stay inside the system; the narrative model
	// only ever sees the redacted case record.
	caseData := ext.Payload
	if sanitized, ok := phi.Redact(caseData).(map[string]any); ok {
		caseData = sanitized
	}
	content, err := narrative.Generate(ctx, deps.LLM, caseData)
	if err != nil {
		return nil, err
	}

	n, err := deps.DB.CreateNarrative(ctx, documentID, content, deps.LLM.ModelName(llm.TierStandard))
	if err != nil {
		return nil, fmt.Errorf("failed to persist narrative: %w", err)
	}

	deps.Audit.Log(ctx, compliance.Event{
		Action:     "narrative_generated",
		DocumentID: &documentID,
		UserID:     userID,
		Details:    map[string]any{"narrative_id": n.ID.String()},
	})

	return n, nil
}
