package db

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus constants
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Document represents an uploaded adverse-event report
type Document struct {
	ID          uuid.UUID      `json:"id"`
	UserID      string         `json:"user_id"`
	Filename    string         `json:"filename"`
	StoragePath string         `json:"storage_path"`
	MimeType    string         `json:"mime_type"`
	SizeBytes   int64          `json:"size_bytes"`
	PageCount   *int           `json:"page_count,omitempty"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentInput represents input for creating a document record.
// A zero ID lets the store generate one.
type DocumentInput struct {
	ID          uuid.UUID
	UserID      string
	Filename    string
	StoragePath string
	MimeType    string
	SizeBytes   int64
	PageCount   *int
	Metadata    map[string]any
}

// Extraction represents structured data extracted from a document
type Extraction struct {
	ID         uuid.UUID      `json:"id"`
	DocumentID uuid.UUID      `json:"document_id"`
	Payload    map[string]any `json:"payload"`
	Fallback   bool           `json:"fallback"`
	Model      string         `json:"model,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ExtractionInput represents input for persisting an extraction
type ExtractionInput struct {
	DocumentID uuid.UUID
	Payload    map[string]any
	Fallback   bool
	Model      string
}

// Narrative represents a generated case narrative for a document
type Narrative struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	Model      string    `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProcessingLog represents one append-only row in the processing log.
// Progress snapshots and compliance events share this table; they are
// distinguished only by the action string.
type ProcessingLog struct {
	ID         uuid.UUID      `json:"id"`
	DocumentID *uuid.UUID     `json:"document_id,omitempty"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ProcessingLogInput represents input for appending a processing log row
type ProcessingLogInput struct {
	DocumentID *uuid.UUID
	UserID     string
	Action     string
	Details    map[string]any
}
