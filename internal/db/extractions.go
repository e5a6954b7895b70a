package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveExtraction upserts the extraction for a document.
// A document holds at most one extraction; re-processing overwrites it.
func (db *DB) SaveExtraction(ctx context.Context, input *ExtractionInput) (*Extraction, error) {
	payloadJSON, err := json.Marshal(input.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction payload: %w", err)
	}

	var ext Extraction
	err = db.pool.QueryRow(ctx,
		`INSERT INTO extractions (document_id, payload, fallback, model)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (document_id) DO UPDATE
		 SET payload = EXCLUDED.payload, fallback = EXCLUDED.fallback,
		     model = EXCLUDED.model, updated_at = NOW()
		 RETURNING id, document_id, payload, fallback, model, created_at, updated_at`,
		input.DocumentID, payloadJSON, input.Fallback, input.Model,
	).Scan(&ext.ID, &ext.DocumentID, &payloadJSON, &ext.Fallback, &ext.Model,
		&ext.CreatedAt, &ext.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save extraction: %w", err)
	}

	if payloadJSON != nil {
		_ = json.Unmarshal(payloadJSON, &ext.Payload)
	}

	return &ext, nil
}

// GetExtraction retrieves the extraction for a document
func (db *DB) GetExtraction(ctx context.Context, documentID uuid.UUID) (*Extraction, error) {
	var ext Extraction
	var payloadJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, document_id, payload, fallback, model, created_at, updated_at
		 FROM extractions WHERE document_id = $1`,
		documentID,
	).Scan(&ext.ID, &ext.DocumentID, &payloadJSON, &ext.Fallback, &ext.Model,
		&ext.CreatedAt, &ext.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}

	if payloadJSON != nil {
		_ = json.Unmarshal(payloadJSON, &ext.Payload)
	}

	return &ext, nil
}
