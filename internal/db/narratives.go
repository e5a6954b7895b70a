package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateNarrative stores a generated narrative for a document
func (db *DB) CreateNarrative(ctx context.Context, documentID uuid.UUID, content, model string) (*Narrative, error) {
	var n Narrative
	err := db.pool.QueryRow(ctx,
		`INSERT INTO narratives (document_id, content, model)
		 VALUES ($1, $2, $3)
		 RETURNING id, document_id, content, model, created_at`,
		documentID, content, model,
	).Scan(&n.ID, &n.DocumentID, &n.Content, &n.Model, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create narrative: %w", err)
	}
	return &n, nil
}

// GetNarrative retrieves a narrative by its ID
func (db *DB) GetNarrative(ctx context.Context, id uuid.UUID) (*Narrative, error) {
	var n Narrative
	err := db.pool.QueryRow(ctx,
		`SELECT id, document_id, content, model, created_at
		 FROM narratives WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.DocumentID, &n.Content, &n.Model, &n.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get narrative: %w", err)
	}
	return &n, nil
}

// ListNarratives retrieves narratives for a document, newest first
func (db *DB) ListNarratives(ctx context.Context, documentID uuid.UUID) ([]Narrative, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, document_id, content, model, created_at
		 FROM narratives WHERE document_id = $1 ORDER BY created_at DESC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list narratives: %w", err)
	}
	defer rows.Close()

	var narratives []Narrative
	for rows.Next() {
		var n Narrative
		if err := rows.Scan(&n.ID, &n.DocumentID, &n.Content, &n.Model, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan narrative: %w", err)
		}
		narratives = append(narratives, n)
	}
	return narratives, nil
}
