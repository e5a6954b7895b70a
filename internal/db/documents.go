package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateDocument inserts a new document record and returns it.
// The caller supplies the id: sessions and storage paths are keyed on
// it before the row exists.
func (db *DB) CreateDocument(ctx context.Context, input *DocumentInput) (*Document, error) {
	var metadataJSON []byte
	if input.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var doc Document
	err := db.pool.QueryRow(ctx,
		`INSERT INTO documents (id, user_id, filename, storage_path, mime_type, size_bytes, page_count, status, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, user_id, filename, storage_path, mime_type, size_bytes, page_count, status, metadata, created_at, updated_at`,
		id, input.UserID, input.Filename, input.StoragePath, input.MimeType,
		input.SizeBytes, input.PageCount, DocumentStatusUploaded, metadataJSON,
	).Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.StoragePath, &doc.MimeType,
		&doc.SizeBytes, &doc.PageCount, &doc.Status, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if metadataJSON != nil {
		_ = json.Unmarshal(metadataJSON, &doc.Metadata)
	}

	return &doc, nil
}

// GetDocument retrieves a document by ID
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	var metadataJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, storage_path, mime_type, size_bytes, page_count, status, metadata, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.StoragePath, &doc.MimeType,
		&doc.SizeBytes, &doc.PageCount, &doc.Status, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if metadataJSON != nil {
		_ = json.Unmarshal(metadataJSON, &doc.Metadata)
	}

	return &doc, nil
}

// UpdateDocumentStatus updates the processing status of a document
func (db *DB) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// ListDocuments retrieves recent documents for a user
func (db *DB) ListDocuments(ctx context.Context, userID string, limit int) ([]Document, error) {
	if limit == 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, filename, storage_path, mime_type, size_bytes, page_count, status, metadata, created_at, updated_at
		 FROM documents WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var metadataJSON []byte
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.StoragePath, &doc.MimeType,
			&doc.SizeBytes, &doc.PageCount, &doc.Status, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if metadataJSON != nil {
			_ = json.Unmarshal(metadataJSON, &doc.Metadata)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DeleteDocument deletes a document and its extractions/narratives (via cascade)
func (db *DB) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}
