package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AppendProcessingLog appends one row to the processing log.
// Rows are write-once; there is no update path.
func (db *DB) AppendProcessingLog(ctx context.Context, input *ProcessingLogInput) (*ProcessingLog, error) {
	var detailsJSON []byte
	if input.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(input.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal log details: %w", err)
		}
	}

	var row ProcessingLog
	err := db.pool.QueryRow(ctx,
		`INSERT INTO processing_logs (document_id, user_id, action, details)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, document_id, user_id, action, details, created_at`,
		input.DocumentID, input.UserID, input.Action, detailsJSON,
	).Scan(&row.ID, &row.DocumentID, &row.UserID, &row.Action, &detailsJSON, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append processing log: %w", err)
	}

	if detailsJSON != nil {
		_ = json.Unmarshal(detailsJSON, &row.Details)
	}

	return &row, nil
}

// LatestProcessingLog retrieves the most recent log row for an action
// whose details carry the given session id.
func (db *DB) LatestProcessingLog(ctx context.Context, action, sessionID string) (*ProcessingLog, error) {
	var row ProcessingLog
	var detailsJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, document_id, user_id, action, details, created_at
		 FROM processing_logs
		 WHERE action = $1 AND details->>'session_id' = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		action, sessionID,
	).Scan(&row.ID, &row.DocumentID, &row.UserID, &row.Action, &detailsJSON, &row.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get processing log: %w", err)
	}

	if detailsJSON != nil {
		_ = json.Unmarshal(detailsJSON, &row.Details)
	}

	return &row, nil
}

// ListProcessingLogs retrieves log rows for a document, oldest first
func (db *DB) ListProcessingLogs(ctx context.Context, documentID uuid.UUID, limit int) ([]ProcessingLog, error) {
	if limit == 0 {
		limit = 100
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, document_id, user_id, action, details, created_at
		 FROM processing_logs WHERE document_id = $1
		 ORDER BY created_at ASC LIMIT $2`,
		documentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing logs: %w", err)
	}
	defer rows.Close()

	var logs []ProcessingLog
	for rows.Next() {
		var row ProcessingLog
		var detailsJSON []byte
		if err := rows.Scan(&row.ID, &row.DocumentID, &row.UserID, &row.Action, &detailsJSON, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan processing log: %w", err)
		}
		if detailsJSON != nil {
			_ = json.Unmarshal(detailsJSON, &row.Details)
		}
		logs = append(logs, row)
	}
	return logs, nil
}
