// Package server provides the HTTP REST API for the intake service.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/ae-intake/internal/ingestion"
)

// ErrDocumentNotFound indicates the document does not exist
type ErrDocumentNotFound struct {
	DocumentID uuid.UUID
}

func (e *ErrDocumentNotFound) Error() string {
	return fmt.Sprintf("document not found: %s", e.DocumentID)
}

// ErrNarrativeNotFound indicates the narrative does not exist
type ErrNarrativeNotFound struct {
	NarrativeID uuid.UUID
}

func (e *ErrNarrativeNotFound) Error() string {
	return fmt.Sprintf("narrative not found: %s", e.NarrativeID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var invalidFormat *ingestion.ErrInvalidFormat
	if errors.As(err, &invalidFormat) {
		return http.StatusBadRequest
	}

	switch err.(type) {
	case *ErrDocumentNotFound, *ErrNarrativeNotFound:
		return http.StatusNotFound
	case *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
