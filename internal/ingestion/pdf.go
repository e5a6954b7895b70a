// Package ingestion validates uploaded report files before any
// pipeline stage runs. Rejection here is user-visible and happens
// before a session is created.
package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidFormat indicates the uploaded file is not a usable PDF
type ErrInvalidFormat struct {
	Filename string
	Reason   string
}

func (e *ErrInvalidFormat) Error() string {
	return fmt.Sprintf("invalid file format: %s: %s", e.Filename, e.Reason)
}

// pdfMagic is the header every PDF starts with
var pdfMagic = []byte("%PDF-")

// ValidateUpload checks that the uploaded file is a structurally valid
// PDF and returns its page count. Validation is relaxed: real-world
// report PDFs are frequently produced by sloppy generators.
func ValidateUpload(filename string, content []byte) (int, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return 0, &ErrInvalidFormat{Filename: filename, Reason: "only PDF files are accepted"}
	}
	if len(content) == 0 {
		return 0, &ErrInvalidFormat{Filename: filename, Reason: "file is empty"}
	}
	if !bytes.HasPrefix(content, pdfMagic) {
		return 0, &ErrInvalidFormat{Filename: filename, Reason: "missing PDF header"}
	}

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	reader := bytes.NewReader(content)
	if err := api.Validate(reader, cfg); err != nil {
		return 0, &ErrInvalidFormat{Filename: filename, Reason: fmt.Sprintf("malformed PDF: %v", err)}
	}

	if _, err := reader.Seek(0, 0); err != nil {
		return 0, fmt.Errorf("failed to rewind upload: %w", err)
	}
	pageCount, err := api.PageCount(reader, cfg)
	if err != nil {
		return 0, &ErrInvalidFormat{Filename: filename, Reason: fmt.Sprintf("unreadable page tree: %v", err)}
	}

	return pageCount, nil
}

// ExtractText returns the decoded page content streams of a PDF,
// concatenated across pages. Stream filters (FlateDecode and friends)
// are decoded, so the result holds the text operators the author
// actually wrote, never the raw container bytes with their xref
// tables and object headers.
func ExtractText(content []byte) (string, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadAndValidate(bytes.NewReader(content), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	var sb strings.Builder
	for page := 1; page <= ctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d content: %w", page, err)
		}
		if r == nil {
			continue
		}
		if _, err := io.Copy(&sb, r); err != nil {
			return "", fmt.Errorf("failed to read page %d content: %w", page, err)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
