// Package extraction talks to the external document-parsing service
// and provides the minimal fallback payload used when that service is
// unavailable.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single extraction request. The parsing
// service processes uploads synchronously and can be slow on large
// scans.
const DefaultTimeout = 120 * time.Second

// Client calls the external extraction service
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client for the extraction service at baseURL,
// authenticated with the given bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// Extract uploads a document and returns the service's unstructured
// JSON extraction result.
func (c *Client) Extract(ctx context.Context, filename string, content []byte) (map[string]any, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode extraction result: %w", err)
	}
	return result, nil
}

// Minimal returns the fallback extraction payload recorded when the
// external service cannot produce one. It is flagged so downstream
// consumers know no real parsing happened.
func Minimal(filename string) map[string]any {
	return map[string]any{
		"fallback":     true,
		"filename":     filename,
		"raw_text":     "",
		"extracted_at": time.Now().UTC().Format(time.RFC3339),
		"note":         "extraction service unavailable; manual review required",
	}
}
