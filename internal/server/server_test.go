package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ae-intake/internal/compliance"
	"github.com/jonathan/ae-intake/internal/db"
	"github.com/jonathan/ae-intake/internal/pipeline"
	"github.com/jonathan/ae-intake/internal/progress"
	"github.com/jonathan/ae-intake/internal/retry"
)

// fakeReader serves canned rows to the read-only handlers
type fakeReader struct {
	documents  map[uuid.UUID]*db.Document
	extraction map[uuid.UUID]*db.Extraction
	narratives map[uuid.UUID]*db.Narrative
	logs       []db.ProcessingLog
	err        error
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		documents:  make(map[uuid.UUID]*db.Document),
		extraction: make(map[uuid.UUID]*db.Extraction),
		narratives: make(map[uuid.UUID]*db.Narrative),
	}
}

func (f *fakeReader) GetDocument(_ context.Context, id uuid.UUID) (*db.Document, error) {
	return f.documents[id], f.err
}

func (f *fakeReader) ListDocuments(_ context.Context, userID string, _ int) ([]db.Document, error) {
	var docs []db.Document
	for _, d := range f.documents {
		if userID == "" || d.UserID == userID {
			docs = append(docs, *d)
		}
	}
	return docs, f.err
}

func (f *fakeReader) GetExtraction(_ context.Context, documentID uuid.UUID) (*db.Extraction, error) {
	return f.extraction[documentID], f.err
}

func (f *fakeReader) GetNarrative(_ context.Context, id uuid.UUID) (*db.Narrative, error) {
	return f.narratives[id], f.err
}

func (f *fakeReader) ListNarratives(_ context.Context, documentID uuid.UUID) ([]db.Narrative, error) {
	var out []db.Narrative
	for _, n := range f.narratives {
		if n.DocumentID == documentID {
			out = append(out, *n)
		}
	}
	return out, f.err
}

func (f *fakeReader) ListProcessingLogs(_ context.Context, _ uuid.UUID, _ int) ([]db.ProcessingLog, error) {
	return f.logs, f.err
}

// Pipeline fakes for the upload handlers

type fakeLog struct {
	mu   sync.Mutex
	rows []*db.ProcessingLogInput
}

func (l *fakeLog) AppendProcessingLog(_ context.Context, input *db.ProcessingLogInput) (*db.ProcessingLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, input)
	return &db.ProcessingLog{ID: uuid.New()}, nil
}

func (l *fakeLog) LatestProcessingLog(_ context.Context, action, sessionID string) (*db.ProcessingLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.rows) - 1; i >= 0; i-- {
		row := l.rows[i]
		if row.Action != action {
			continue
		}
		if id, _ := row.Details["session_id"].(string); id == sessionID {
			return &db.ProcessingLog{ID: uuid.New(), Action: row.Action, Details: row.Details}, nil
		}
	}
	return nil, nil
}

type fakePipelineDB struct {
	mu          sync.Mutex
	documents   map[uuid.UUID]*db.Document
	extractions map[uuid.UUID]*db.Extraction
}

func newFakePipelineDB() *fakePipelineDB {
	return &fakePipelineDB{
		documents:   make(map[uuid.UUID]*db.Document),
		extractions: make(map[uuid.UUID]*db.Extraction),
	}
}

func (f *fakePipelineDB) CreateDocument(_ context.Context, input *db.DocumentInput) (*db.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := &db.Document{ID: input.ID, UserID: input.UserID, Filename: input.Filename,
		StoragePath: input.StoragePath, Status: db.DocumentStatusUploaded}
	f.documents[input.ID] = doc
	return doc, nil
}

func (f *fakePipelineDB) UpdateDocumentStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.documents[id]; ok {
		doc.Status = status
	}
	return nil
}

func (f *fakePipelineDB) SaveExtraction(_ context.Context, input *db.ExtractionInput) (*db.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ext := &db.Extraction{ID: uuid.New(), DocumentID: input.DocumentID,
		Payload: input.Payload, Fallback: input.Fallback, Model: input.Model}
	f.extractions[input.DocumentID] = ext
	return ext, nil
}

func (f *fakePipelineDB) GetDocument(_ context.Context, id uuid.UUID) (*db.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.documents[id], nil
}

func (f *fakePipelineDB) GetExtraction(_ context.Context, documentID uuid.UUID) (*db.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extractions[documentID], nil
}

func (f *fakePipelineDB) CreateNarrative(_ context.Context, documentID uuid.UUID, content, model string) (*db.Narrative, error) {
	return &db.Narrative{ID: uuid.New(), DocumentID: documentID, Content: content, Model: model}, nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeBlobStore) Upload(_ context.Context, path string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[path] = content
	return nil
}

func (f *fakeBlobStore) Download(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[path]
	if !ok {
		return nil, errors.New("object not found")
	}
	return content, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, path string) error { return nil }
func (f *fakeBlobStore) PublicURL(path string) string                { return "fake://" + path }

type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, filename string, _ []byte) (map[string]any, error) {
	return map[string]any{"raw_text": "extracted text", "filename": filename}, nil
}

func newTestServer(reader Reader) *Server {
	logStore := &fakeLog{}
	audit := compliance.NewLogger(logStore)
	deps := pipeline.Deps{
		DB:        newFakePipelineDB(),
		Store:     &fakeBlobStore{},
		Extractor: fakeExtractor{},
		Audit:     audit,
		Tracker:   progress.NewTracker(logStore, audit, progress.NewSessionCache()),
		RetryCfg: retry.Config{
			MaxAttempts: 1,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Multiplier:  2,
		},
	}
	return New(Config{Port: 0}, reader, deps)
}

// minimalPDF builds a one-page PDF with a consistent xref table
func minimalPDF(text string) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 6)

	buf.WriteString("%PDF-1.4\n")
	write := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	write(1, "<< /Type /Catalog /Pages 2 0 R >>")
	write(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	write(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>")
	write(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	write(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xref := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for n := 1; n <= 5; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// multipartBody builds a multipart upload request body
func multipartBody(t *testing.T, filename string, content []byte, userID string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)

	if userID != "" {
		require.NoError(t, w.WriteField("user_id", userID))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
