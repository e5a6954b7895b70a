package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/ae-intake/internal/db"
	"github.com/jonathan/ae-intake/internal/pipeline"
)

// Reader is the read-only persistence the handlers need.
// *db.DB satisfies it.
type Reader interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*db.Document, error)
	ListDocuments(ctx context.Context, userID string, limit int) ([]db.Document, error)
	GetExtraction(ctx context.Context, documentID uuid.UUID) (*db.Extraction, error)
	GetNarrative(ctx context.Context, id uuid.UUID) (*db.Narrative, error)
	ListNarratives(ctx context.Context, documentID uuid.UUID) ([]db.Narrative, error)
	ListProcessingLogs(ctx context.Context, documentID uuid.UUID, limit int) ([]db.ProcessingLog, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	reader     Reader
	deps       pipeline.Deps
	tasks      *pipeline.TaskSet
	uploads    *uploadBoard
	close      func()
}

// Config holds server configuration
type Config struct {
	Port int
	// Close runs after shutdown (pool/client teardown)
	Close func()
}

// New creates a server from already-wired collaborators
func New(cfg Config, reader Reader, deps pipeline.Deps) *Server {
	s := &Server{
		reader:  reader,
		deps:    deps,
		tasks:   pipeline.NewTaskSet(),
		uploads: newUploadBoard(),
		close:   cfg.Close,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /documents", s.handleUpload)
	mux.HandleFunc("POST /documents/stream", s.handleUploadStream)
	mux.HandleFunc("GET /uploads/{id}/status", s.handleUploadStatus)

	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("GET /documents/{id}", s.handleGetDocument)
	mux.HandleFunc("GET /documents/{id}/logs", s.handleListLogs)
	mux.HandleFunc("GET /documents/{id}/extraction", s.handleGetExtraction)

	mux.HandleFunc("POST /documents/{id}/narrative", s.handleGenerateNarrative)
	mux.HandleFunc("GET /documents/{id}/narratives", s.handleListNarratives)
	mux.HandleFunc("GET /narratives/{id}", s.handleGetNarrative)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withCORS(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for streamed runs
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for requests and blocks until shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.close != nil {
		s.close()
	}
	log.Println("Server stopped")
	return nil
}

// Handler exposes the routed handler for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UploadStatus is the last observed state of an async upload task
type UploadStatus struct {
	UploadID   string `json:"upload_id"`
	DocumentID string `json:"document_id,omitempty"`
	Stage      string `json:"stage"`
	Percent    int    `json:"percent"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Done       bool   `json:"done"`
}

// uploadBoard tracks async upload tasks by upload id. Entries are kept
// after completion so the client can fetch the terminal state.
type uploadBoard struct {
	mu       sync.RWMutex
	statuses map[string]UploadStatus
}

func newUploadBoard() *uploadBoard {
	return &uploadBoard{statuses: make(map[string]UploadStatus)}
}

func (b *uploadBoard) set(status UploadStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[status.UploadID] = status
}

func (b *uploadBoard) get(uploadID string) (UploadStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	status, ok := b.statuses[uploadID]
	return status, ok
}
