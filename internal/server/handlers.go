package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/ae-intake/internal/pipeline"
)

// maxUploadBytes caps a single report upload
const maxUploadBytes = 25 << 20

// UploadResponse is returned for async uploads
type UploadResponse struct {
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// readUpload pulls the file out of a multipart request
func (s *Server) readUpload(r *http.Request) (filename string, content []byte, userID string, err error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, "", &ErrValidation{Field: "file", Message: "invalid multipart body"}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, "", &ErrValidation{Field: "file", Message: "file is required"}
	}
	defer file.Close()

	content, err = io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return "", nil, "", &ErrValidation{Field: "file", Message: "failed to read upload"}
	}
	if len(content) > maxUploadBytes {
		return "", nil, "", &ErrValidation{Field: "file", Message: "file too large"}
	}

	return header.Filename, content, r.FormValue("user_id"), nil
}

// handleUpload accepts a report and processes it as a fire-and-forget
// task. The response carries an upload id to poll.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	filename, content, userID, err := s.readUpload(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	uploadID := uuid.New().String()
	s.uploads.set(UploadStatus{UploadID: uploadID, Stage: "queued"})

	// Detached from the request context: the task outlives the
	// response.
	s.tasks.Start(context.Background(), uploadID, func(ctx context.Context) {
		result, err := pipeline.Run(ctx, s.deps, pipeline.Options{
			UserID:   userID,
			Filename: filename,
			Content:  content,
			OnProgress: func(event pipeline.ProgressEvent) {
				s.uploads.set(UploadStatus{
					UploadID:   uploadID,
					DocumentID: event.DocumentID,
					Stage:      event.Stage,
					Percent:    event.Percent,
					Message:    event.Message,
				})
			},
		})
		if err != nil {
			status, _ := s.uploads.get(uploadID)
			status.Error = err.Error()
			status.Stage = "failed"
			status.Done = true
			s.uploads.set(status)
			return
		}
		s.uploads.set(UploadStatus{
			UploadID:   uploadID,
			DocumentID: result.DocumentID.String(),
			Stage:      "completed",
			Percent:    pipeline.PercentCompleted,
			Done:       true,
		})
	})

	s.jsonResponse(w, http.StatusAccepted, UploadResponse{UploadID: uploadID, Status: "processing"})
}

// handleUploadStream accepts a report and streams progress over SSE
func (s *Server) handleUploadStream(w http.ResponseWriter, r *http.Request) {
	filename, content, userID, err := s.readUpload(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := pipeline.Run(r.Context(), s.deps, pipeline.Options{
		UserID:   userID,
		Filename: filename,
		Content:  content,
		OnProgress: func(event pipeline.ProgressEvent) {
			sse.WriteEvent("progress", event) //nolint:errcheck
		},
	})
	if err != nil {
		sse.WriteError(err.Error())
		return
	}
	sse.WriteComplete(result.DocumentID.String(), "completed")
}

// handleUploadStatus returns the last observed state of an upload task
func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := s.uploads.get(r.PathValue("id"))
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "upload not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.reader.ListDocuments(r.Context(), r.URL.Query().Get("user_id"), 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.reader.GetDocument(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		err := &ErrDocumentNotFound{DocumentID: id}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	logs, err := s.reader.ListProcessingLogs(r.Context(), id, 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	ext, err := s.reader.GetExtraction(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ext == nil {
		s.errorResponse(w, http.StatusNotFound, "no extraction for document "+id.String())
		return
	}
	s.jsonResponse(w, http.StatusOK, ext)
}

func (s *Server) handleGenerateNarrative(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	n, err := pipeline.GenerateNarrative(r.Context(), s.deps, id, r.URL.Query().Get("user_id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, n)
}

func (s *Server) handleListNarratives(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	narratives, err := s.reader.ListNarratives(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"narratives": narratives})
}

func (s *Server) handleGetNarrative(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	n, err := s.reader.GetNarrative(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n == nil {
		err := &ErrNarrativeNotFound{NarrativeID: id}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, n)
}
