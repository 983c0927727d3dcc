package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/doclayout/internal/chunker"
	"github.com/dgallion1/doclayout/internal/docmodel"
	"github.com/dgallion1/doclayout/internal/pipeline"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.parseOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename, data, err := s.readUpload(header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	job := pipeline.NewJob(filename, data, opts)
	if err := s.orchestrator.Submit(job); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitted(job))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.parseOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename, data, err := s.openUpload(fh)
		if err != nil {
			results = append(results, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}

		job := pipeline.NewJob(filename, data, opts)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{"filename": filename, "job_id": job.ID, "error": err.Error()})
			continue
		}
		results = append(results, submitted(job))
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res := job.Result()
	if res == nil {
		snap := job.Snapshot()
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  fmt.Sprintf("job is %s", snap.Status),
			"status": snap.Status,
			"errors": snap.Progress.Errors,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseOptions reads doc_type, chunking and pages_per_chunk, falling back
// to the configured chunking defaults.
func (s *Server) parseOptions(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.Options{Chunking: chunker.Config{
		Enabled:       s.cfg.UseChunking,
		PagesPerChunk: s.cfg.PagesPerChunk,
	}}

	docType, err := docmodel.ParseDocumentType(r.FormValue("doc_type"))
	if err != nil {
		return opts, err
	}
	opts.DocType = docType

	if v := r.FormValue("chunking"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, docmodel.InvalidInputf("chunking must be a boolean, got %q", v)
		}
		opts.Chunking.Enabled = b
	}
	if v := r.FormValue("pages_per_chunk"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, docmodel.InvalidInputf("pages_per_chunk must be a positive integer, got %q", v)
		}
		opts.Chunking.PagesPerChunk = n
	}
	return opts, nil
}

func (s *Server) openUpload(fh *multipart.FileHeader) (string, []byte, error) {
	f, err := fh.Open()
	if err != nil {
		return sanitizeFilename(fh.Filename), nil, errors.New("failed to open file")
	}
	defer f.Close()
	return s.readUpload(fh.Filename, f)
}

// readUpload sanitizes the name, checks the extension and enforces the
// upload limit.
func (s *Server) readUpload(name string, r io.Reader) (string, []byte, error) {
	filename := sanitizeFilename(name)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return filename, nil, docmodel.InvalidInputf("unsupported file type: %q", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, errTooLarge{limit: s.cfg.MaxUploadBytes}
	}
	return filename, data, nil
}

type errTooLarge struct{ limit int64 }

func (e errTooLarge) Error() string {
	return fmt.Sprintf("file exceeds max size (%d bytes)", e.limit)
}

func submitted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"filename": snap.Filename,
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	}
}

// writeError maps error classes to status codes.
func writeError(w http.ResponseWriter, err error) {
	var tooLarge errTooLarge
	switch {
	case errors.Is(err, docmodel.ErrInvalidInput):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &tooLarge):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, pipeline.ErrQueueFull):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
