// Package server is the HTTP API of the conversion daemon: submit jobs,
// upload files, poll status, download results.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jerefrer/stacked-pdf-generator/internal/config"
	"github.com/jerefrer/stacked-pdf-generator/internal/dispatch"
	"github.com/jerefrer/stacked-pdf-generator/internal/doctor"
	"github.com/jerefrer/stacked-pdf-generator/internal/generator"
	"github.com/jerefrer/stacked-pdf-generator/internal/store"
)

// Queue is the slice of the job queue the API needs.
type Queue interface {
	Enqueue(ctx context.Context, payload []byte) error
	Cancel(ctx context.Context, jobID string) error
}

// StatusStore reads and writes job statuses.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
	Get(ctx context.Context, jobID string) (store.Status, bool, error)
}

// Dependencies wires the server to its backends.
type Dependencies struct {
	Queue  Queue
	Status StatusStore
	Doctor *doctor.Checker
	Cfg    config.ServerConfig
}

// Server handles the public HTTP API.
type Server struct {
	deps Dependencies
}

func New(deps Dependencies) *Server {
	return &Server{deps: deps}
}

// RegisterRoutes attaches all API handlers to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/status/", s.handleStatus)
	mux.HandleFunc("/download/", s.handleDownload)
	mux.HandleFunc("/cancel", s.handleCancel)
}

// convertReq accepts loosely typed fields: clients send numbers or numeric
// strings, booleans or token strings, and both get coerced the same way the
// CLI flags are.
type convertReq struct {
	Input         string `json:"input"`
	Output        string `json:"output"`
	Rows          any    `json:"rows"`
	Columns       any    `json:"columns"`
	PagesPerSheet any    `json:"pages_per_sheet"`
	Paper         string `json:"paper"`
	Autoscale     string `json:"autoscale"`
	Portrait      any    `json:"portrait"`
	SheetMargins  string `json:"sheet_margins"`
	Verify        any    `json:"verify"`
}

type convertResp struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var req convertReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	job := dispatch.Job{
		ID:           uuid.NewString(),
		Input:        req.Input,
		Output:       req.Output,
		Paper:        req.Paper,
		Autoscale:    req.Autoscale,
		Portrait:     config.ToBool(req.Portrait, true),
		SheetMargins: req.SheetMargins,
		Verify:       config.ToBool(req.Verify, false),
		Source:       "api",
	}
	var err error
	if job.Rows, err = config.ToInt(req.Rows); err != nil {
		http.Error(w, "rows: "+err.Error(), http.StatusBadRequest)
		return
	}
	if job.Columns, err = config.ToInt(req.Columns); err != nil {
		http.Error(w, "columns: "+err.Error(), http.StatusBadRequest)
		return
	}
	if job.PagesPerSheet, err = config.ToInt(req.PagesPerSheet); err != nil {
		http.Error(w, "pages_per_sheet: "+err.Error(), http.StatusBadRequest)
		return
	}

	// reject obviously broken jobs at the door instead of from the worker
	if _, err := generator.Normalize(job.Options()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.enqueue(w, r, job, "Conversion job created")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	maxMem := int64(s.deps.Cfg.MaxUploadMB)
	if maxMem <= 0 {
		maxMem = 64
	}
	if err := r.ParseMultipartForm(maxMem << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	jobID := uuid.NewString()
	name := filepath.Base(hdr.Filename)
	if name == "" || name == "." || name == "/" {
		name = "upload.pdf"
	}

	uploadDir := s.deps.Cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		http.Error(w, "cannot create upload dir", http.StatusInternalServerError)
		return
	}
	localPath := filepath.Join(uploadDir, jobID+"_"+name)
	out, err := os.Create(localPath)
	if err != nil {
		http.Error(w, "cannot save upload", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		http.Error(w, "write failed", http.StatusInternalServerError)
		return
	}
	if err := out.Close(); err != nil {
		http.Error(w, "write failed", http.StatusInternalServerError)
		return
	}

	resultDir := s.deps.Cfg.ResultDir
	if resultDir == "" {
		resultDir = filepath.Join(uploadDir, "results")
	}

	job := dispatch.Job{
		ID:           jobID,
		Input:        localPath,
		Output:       filepath.Join(resultDir, jobID+".pdf"),
		Paper:        r.FormValue("paper"),
		Autoscale:    r.FormValue("autoscale"),
		Portrait:     config.ToBool(r.FormValue("portrait"), true),
		SheetMargins: r.FormValue("sheet_margins"),
		Verify:       config.ToBool(r.FormValue("verify"), false),
		Source:       "upload",
	}
	if job.Rows, err = config.ToInt(r.FormValue("rows")); err != nil {
		http.Error(w, "rows: "+err.Error(), http.StatusBadRequest)
		return
	}
	if job.Columns, err = config.ToInt(r.FormValue("columns")); err != nil {
		http.Error(w, "columns: "+err.Error(), http.StatusBadRequest)
		return
	}
	if job.PagesPerSheet, err = config.ToInt(r.FormValue("pages_per_sheet")); err != nil {
		http.Error(w, "pages_per_sheet: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := generator.Normalize(job.Options()); err != nil {
		os.Remove(localPath)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.enqueue(w, r, job, "Upload job created")
}

// enqueue records the queued status, pushes the job and answers 201.
func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, job dispatch.Job, msg string) {
	now := time.Now()
	if err := s.deps.Status.Set(r.Context(), job.ID, store.Status{
		State: store.StateQueued,
		Start: &now,
		Metadata: map[string]interface{}{
			"input":  job.Input,
			"output": job.Output,
			"source": job.Source,
		},
	}); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to record queued status")
	}

	payload, _ := json.Marshal(job)
	if err := s.deps.Queue.Enqueue(r.Context(), payload); err != nil {
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}

	log.Info().Str("job_id", job.ID).Str("source", job.Source).Msg("job enqueued")
	writeJSON(w, http.StatusCreated, convertResp{Status: "ok", JobID: job.ID, Message: msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/status/")
	if id == "" {
		http.Error(w, "missing job id", http.StatusBadRequest)
		return
	}
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":     id,
		"state":      st.State,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
		"metadata":   st.Metadata,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/download/")
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil || !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if st.State != store.StateSuccess {
		http.Error(w, "not ready", http.StatusAccepted)
		return
	}
	// only outputs this daemon wrote itself are served back
	if src, _ := st.Metadata["source"].(string); src != "upload" {
		http.Error(w, "not an upload job", http.StatusBadRequest)
		return
	}
	path, _ := st.Metadata["output"].(string)
	if path == "" {
		http.Error(w, "result not available", http.StatusNotFound)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "result not available", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	if _, err := io.Copy(w, f); err != nil {
		log.Warn().Err(err).Str("job_id", id).Msg("download interrupted")
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	jobID := r.FormValue("job_id")
	if jobID == "" {
		http.Error(w, "missing job_id", http.StatusBadRequest)
		return
	}
	st, ok, err := s.deps.Status.Get(r.Context(), jobID)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	switch st.State {
	case store.StateSuccess, store.StateFailed, store.StateCancelled:
		http.Error(w, "already finished", http.StatusConflict)
		return
	}
	if err := s.deps.Queue.Cancel(r.Context(), jobID); err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	st.State = store.StateCancelled
	if err := s.deps.Status.Set(r.Context(), jobID, st); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("failed to record cancelled status")
	}
	log.Info().Str("job_id", jobID).Msg("job cancelled")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sum := s.deps.Doctor.Summary(r.Context())
	code := http.StatusOK
	if !sum.AllOK() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, sum)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
