package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dgallion1/subtrans/internal/pipeline"
	"github.com/dgallion1/subtrans/internal/srt"
	"github.com/dgallion1/subtrans/internal/translate"
)

var supportedExtensions = []string{".srt", ".txt"}

var exportFormats = []string{srt.FormatSRT, srt.FormatVTT, srt.FormatSSA, srt.FormatTTML}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"languages": s.languages.Profiles(),
		"engines":   translate.BackendNames(),
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !slices.Contains(supportedExtensions, strings.ToLower(filepath.Ext(filename))) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	opts, err := s.parseOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(uuid.NewString(), filename, data, opts)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/translate/%s/status", snap.ID),
	})
}

// parseOptions reads and validates the job options of a translate request.
func (s *Server) parseOptions(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.Options{
		SourceLang: strings.ToLower(r.FormValue("source_lang")),
		TargetLang: strings.ToLower(r.FormValue("target_lang")),
		Engine:     strings.ToLower(r.FormValue("engine")),
	}
	if opts.SourceLang == "" {
		opts.SourceLang = pipeline.AutoDetect
	}
	if opts.Engine == "" {
		opts.Engine = s.cfg.DefaultEngine
	}
	if opts.TargetLang == "" {
		return opts, errors.New("target_lang is required")
	}
	if _, err := s.languages.Lookup(opts.TargetLang); err != nil {
		return opts, err
	}
	if opts.SourceLang != pipeline.AutoDetect {
		if _, err := s.languages.Lookup(opts.SourceLang); err != nil {
			return opts, err
		}
	}
	if !slices.Contains(translate.BackendNames(), opts.Engine) {
		return opts, fmt.Errorf("%w: %q", translate.ErrUnknownBackend, opts.Engine)
	}

	var err error
	if opts.DropFirst, err = formInt(r, "drop_first"); err != nil {
		return opts, err
	}
	if opts.DropLast, err = formInt(r, "drop_last"); err != nil {
		return opts, err
	}
	shift, err := formInt(r, "shift_ms")
	if err != nil {
		return opts, err
	}
	opts.Shift = time.Duration(shift) * time.Millisecond

	for name, dst := range map[string]*bool{
		"purge_cc":   &opts.PurgeCC,
		"prewash":    &opts.Prewash,
		"strip_tags": &opts.StripTags,
		"bilingual":  &opts.Bilingual,
	} {
		if *dst, err = formBool(r, name); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func formInt(r *http.Request, name string) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func formBool(r *http.Request, name string) (bool, error) {
	v := r.FormValue(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return b, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// completedOutput returns the output of a finished job, or writes an error
// response and returns nil.
func (s *Server) completedOutput(w http.ResponseWriter, r *http.Request) (pipeline.JobSnapshot, *pipeline.Output) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return pipeline.JobSnapshot{}, nil
	}
	snap := job.Snapshot()
	out := job.Output()
	if snap.Status != pipeline.StatusCompleted || out == nil {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return snap, nil
	}
	return snap, out
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = srt.FormatSRT
	}
	if !slices.Contains(exportFormats, format) {
		jsonError(w, fmt.Sprintf("unsupported format: %s", format), http.StatusBadRequest)
		return
	}

	snap, out := s.completedOutput(w, r)
	if out == nil {
		return
	}
	data, err := out.Export(format)
	if err != nil {
		s.log.Error("export failed", "job_id", snap.ID, "format", format, "error", err)
		jsonError(w, "export failed", http.StatusInternalServerError)
		return
	}

	base := strings.TrimSuffix(snap.Filename, filepath.Ext(snap.Filename))
	name := fmt.Sprintf("%s.%s.%s", base, snap.TargetLang, format)
	w.Header().Set("Content-Type", srt.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap, out := s.completedOutput(w, r)
	if out == nil {
		return
	}
	rep := *out.Report
	rep.Title = snap.Filename
	html, err := rep.HTML()
	if err != nil {
		s.log.Error("report rendering failed", "job_id", snap.ID, "error", err)
		jsonError(w, "report rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if !s.orchestrator.Cancel(jobID) {
		jsonError(w, fmt.Sprintf("job is %s", job.Snapshot().Status), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id": jobID,
		"status": "cancelling",
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
