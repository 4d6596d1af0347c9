package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/mindgest/internal/pipeline"
	"github.com/dgallion1/mindgest/internal/render"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	job := pipeline.NewJob(up.desc, up.data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"kind":       up.desc.Kind,
		"poll_url":   fmt.Sprintf("/api/analyze/%s/status", job.ID),
		"result_url": fmt.Sprintf("/api/analyze/%s/result", job.ID),
	})
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleAnalyzeResult serves a finished job's result as JSON, or as
// Markdown or HTML when ?format= asks for it.
func (s *Server) handleAnalyzeResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	switch {
	case snap.Status == pipeline.StatusFailed:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"job_id": snap.ID,
			"status": snap.Status,
			"errors": snap.Errors,
		})
		return
	case !snap.Status.Done():
		writeJSON(w, http.StatusConflict, map[string]any{
			"job_id": snap.ID,
			"status": snap.Status,
			"error":  "job not finished",
		})
		return
	}

	res := job.Result()
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(render.Markdown(snap.Filename, res)))
	case "html":
		out, err := render.HTML(snap.Filename, res)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(out)
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{
			"job_id":       snap.ID,
			"status":       snap.Status,
			"cached":       snap.Cached,
			"synthetic":    snap.Synthetic,
			"failed_tasks": snap.FailedTasks,
			"result":       res,
		})
	default:
		jsonError(w, "format must be json, md or html", http.StatusBadRequest)
	}
}
