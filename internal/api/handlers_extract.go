package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

// handleExtract returns a file's text without running any AI task.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	log := s.log.With("filename", up.desc.Name, "kind", up.desc.Kind)
	ex, err := s.extractor.Extract(r.Context(), up.desc, up.data, nil)
	if err != nil {
		log.Warn("extraction failed", "error", err)
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document":   up.desc,
		"method":     ex.Method,
		"pages":      ex.Pages,
		"synthetic":  ex.Synthetic,
		"sections":   ex.Sections,
		"text":       ex.Text,
		"characters": len([]rune(ex.Text)),
	})
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

// handleAnalyzeText runs the analysis synchronously over posted text.
func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req analyzeTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, "text exceeds max size", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	ex := &document.Extraction{Kind: document.KindText, Text: req.Text, Method: "plain"}
	res, err := s.analyzer.AnalyzeExtraction(r.Context(), ex)
	if res == nil {
		if err == nil {
			err = errors.New("analysis produced no result")
		}
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	failed := document.FailedTasks(err)
	if failed == nil {
		failed = []document.Task{}
	}
	errs := []string{}
	if err != nil {
		errs = strings.Split(err.Error(), "\n")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":       res,
		"failed_tasks": failed,
		"errors":       errs,
	})
}
