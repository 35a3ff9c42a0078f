// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package serve exposes the correction pipeline as a small JSON API.
// The endpoints run the same in-memory pipeline the CLI runs; when a
// run store is configured, completed passes can be persisted and read
// back.
//
// See docs/ARCHITECTURE.md § HTTP API.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/pdiddy/copyedit-engine/internal/extract"
	"github.com/pdiddy/copyedit-engine/internal/pipeline"
	"github.com/pdiddy/copyedit-engine/internal/request"
	"github.com/pdiddy/copyedit-engine/internal/store"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// Server hosts the JSON API.
type Server struct {
	cfg   types.PipelineConfig
	store *store.Store

	// newBackend builds the completion backend per request. Tests
	// override it to avoid real API calls.
	newBackend func(types.RequestConfig) (request.Backend, error)
}

// New builds a Server. st may be nil, which disables the runs
// endpoints and run persistence.
func New(cfg types.PipelineConfig, st *store.Store) *Server {
	return &Server{
		cfg:        cfg,
		store:      st,
		newBackend: request.NewBackend,
	}
}

// CorrectRequest is the body for POST /v1/correct.
type CorrectRequest struct {
	HTML string `json:"html"`
	Task string `json:"task,omitempty"`

	// Save persists the run when a store is configured.
	Save bool `json:"save,omitempty"`
}

// ApplyRequest is the body for POST /v1/apply. Edits are applied
// without any model call; an edit with segmentId 0 is resolved by its
// find text.
type ApplyRequest struct {
	HTML  string                 `json:"html"`
	Task  string                 `json:"task,omitempty"`
	Edits []types.ProposedChange `json:"edits"`
	Save  bool                   `json:"save,omitempty"`
}

// CorrectResponse is the correction result, with the persisted run id
// when the run was saved.
type CorrectResponse struct {
	types.CorrectionResult
	RunID string `json:"runId,omitempty"`
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/v1/correct", s.handleCorrect).Methods("POST")
	r.HandleFunc("/v1/apply", s.handleApply).Methods("POST")
	r.HandleFunc("/v1/runs", s.handleListRuns).Methods("GET")
	r.HandleFunc("/v1/runs/{id}", s.handleGetRun).Methods("GET")
	return r
}

// ListenAndServe runs the API server until it fails or the process
// exits.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:         s.cfg.Serve.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Serve.ReadTimeout,
		WriteTimeout: s.cfg.Serve.WriteTimeout,
	}
	log.Printf("copyedit-engine API listening on %s", srv.Addr)
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok\n"))
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req CorrectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, ok := parseTask(w, req.Task)
	if !ok {
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		http.Error(w, "html field is required", http.StatusBadRequest)
		return
	}

	backend, err := s.newBackend(s.cfg.Request)
	if err != nil {
		log.Printf("error building backend: %v", err)
		http.Error(w, "backend configuration: "+err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("correct: task=%s html=%dB", task, len(req.HTML))
	start := time.Now()
	result, err := pipeline.Run(r.Context(), pipeline.RunOptions{
		HTML:    req.HTML,
		Task:    task,
		Backend: backend,
		Config:  s.cfg,
	}, log.Writer())
	if err != nil {
		log.Printf("correction failed: %v", err)
		http.Error(w, "correction failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	resp := CorrectResponse{CorrectionResult: *result}
	if req.Save {
		resp.RunID = s.saveRun(r.Context(), task, string(s.cfg.Request.Provider), s.cfg.Request.Model, req.HTML, result, time.Since(start))
	}
	writeJSON(w, resp)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, ok := parseTask(w, req.Task)
	if !ok {
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		http.Error(w, "html field is required", http.StatusBadRequest)
		return
	}
	if len(req.Edits) == 0 {
		http.Error(w, "edits field is required", http.StatusBadRequest)
		return
	}

	log.Printf("apply: %d edits html=%dB", len(req.Edits), len(req.HTML))
	start := time.Now()
	result, err := pipeline.Run(r.Context(), pipeline.RunOptions{
		HTML:   req.HTML,
		Task:   task,
		Custom: req.Edits,
		Config: s.cfg,
	}, log.Writer())
	if err != nil {
		log.Printf("apply failed: %v", err)
		http.Error(w, "apply failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := CorrectResponse{CorrectionResult: *result}
	if req.Save {
		// Hand-supplied edits never touch the AI backend; the ledger
		// records them under the "custom" provider.
		resp.RunID = s.saveRun(r.Context(), task, "custom", "", req.HTML, result, time.Since(start))
	}
	writeJSON(w, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "run store not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		log.Printf("error listing runs: %v", err)
		http.Error(w, "listing runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "run store not configured", http.StatusServiceUnavailable)
		return
	}

	id := mux.Vars(r)["id"]
	detail, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("error reading run %s: %v", id, err)
		http.Error(w, "reading run: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, detail)
}

// saveRun persists the result. Persistence failures are logged, not
// surfaced: the client already has the correction result.
func (s *Server) saveRun(ctx context.Context, task types.Task, provider, model, html string, result *types.CorrectionResult, elapsed time.Duration) string {
	if s.store == nil {
		return ""
	}

	meta := store.RunMeta{
		Task:     task,
		Provider: provider,
		Model:    model,
		Source:   "api",
		Duration: elapsed,
	}
	if segments, _, err := extract.Extract(html); err == nil {
		meta.Segments = len(segments)
		for _, seg := range segments {
			if seg.Modifiable {
				meta.Modifiable++
			}
		}
	}

	id, err := s.store.SaveRun(ctx, meta, result)
	if err != nil {
		log.Printf("warning: saving run: %v", err)
		return ""
	}
	return id
}

func parseTask(w http.ResponseWriter, raw string) (types.Task, bool) {
	if raw == "" {
		return types.TaskGrammar, true
	}
	task, err := types.ParseTask(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return task, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "parsing request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("error marshaling response: %v", err)
		http.Error(w, "marshaling response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
