package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/generate"
	"github.com/roomforge/roomforge/pkg/layout"
	"github.com/roomforge/roomforge/pkg/store"
)

// generateResponse is the body of a successful POST /api/generate.
type generateResponse struct {
	RequestID string         `json:"request_id"`
	Converged bool           `json:"converged"`
	CacheHit  bool           `json:"cache_hit"`
	RecordID  string         `json:"record_id,omitempty"`
	Stats     generate.Stats `json:"stats"`
	Layout    *layout.Layout `json:"layout"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// handleGenerate runs the pipeline for the posted options. With
// ?save=<name> the result is also persisted as a named record.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var opts generate.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidRequest, "malformed request body: %v", err))
		return
	}
	opts.Logger = s.logger

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := generateResponse{
		RequestID: result.RequestID,
		Converged: result.Converged,
		CacheHit:  result.CacheInfo.Hit,
		Stats:     result.Stats,
		Layout:    result.Layout,
	}
	if name := r.URL.Query().Get("save"); name != "" && s.store != nil {
		rec := store.NewRecord(name, opts, result.Layout)
		if err := s.store.Put(r.Context(), rec); err != nil {
			writeError(w, err)
			return
		}
		resp.RecordID = rec.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses: bad requests
// and decode failures are 400, missing records 404, generation
// failures 422, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrCodeInvalidRequest) || errors.IsDecodeError(err):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeNotFound):
		status = http.StatusNotFound
	case errors.IsGenerationFailure(err):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
		Stage: errors.GetStage(err),
	})
}
