package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentflow/agentflow/pkg/stores"
	"github.com/agentflow/agentflow/pkg/workflow"
)

// executeRequest is the JSON body for the execute endpoints.
type executeRequest struct {
	Workflow  *workflow.Definition `json:"workflow"`
	InputData map[string]any       `json:"input_data"`
}

// asyncResponse acknowledges an accepted asynchronous run.
type asyncResponse struct {
	RunID  string `json:"workflow_id"`
	Status string `json:"status"`
}

// statusResponse describes a persisted run.
type statusResponse struct {
	RunID       string          `json:"workflow_id"`
	Workflow    string          `json:"workflow"`
	Status      string          `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       *string         `json:"error,omitempty"`
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) decodeExecuteRequest(w http.ResponseWriter, r *http.Request) (*executeRequest, bool) {
	var req executeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if req.Workflow == nil {
		s.writeError(w, http.StatusUnprocessableEntity, "workflow is required")
		return nil, false
	}
	return &req, true
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeExecuteRequest(w, r)
	if !ok {
		return
	}

	result, err := s.runner.Execute(r.Context(), req.Workflow, req.InputData)
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExecuteAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeExecuteRequest(w, r)
	if !ok {
		return
	}

	runID, err := s.runner.ExecuteAsync(r.Context(), req.Workflow, req.InputData)
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, asyncResponse{RunID: runID, Status: string(stores.RunStatusPending)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.runner.Status(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error().Err(err).Str("run_id", id).Msg("failed to get run")
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	s.writeJSON(w, http.StatusOK, toStatusResponse(run))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.runner.Status(r.Context(), id); err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error().Err(err).Str("run_id", id).Msg("failed to get run")
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	events, err := s.runner.Events(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", id).Msg("failed to get run events")
		s.writeError(w, http.StatusInternalServerError, "failed to get run events")
		return
	}
	if events == nil {
		events = []*stores.Event{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"workflow_id": id, "events": events})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := stores.RunFilter{
		Workflow: r.URL.Query().Get("workflow"),
		Status:   stores.RunStatus(r.URL.Query().Get("status")),
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list runs")
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	out := make([]statusResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toStatusResponse(run))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func toStatusResponse(run *stores.Run) statusResponse {
	resp := statusResponse{
		RunID:       run.ID,
		Workflow:    run.Workflow,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
	}
	if run.Output != "" && run.Output != "{}" {
		resp.Output = json.RawMessage(run.Output)
	}
	return resp
}

// writeValidationError maps builder validation failures to 422 and
// everything else to 500.
func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	if errors.Is(err, workflow.ErrNoSteps) {
		s.writeError(w, http.StatusUnprocessableEntity, "no workflow steps found")
		return
	}
	if errors.Is(err, workflow.ErrInvalidDefinition) {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Error().Err(err).Msg("workflow execution failed to start")
	s.writeError(w, http.StatusInternalServerError, "failed to execute workflow")
}

func isNotFound(err error) bool {
	return errors.Is(err, stores.ErrRunNotFound)
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError writes a JSON error body with the given status code.
func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}
