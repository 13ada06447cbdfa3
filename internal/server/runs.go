package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

const maxRunsLimit = 200

type runDetail struct {
	entity.BatchRun
	Errors []entity.DocumentFailure `json:"errors"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeError(w, common.NotFoundError("run history is disabled"))
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRunsLimit {
			s.writeError(w, common.InvalidArgumentErrorf("limit must be between 1 and %d", maxRunsLimit))
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRecent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []entity.BatchRun{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeError(w, common.NotFoundError("run history is disabled"))
		return
	}

	raw := chi.URLParam(r, "run_id")
	v := common.NewValidator().Field("run_id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		s.writeError(w, err)
		return
	}
	id := uuid.MustParse(raw)

	run, err := s.runs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	failures, err := s.runs.Failures(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if failures == nil {
		failures = []entity.DocumentFailure{}
	}
	s.writeJSON(w, http.StatusOK, runDetail{BatchRun: *run, Errors: failures})
}
