package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/kpi"
	"github.com/secmon-lab/anzen/pkg/usecase"
	"github.com/secmon-lab/anzen/pkg/utils/errutil"
	"github.com/secmon-lab/anzen/pkg/utils/safe"
)

// maxRequestBytes bounds request bodies
const maxRequestBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}

type errorResponse struct {
	Error  string             `json:"error"`
	Errors []model.FieldError `json:"errors,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeValidation answers 422 with every violated field
func writeValidation(w http.ResponseWriter, r *http.Request, err error) bool {
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{
		Error:  "validation failed",
		Errors: verr.Fields,
	})
	return true
}

func parseFilter(r *http.Request) (model.IncidentFilter, error) {
	q := r.URL.Query()
	filter := model.IncidentFilter{Area: q.Get("area")}

	if v := q.Get("type"); v != "" {
		t, err := types.ParseIncidentType(v)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	if v := q.Get("from"); v != "" {
		d, ok := model.ParseDate(v)
		if !ok {
			return filter, goerr.New("invalid from date", goerr.V("from", v))
		}
		filter.From = d
	}
	if v := q.Get("to"); v != "" {
		d, ok := model.ParseDate(v)
		if !ok {
			return filter, goerr.New("invalid to date", goerr.V("to", v))
		}
		filter.To = d
	}
	return filter, nil
}

func (s *Server) listIncidents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"incidents": s.uc.Ledger().Query(filter),
	})
}

func (s *Server) recordIncident(w http.ResponseWriter, r *http.Request) {
	var input model.IncidentInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	record, err := s.uc.RecordIncident(r.Context(), input)
	if err != nil {
		if writeValidation(w, r, err) {
			return
		}
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	// The incident is in the ledger from here on; a failed local write is
	// reported but does not undo the append.
	result, err := s.uc.Sync(r.Context())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]any{
		"key":      record.Key,
		"incident": record,
		"sync":     newSyncResponse(result),
	})
}

func (s *Server) listHazards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"hazards": s.uc.Ledger().Hazards(),
	})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.uc.Report(r.Context()))
}

func (s *Server) getMonthly(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	t, err := types.ParseIncidentType(q.Get("type"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snapshot := s.uc.Ledger().Snapshot()
	series := kpi.MonthlySeries(snapshot, t)

	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		if from == "" || to == "" {
			writeError(w, r, http.StatusBadRequest, "from and to must be given together")
			return
		}
		fromMonth, err := model.ParseMonth(from)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		toMonth, err := model.ParseMonth(to)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		series = kpi.MonthlySeriesBetween(snapshot, t, fromMonth, toMonth)
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"type":   t,
		"series": series,
	})
}

func (s *Server) getHighRisk(w http.ResponseWriter, r *http.Request) {
	threshold := s.uc.HighRiskThreshold()
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "threshold must be a positive integer")
			return
		}
		threshold = n
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"threshold": threshold,
		"incidents": kpi.HighRiskIncidents(s.uc.Ledger().Snapshot(), threshold),
	})
}

type syncResponse struct {
	State    types.SyncState   `json:"state"`
	Trace    []types.SyncState `json:"trace"`
	Path     string            `json:"path"`
	Previous model.Version     `json:"previous,omitempty"`
	Current  model.Version     `json:"current,omitempty"`
	Attempts int               `json:"attempts"`
	Error    string            `json:"error,omitempty"`
	SyncedAt time.Time         `json:"synced_at"`
}

func newSyncResponse(result *model.SyncResult) syncResponse {
	resp := syncResponse{
		State:    result.State,
		Trace:    result.Trace,
		Path:     result.Path,
		Previous: result.Previous,
		Current:  result.Current,
		Attempts: result.Attempts,
		SyncedAt: time.Now().UTC(),
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}

func syncStatus(state types.SyncState) int {
	switch state {
	case types.SyncStateConflicted:
		return http.StatusConflict
	case types.SyncStateUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	result, err := s.uc.Sync(r.Context())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, syncStatus(result.State), newSyncResponse(result))
}

func (s *Server) pull(w http.ResponseWriter, r *http.Request) {
	version, err := s.uc.Pull(r.Context())
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, map[string]any{
			"version":   version,
			"incidents": s.uc.Ledger().Len(),
		})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "remote ledger does not exist")
	case errors.Is(err, model.ErrSyncUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "remote mirror unavailable")
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidTier):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
	}
}

type revisionResponse struct {
	Version  model.Version `json:"version"`
	Previous model.Version `json:"previous,omitempty"`
	PushedAt time.Time     `json:"pushed_at"`
}

func (s *Server) listRevisions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	revs, err := s.uc.Revisions(r.Context(), limit)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrUnsupported):
		writeError(w, r, http.StatusNotImplemented, "mirror keeps no revision history")
		return
	case errors.Is(err, model.ErrSyncUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "remote mirror unavailable")
		return
	default:
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	resp := make([]revisionResponse, 0, len(revs))
	for _, rev := range revs {
		resp = append(resp, revisionResponse{
			Version:  rev.Version,
			Previous: rev.Previous,
			PushedAt: rev.PushedAt,
		})
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"path":      s.uc.SyncManager().Path(),
		"base":      s.uc.SyncManager().Base(),
		"revisions": resp,
	})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	result, err := s.uc.Summarize(r.Context())
	if errors.Is(err, usecase.ErrSummaryNotConfigured) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
