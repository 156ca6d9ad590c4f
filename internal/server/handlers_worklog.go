package server

import (
	"net/http"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/report"
	"github.com/go-chi/chi/v5"
)

func (s *Server) listWorkLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := s.workLogFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.svc.WorkLogs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkLogDTOs(entries))
}

func (s *Server) createManualLog(w http.ResponseWriter, r *http.Request) {
	var req ManualLogRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	manual, err := req.request(s.svc.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.svc.WorkLogs.CreateManual(r.Context(), manual)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/worklogs/"+e.ID)
	writeJSON(w, http.StatusCreated, toWorkLogDTO(e))
}

func (s *Server) recordStart(w http.ResponseWriter, r *http.Request) {
	var req WorkEventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.svc.WorkLogs.RecordStart(r.Context(), req.event())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkLogDTO(e))
}

func (s *Server) recordCompletion(w http.ResponseWriter, r *http.Request) {
	var req WorkEventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.svc.WorkLogs.RecordCompletion(r.Context(), req.event())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkLogDTO(e))
}

func (s *Server) workLogTotals(w http.ResponseWriter, r *http.Request) {
	filter, err := s.workLogFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.svc.WorkLogs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total := report.TotalMinutes(entries)
	workers := report.PerWorkerTotals(entries)
	if workers == nil {
		workers = []report.WorkerTotal{}
	}
	writeJSON(w, http.StatusOK, TotalsDTO{
		Workers:      workers,
		TotalMinutes: total,
		Formatted:    report.FormatDuration(total),
	})
}

func (s *Server) getWorkLog(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.WorkLogs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkLogDTO(e))
}

func (s *Server) updateWorkLog(w http.ResponseWriter, r *http.Request) {
	var req UpdateWorkLogRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	patch := req.patch()
	if patch.IsEmpty() {
		s.writeError(w, r, domain.NewValidationError("body", "no fields to update"))
		return
	}
	e, err := s.svc.WorkLogs.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkLogDTO(e))
}

func (s *Server) deleteWorkLog(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.WorkLogs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
