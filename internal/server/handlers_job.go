package server

import (
	"errors"
	"net/http"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/report"
	"github.com/alexanderramin/crewdesk/internal/service"
	"github.com/go-chi/chi/v5"
)

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := s.jobFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jobs, err := s.svc.Jobs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTOs(jobs))
}

// createJob stores the job, then assigns any listed workers. A failed
// assignment leaves the job in place and reports the error.
func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	j := req.job()
	if err := s.svc.Jobs.Create(r.Context(), j); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.WorkerIDs) > 0 {
		assigned, err := s.svc.Assignments.Assign(r.Context(), j.ID, req.WorkerIDs)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		j = assigned
	}
	w.Header().Set("Location", "/jobs/"+j.ID)
	writeJSON(w, http.StatusCreated, toJobDTO(j))
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.svc.Jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(j))
}

func (s *Server) updateJob(w http.ResponseWriter, r *http.Request) {
	var req UpdateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	j, err := s.svc.Jobs.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(j))
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Jobs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request) {
	s.workerTransition(w, r, domain.JobInProgress)
}

func (s *Server) completeJob(w http.ResponseWriter, r *http.Request) {
	s.workerTransition(w, r, domain.JobCompleted)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.svc.Lifecycle.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResponse{Job: toJobDTO(j), Transitioned: true})
}

// workerTransition moves a job to in_progress or completed. With a worker in
// the body the change goes through the workflow and reconciles that
// worker's log; without one it is a bare status change.
func (s *Server) workerTransition(w http.ResponseWriter, r *http.Request, to domain.JobStatus) {
	id := chi.URLParam(r, "id")
	worker, err := decodeOptionalWorker(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if worker == nil {
		j, err := s.svc.Lifecycle.Transition(r.Context(), id, to)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, TransitionResponse{Job: toJobDTO(j), Transitioned: true})
		return
	}

	var res *service.WorkflowResult
	if to == domain.JobInProgress {
		res, err = s.svc.Workflow.StartJobForWorker(r.Context(), worker.action(id))
	} else {
		res, err = s.svc.Workflow.CompleteJobForWorker(r.Context(), worker.action(id))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := TransitionResponse{Job: toJobDTO(res.Job), Transitioned: res.Transitioned}
	if res.Entry != nil {
		entry := toWorkLogDTO(res.Entry)
		resp.Entry = &entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeOptionalWorker(r *http.Request) (*WorkerRequest, error) {
	var req WorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errEmptyBody) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (s *Server) assignWorkers(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	j, err := s.svc.Assignments.Assign(r.Context(), chi.URLParam(r, "id"), req.UserIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(j))
}

func (s *Server) addWorker(w http.ResponseWriter, r *http.Request) {
	var req WorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	j, err := s.svc.Assignments.AddWorker(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(j))
}

func (s *Server) removeWorker(w http.ResponseWriter, r *http.Request) {
	j, err := s.svc.Assignments.RemoveWorker(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(j))
}

func (s *Server) jobStats(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	week := daterange.RollingWeek(now)
	jobs, err := s.svc.Jobs.List(r.Context(), contract.JobFilter{Range: &week})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.StatsFor(jobs, now))
}

func (s *Server) jobDays(w http.ResponseWriter, r *http.Request) {
	filter, err := s.jobFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jobs, err := s.svc.Jobs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	buckets := report.GroupByDay(jobs, s.svc.Location)
	out := make([]DayDTO, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, DayDTO{Day: b.Day.Format("2006-01-02"), Jobs: toJobDTOs(b.Jobs)})
	}
	writeJSON(w, http.StatusOK, out)
}
