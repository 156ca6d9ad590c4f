package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
)

func (s *Server) now() time.Time {
	return s.svc.Now().In(s.svc.Location)
}

// rangeParam reads ?range=, ?from= and ?to=. Without any of them the
// default preset applies.
func (s *Server) rangeParam(r *http.Request, def daterange.Preset) (*daterange.Range, error) {
	q := r.URL.Query()
	preset := q.Get("range")
	if preset == "" {
		preset = string(def)
	}
	return daterange.Select(preset, q.Get("from"), q.Get("to"), s.now())
}

// listParam accepts both repeated keys and comma-separated values.
func listParam(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) jobFilter(r *http.Request) (contract.JobFilter, error) {
	rng, err := s.rangeParam(r, daterange.PresetWeek)
	if err != nil {
		return contract.JobFilter{}, err
	}
	q := r.URL.Query()
	return contract.JobFilter{
		Range:     rng,
		Status:    domain.JobStatus(strings.TrimSpace(q.Get("status"))),
		ClientID:  strings.TrimSpace(q.Get("client_id")),
		WorkerIDs: listParam(r, "worker_id"),
	}, nil
}

func (s *Server) workLogFilter(r *http.Request) (contract.WorkLogFilter, error) {
	rng, err := s.rangeParam(r, daterange.PresetWeek)
	if err != nil {
		return contract.WorkLogFilter{}, err
	}
	q := r.URL.Query()
	f := contract.WorkLogFilter{
		Range:  rng,
		UserID: strings.TrimSpace(q.Get("user_id")),
		JobID:  strings.TrimSpace(q.Get("job_id")),
	}
	switch strings.ToLower(q.Get("open")) {
	case "", "false", "0":
	case "true", "1":
		f.OpenOnly = true
	default:
		return contract.WorkLogFilter{}, domain.NewValidationError("open", "%q is not a boolean", q.Get("open"))
	}
	return f, nil
}

func parseDayParam(s string, loc *time.Location) (time.Time, error) {
	return daterange.ParseDay(s, loc)
}
