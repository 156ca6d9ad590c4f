package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"go.uber.org/zap"
)

func (s *Server) streamJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := s.jobFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.svc.Jobs.Subscribe(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	streamSnapshots(s, w, r, sub, toJobDTO)
}

func (s *Server) streamWorkLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := s.workLogFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.svc.WorkLogs.Subscribe(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	streamSnapshots(s, w, r, sub, toWorkLogDTO)
}

// streamSnapshots writes each snapshot as a "snapshot" event and each feed
// error as an "error" event until the client leaves, the server shuts down,
// or ?count= snapshots were sent.
func streamSnapshots[T, D any](s *Server, w http.ResponseWriter, r *http.Request, sub *feed.Subscription[T], convert func(T) D) {
	defer sub.Close()

	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, domain.NewValidationError("count", "%q is not a non-negative integer", raw))
			return
		}
		count = n
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	snapshots, errs := sub.Snapshots, sub.Errors
	sent := 0
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			items := make([]D, 0, len(snap.Items))
			for _, it := range snap.Items {
				items = append(items, convert(it))
			}
			payload := SnapshotDTO[D]{Seq: snap.Seq, LoadedAt: snap.LoadedAt, Items: items}
			if err := writeEvent(w, "snapshot", strconv.FormatUint(snap.Seq, 10), payload); err != nil {
				s.logger.Debug("stream write failed", zap.Error(err))
				return
			}
			_ = rc.Flush()
			sent++
			if count > 0 && sent >= count {
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			_, code := classify(err)
			body := ErrorBody{Code: code, Message: err.Error()}
			if werr := writeEvent(w, "error", "", body); werr != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
