// Package server exposes the job and work log services over HTTP with JSON
// bodies and server-sent event streams.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/alexanderramin/crewdesk/internal/config"
	"github.com/alexanderramin/crewdesk/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

// Services are the use cases the HTTP handlers call into.
type Services struct {
	Jobs        service.JobService
	Lifecycle   service.LifecycleService
	Assignments service.AssignmentService
	WorkLogs    service.WorkLogService
	Workflow    service.JobWorkflow

	// Location defines calendar days for range queries. Defaults to time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	cfg    config.ServerConfig
	svc    Services
	logger *zap.Logger
	router chi.Router
}

// New builds the router. A nil logger disables logging.
func New(cfg config.ServerConfig, svc Services, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if svc.Location == nil {
		svc.Location = time.Local
	}
	if svc.Now == nil {
		svc.Now = time.Now
	}
	s := &Server{cfg: cfg, svc: svc, logger: logger.Named("http")}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.AccessLog)
	r.Use(s.Recovery)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, r, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed,
			fmt.Sprintf("method %s not allowed", r.Method))
	})

	r.Get("/health", s.handleHealth)

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.listJobs)
		r.Post("/", s.createJob)
		r.Get("/stats", s.jobStats)
		r.Get("/days", s.jobDays)
		r.Get("/stream", s.streamJobs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Patch("/", s.updateJob)
			r.Delete("/", s.deleteJob)
			r.Post("/start", s.startJob)
			r.Post("/complete", s.completeJob)
			r.Post("/cancel", s.cancelJob)
			r.Put("/workers", s.assignWorkers)
			r.Post("/workers", s.addWorker)
			r.Delete("/workers/{userID}", s.removeWorker)
		})
	})

	r.Route("/worklogs", func(r chi.Router) {
		r.Get("/", s.listWorkLogs)
		r.Post("/", s.createManualLog)
		r.Post("/start", s.recordStart)
		r.Post("/complete", s.recordCompletion)
		r.Get("/totals", s.workLogTotals)
		r.Get("/stream", s.streamWorkLogs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getWorkLog)
			r.Patch("/", s.updateWorkLog)
			r.Delete("/", s.deleteWorkLog)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run listens on the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends, then drains in-flight
// requests within the shutdown timeout. Open streams see ctx end and return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.logger.Info("shutting down", zap.Duration("timeout", timeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
