// Package server exposes the feedback pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"feedback_agent/feedback"
	"feedback_agent/intake"
	"feedback_agent/publisher"
	"feedback_agent/storage"
)

// Config controls the listener.
type Config struct {
	Addr           string        `yaml:"addr" json:"addr" env:"FEEDBACK_ADDR"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" env:"FEEDBACK_REQUEST_TIMEOUT"`
}

// DefaultConfig listens on :8080 and bounds runs to two minutes.
func DefaultConfig() Config {
	return Config{Addr: ":8080", RequestTimeout: 2 * time.Minute}
}

// Intake normalizes raw requests.
type Intake interface {
	Process(ctx context.Context, req intake.Request) (feedback.RequestContext, error)
}

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req feedback.RequestContext) (feedback.RunResult, error)
}

// RunReader reads stored runs back.
type RunReader interface {
	ListRuns(ctx context.Context) ([]storage.RunSummary, error)
	LoadRun(ctx context.Context, id string) (feedback.RunRecord, error)
}

// Publisher renders and delivers final documents.
type Publisher interface {
	Render(res feedback.RunResult, format feedback.Format) (publisher.Document, error)
	Publish(ctx context.Context, res feedback.RunResult, format feedback.Format) (publisher.Document, error)
}

type Server struct {
	intake Intake
	runner Runner
	runs   RunReader
	pub    Publisher
	cfg    Config
	log    logrus.FieldLogger
}

// New wires a server. pub may be nil, which disables publishing on create.
func New(in Intake, runner Runner, runs RunReader, pub Publisher, cfg Config, log logrus.FieldLogger) (*Server, error) {
	if in == nil || runner == nil || runs == nil {
		return nil, errors.New("server: intake, runner and run reader are required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{intake: in, runner: runner, runs: runs, pub: pub, cfg: cfg, log: log.WithField("component", "server")}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/runs", s.handleRunCreate)
	mux.HandleFunc("GET /api/runs", s.handleRunList)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunGet)
	mux.HandleFunc("GET /api/runs/{id}/document", s.handleRunDocument)
	return logMiddleware(s.log, mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = DefaultConfig().Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
