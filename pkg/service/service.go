// Package service exposes the simulator over HTTP: start a run, fetch its
// result, list recent runs.
package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/internal/telemetry"
	"github.com/ryandielhenn/ringsim/pkg/runs"
	"github.com/ryandielhenn/ringsim/pkg/sim"
)

// Publisher receives every finished run. The etcd registry implements it.
type Publisher interface {
	Publish(ctx context.Context, r *sim.Result) error
}

type Service struct {
	store     *runs.Store
	log       *zap.Logger
	defaults  sim.Scenario
	maxNodes  int
	publisher Publisher
	started   time.Time
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDefaults fills fields a request body leaves zero.
func WithDefaults(sc sim.Scenario) Option {
	return func(s *Service) { s.defaults = sc }
}

// WithMaxNodes caps the ring size a request may ask for.
func WithMaxNodes(n int) Option {
	return func(s *Service) { s.maxNodes = n }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(store *runs.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		log:      zap.NewNop(),
		maxNodes: 1024,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes every endpoint. Run endpoints are instrumented.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.Healthz)
	mux.HandleFunc("GET /info", s.Info)
	mux.Handle("GET /metrics", telemetry.MetricsHandler())
	mux.Handle("POST /runs", telemetry.Instrument("create", http.HandlerFunc(s.CreateRun)))
	mux.Handle("GET /runs", telemetry.Instrument("list", http.HandlerFunc(s.ListRuns)))
	mux.Handle("GET /runs/{id}", telemetry.Instrument("get", http.HandlerFunc(s.GetRun)))
	mux.Handle("DELETE /runs/{id}", telemetry.Instrument("delete", http.HandlerFunc(s.DeleteRun)))
	return mux
}
