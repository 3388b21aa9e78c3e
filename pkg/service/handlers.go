package service

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/ryandielhenn/ringsim/pkg/sim"
)

const maxBody = 1 << 20

// Healthz returns 200 OK to indicate the service is alive.
func (s *Service) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Info writes the process ID, uptime and number of stored runs.
func (s *Service) Info(w http.ResponseWriter, _ *http.Request) {
	type resp struct {
		PID    int       `json:"pid"`
		Now    time.Time `json:"now"`
		Uptime string    `json:"uptime"`
		Runs   int       `json:"runs"`
	}
	writeJSON(w, http.StatusOK, resp{
		PID:    os.Getpid(),
		Now:    time.Now(),
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Runs:   s.store.Len(),
	})
}

// CreateRun decodes a scenario from a JSON or YAML body, runs it to
// completion and stores the result. An empty body runs the defaults.
func (s *Service) CreateRun(w http.ResponseWriter, req *http.Request) {
	sc, err := s.decodeScenario(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if sc.Nodes > s.maxNodes {
		http.Error(w, "too many nodes", http.StatusBadRequest)
		return
	}
	if _, err := sc.Normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := sim.Run(req.Context(), sc, s.log)
	if res == nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.store.Put(res)
	if s.publisher != nil {
		if perr := s.publisher.Publish(req.Context(), res); perr != nil {
			s.log.Warn("publish failed", zap.String("run", res.ID), zap.Error(perr))
		}
	}

	status := http.StatusCreated
	if err != nil {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Location", "/runs/"+res.ID)
	writeJSON(w, status, res)
}

func (s *Service) GetRun(w http.ResponseWriter, req *http.Request) {
	res, ok := s.store.Get(req.PathValue("id"))
	if !ok {
		http.NotFound(w, req)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListRuns returns a short summary of each stored run, most recent first.
func (s *Service) ListRuns(w http.ResponseWriter, _ *http.Request) {
	type row struct {
		ID        string `json:"id"`
		Algorithm string `json:"algorithm"`
		Nodes     int    `json:"nodes"`
		Messages  int    `json:"messages"`
		Error     string `json:"error,omitempty"`
	}
	all := s.store.List()
	out := make([]row, len(all))
	for i, r := range all {
		out[i] = row{ID: r.ID, Algorithm: r.Scenario.Algorithm, Nodes: r.Scenario.Nodes, Messages: r.Messages, Error: r.Error}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) DeleteRun(w http.ResponseWriter, req *http.Request) {
	if !s.store.Delete(req.PathValue("id")) {
		http.NotFound(w, req)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) decodeScenario(req *http.Request) (sim.Scenario, error) {
	sc := s.defaults
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBody))
	if err != nil {
		return sc, err
	}
	if len(body) == 0 {
		return sc, nil
	}

	ct, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch ct {
	case "application/yaml", "application/x-yaml", "text/yaml":
		err = yaml.Unmarshal(body, &sc)
	case "", "application/json":
		err = json.Unmarshal(body, &sc)
	default:
		err = errors.New("unsupported content type " + ct)
	}
	return sc, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
