// Package config loads the simulator configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ryandielhenn/ringsim/pkg/routing"
	"github.com/ryandielhenn/ringsim/pkg/sim"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

var ErrInvalid = errors.New("invalid config")

type Etcd struct {
	Endpoints []string `yaml:"endpoints"`
	Prefix    string   `yaml:"prefix"`
	TTL       int64    `yaml:"ttl"` // seconds; 0 keeps keys forever
}

// Runs bounds the diagnostics server's result store.
type Runs struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

type Config struct {
	LogLevel    string       `yaml:"logLevel"`
	Development bool         `yaml:"development"`
	MetricsAddr string       `yaml:"metricsAddr"`
	Etcd        Etcd         `yaml:"etcd"`
	Runs        Runs         `yaml:"runs"`
	Scenario    sim.Scenario `yaml:"scenario"`
}

// Default is the configuration used when no file is given: the original
// four-node collector exchange.
func Default() Config {
	return Config{
		LogLevel: "info",
		Etcd:     Etcd{Prefix: "/ringsim"},
		Runs:     Runs{Capacity: 128, TTL: time.Hour},
		Scenario: sim.Scenario{Nodes: 4, Algorithm: "collector"},
	}
}

// LoadFromFile overlays the YAML file onto Default and validates the result.
func LoadFromFile(file string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(file)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", file, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides scenario fields from RINGSIM_NODES, RINGSIM_ALGORITHM
// and RINGSIM_ROLE.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("RINGSIM_NODES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RINGSIM_NODES=%q", ErrInvalid, v)
		}
		c.Scenario.Nodes = n
	}
	if v := getenv("RINGSIM_ALGORITHM"); v != "" {
		c.Scenario.Algorithm = v
	}
	if v := getenv("RINGSIM_ROLE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RINGSIM_ROLE=%q", ErrInvalid, v)
		}
		c.Scenario.Role = &n
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := c.Scenario.Normalize(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Etcd.TTL < 0 {
		return fmt.Errorf("%w: etcd ttl must not be negative", ErrInvalid)
	}
	if c.Runs.Capacity < 0 || c.Runs.TTL < 0 {
		return fmt.Errorf("%w: runs capacity and ttl must not be negative", ErrInvalid)
	}
	return nil
}

// ParsePayloads parses "src:dst:content" entries separated by commas.
// Content may itself contain colons.
func ParsePayloads(s string) ([]routing.Payload, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]routing.Payload, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		f := strings.SplitN(part, ":", 3)
		if len(f) != 3 {
			return nil, fmt.Errorf("invalid payload format: %s (expected src:dst:content)", part)
		}
		src, err := strconv.Atoi(strings.TrimSpace(f[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid payload source in %s: %w", part, err)
		}
		dst, err := strconv.Atoi(strings.TrimSpace(f[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid payload destination in %s: %w", part, err)
		}
		out = append(out, routing.Payload{
			From:    transport.NodeID(src),
			To:      transport.NodeID(dst),
			Content: f[2],
		})
	}
	return out, nil
}

// ParseEndpoints splits a comma list of etcd endpoints.
func ParseEndpoints(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
