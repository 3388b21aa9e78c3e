package sim

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ryandielhenn/ringsim/pkg/gossip"
	"github.com/ryandielhenn/ringsim/pkg/routing"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

// AlgorithmRouting selects distance-vector routing. Any gossip.Kind selects
// that gossip strategy.
const AlgorithmRouting = "routing"

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario describes one simulation run.
type Scenario struct {
	Nodes     int               `yaml:"nodes" json:"nodes"`
	Algorithm string            `yaml:"algorithm" json:"algorithm"`
	Role      *int              `yaml:"role,omitempty" json:"role,omitempty"` // master/initiator; node 0 when unset
	Mode      string            `yaml:"mode,omitempty" json:"mode,omitempty"` // free-running or lock-step
	Payloads  []routing.Payload `yaml:"payloads,omitempty" json:"payloads,omitempty"`
	MaxWait   time.Duration     `yaml:"maxWait,omitempty" json:"maxWait,omitempty"` // poll backoff ceiling
	Timeout   time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// DefaultPayloads is what a routing run sends when none are configured.
func DefaultPayloads() []routing.Payload {
	return []routing.Payload{{From: 0, To: 1, Content: "message"}}
}

func (s Scenario) routing() bool {
	a := strings.ToLower(strings.TrimSpace(s.Algorithm))
	return a == AlgorithmRouting || a == "rip"
}

// Normalize validates s and returns it with canonical algorithm and mode
// names filled in.
func (s Scenario) Normalize() (Scenario, error) {
	if s.Nodes < 1 {
		return s, fmt.Errorf("%w: need at least one node, got %d", ErrInvalidScenario, s.Nodes)
	}

	defaultMode := transport.FreeRunning
	if s.routing() {
		s.Algorithm = AlgorithmRouting
		defaultMode = transport.LockStep
	} else {
		kind, err := gossip.ParseKind(s.Algorithm)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		s.Algorithm = string(kind)
	}

	mode := defaultMode
	if s.Mode != "" {
		m, err := transport.ParseMode(s.Mode)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		mode = m
	}
	if s.Algorithm == AlgorithmRouting && mode != transport.LockStep {
		return s, fmt.Errorf("%w: routing needs lock-step rounds to detect termination", ErrInvalidScenario)
	}
	s.Mode = mode.String()

	if s.Role != nil && (*s.Role < 0 || *s.Role >= s.Nodes) {
		return s, fmt.Errorf("%w: role %d outside [0, %d)", ErrInvalidScenario, *s.Role, s.Nodes)
	}
	for _, p := range s.Payloads {
		if int(p.From) < 0 || int(p.From) >= s.Nodes || int(p.To) < 0 || int(p.To) >= s.Nodes {
			return s, fmt.Errorf("%w: payload %d -> %d outside [0, %d)", ErrInvalidScenario, p.From, p.To, s.Nodes)
		}
	}
	if s.MaxWait < 0 || s.Timeout < 0 {
		return s, fmt.Errorf("%w: durations must not be negative", ErrInvalidScenario)
	}
	return s, nil
}

func (s Scenario) rolePolicy() gossip.RolePolicy {
	if s.Role == nil {
		return gossip.Lowest()
	}
	return gossip.Fixed(transport.NodeID(*s.Role))
}
