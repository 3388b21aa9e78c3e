package gossip

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

// SecretSet is the set of secrets (node ids) a node knows. It only grows.
type SecretSet map[transport.NodeID]struct{}

func NewSecretSet(ids ...transport.NodeID) SecretSet {
	s := make(SecretSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s SecretSet) Has(id transport.NodeID) bool {
	_, ok := s[id]
	return ok
}

func (s SecretSet) Len() int { return len(s) }

// Merge adds every secret of other to s and returns how many were new.
func (s SecretSet) Merge(other SecretSet) int {
	added := 0
	for id := range other {
		if _, ok := s[id]; !ok {
			s[id] = struct{}{}
			added++
		}
	}
	return added
}

func (s SecretSet) Clone() SecretSet {
	c := make(SecretSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the secrets in ascending order.
func (s SecretSet) Sorted() []transport.NodeID {
	out := make([]transport.NodeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s SecretSet) String() string {
	ids := s.Sorted()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s SecretSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *SecretSet) UnmarshalJSON(b []byte) error {
	var ids []transport.NodeID
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewSecretSet(ids...)
	return nil
}
