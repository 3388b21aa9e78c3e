// Package runs keeps finished simulation results in memory so they can be
// fetched by id after the request that started them returns.
package runs

import (
	"container/list"
	"sync"
	"time"

	"github.com/ryandielhenn/ringsim/pkg/sim"
)

type entry struct {
	id       string
	result   *sim.Result
	expireAt time.Time
}

// Store is an LRU of run results bounded by count, with an optional TTL.
type Store struct {
	mu   sync.Mutex
	data map[string]*list.Element
	ll   *list.List
	cap  int
	ttl  time.Duration
	now  func() time.Time
}

// NewStore keeps at most capacity results. A zero ttl keeps them until
// they are evicted.
func NewStore(capacity int, ttl time.Duration) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		data: make(map[string]*list.Element),
		ll:   list.New(),
		cap:  capacity,
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *Store) Put(r *sim.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exp time.Time
	if s.ttl > 0 {
		exp = s.now().Add(s.ttl)
	}

	if el, ok := s.data[r.ID]; ok {
		e := el.Value.(*entry)
		e.result = r
		e.expireAt = exp
		s.ll.MoveToFront(el)
		return
	}
	s.data[r.ID] = s.ll.PushFront(&entry{id: r.ID, result: r, expireAt: exp})
	for s.ll.Len() > s.cap {
		s.removeElement(s.ll.Back())
	}
}

func (s *Store) Get(id string) (*sim.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.data[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if s.expired(e) {
		s.removeElement(el)
		return nil, false
	}
	s.ll.MoveToFront(el)
	return e.result, true
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.data[id]
	if ok {
		s.removeElement(el)
	}
	return ok
}

// List returns the live results, most recently used first. It does not
// change recency.
func (s *Store) List() []*sim.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*sim.Result, 0, s.ll.Len())
	for el := s.ll.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if s.expired(e) {
			s.removeElement(el)
		} else {
			out = append(out, e.result)
		}
		el = next
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Store) expired(e *entry) bool {
	return !e.expireAt.IsZero() && s.now().After(e.expireAt)
}

func (s *Store) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	delete(s.data, e.id)
	s.ll.Remove(el)
}
