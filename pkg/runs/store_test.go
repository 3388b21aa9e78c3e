package runs

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryandielhenn/ringsim/pkg/sim"
)

func result(id string) *sim.Result {
	return &sim.Result{ID: id, Messages: len(id)}
}

func TestPutGetDelete(t *testing.T) {
	s := NewStore(16, 0)

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		s.Put(result(id))
	}
	if got := s.Len(); got != len(ids) {
		t.Fatalf("Len = %d, want %d", got, len(ids))
	}
	for _, id := range ids {
		got, ok := s.Get(id)
		if !ok {
			t.Fatalf("Get(%q) !ok", id)
		}
		if got.ID != id {
			t.Fatalf("Get(%q) returned run %q", id, got.ID)
		}
	}

	if ok := s.Delete("b"); !ok {
		t.Fatalf("Delete(b) = false, want true")
	}
	if ok := s.Delete("b"); ok {
		t.Fatalf("second Delete(b) = true, want false")
	}
	if _, ok := s.Get("b"); ok {
		t.Fatalf("Get(b) ok after delete")
	}
}

func TestOverwriteKeepsLen(t *testing.T) {
	s := NewStore(16, 0)
	s.Put(&sim.Result{ID: "x", Messages: 1})
	s.Put(&sim.Result{ID: "x", Messages: 2})
	if got := s.Len(); got != 1 {
		t.Fatalf("Len after overwrite = %d, want 1", got)
	}
	r, ok := s.Get("x")
	if !ok || r.Messages != 2 {
		t.Fatalf("Get(x) = %+v,%v want Messages=2,true", r, ok)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewStore(2, 0)

	s.Put(result("a"))
	s.Put(result("b"))
	// Touch "a" so "b" becomes the victim.
	if _, ok := s.Get("a"); !ok {
		t.Fatalf("precondition: a missing")
	}
	s.Put(result("c"))

	if _, ok := s.Get("a"); !ok {
		t.Fatalf("expected a to remain (Get must update recency)")
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatalf("expected c present")
	}
	if _, ok := s.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
}

func TestTTLExpires(t *testing.T) {
	s := NewStore(16, time.Minute)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	s.Put(result("short"))
	if _, ok := s.Get("short"); !ok {
		t.Fatalf("fresh run should be readable")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := s.Get("short"); ok {
		t.Fatalf("expected run to expire")
	}
	if s.Len() != 0 {
		t.Fatalf("expired run still counted")
	}
}

func TestListOrderAndExpiry(t *testing.T) {
	s := NewStore(16, time.Minute)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	s.Put(result("old"))
	now = now.Add(45 * time.Second)
	s.Put(result("mid"))
	s.Put(result("new"))
	now = now.Add(30 * time.Second) // "old" is past its TTL

	got := s.List()
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		t.Fatalf("List = %v, want [new mid]", ids)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore(1<<16, 0)

	var wg sync.WaitGroup
	const G = 16
	const N = 500

	errCh := make(chan error, G)
	var stop atomic.Bool

	for gid := range G {
		wg.Add(1)
		go func(gid int) {
			defer wg.Done()
			for i := range N {
				if stop.Load() {
					return
				}
				id := fmt.Sprintf("run-%d-%d", gid, i)
				s.Put(result(id))

				if _, ok := s.Get(id); !ok {
					errCh <- fmt.Errorf("missing run %s right after Put", id)
					stop.Store(true)
					return
				}
				if i%7 == 0 {
					s.Delete(id)
				}
				if i%50 == 0 {
					s.List()
				}
			}
		}(gid)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrency test failed: %v", err)
	}
}
