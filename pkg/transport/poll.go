package transport

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultMinWait = time.Microsecond
	defaultMaxWait = 2 * time.Millisecond
)

// Poller turns the non-blocking Receive into a wait with randomized
// exponential backoff between empty polls. The zero value is usable.
type Poller struct {
	MinWait time.Duration // first backoff period
	MaxWait time.Duration // backoff ceiling
}

type lockStepper interface {
	LockStep() bool
}

// Receive polls m until a message arrives, ctx is done, or AdvanceRound
// reports an error (ErrQuiescent in lock-step mode means nothing can arrive).
// On lock-step media the round barrier already paces the loop, so no sleep
// is added between polls.
func (p Poller) Receive(ctx context.Context, m Medium) (Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	minWait, maxWait := p.MinWait, p.MaxWait
	if minWait <= 0 {
		minWait = defaultMinWait
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	paced := false
	if ls, ok := m.(lockStepper); ok {
		paced = ls.LockStep()
	}

	backoff := minWait
	for {
		if msg, ok := m.Receive(); ok {
			return msg, nil
		}
		if err := m.AdvanceRound(ctx); err != nil {
			return nil, err
		}
		if paced {
			continue
		}

		backoff += time.Duration(rand.Int63n(int64(backoff)))
		if backoff > maxWait {
			backoff = maxWait
		}
		t := time.NewTimer(backoff)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
}
