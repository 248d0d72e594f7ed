package oracle

import (
	"context"
	"errors"
	"time"

	"career-roadmap/backend/utils"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without calling the provider while the breaker is open.
var ErrCircuitOpen = errors.New("oracle circuit open")

type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// Breaker stops calling a provider that keeps failing. It never retries: a
// rejected call fails immediately and the caller decides what to do.
type Breaker struct {
	next Oracle
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Oracle, s BreakerSettings, log *utils.Logger) *Breaker {
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 0.6
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("oracle circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the provider's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Name() string { return b.next.Name() }

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", errors.Join(ErrCircuitOpen, err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
