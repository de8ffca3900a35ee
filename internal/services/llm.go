package services

import (
	"context"
	"time"

	"chartgpt-backend/internal/metrics"
)

// Completer sends one prompt to a language model and returns its text. An
// empty apiKey selects the provider's server-side credential.
type Completer interface {
	Complete(ctx context.Context, prompt, apiKey string) (string, error)
}

// callSlots bounds concurrent outbound calls.
type callSlots chan struct{}

func newCallSlots(n int) callSlots {
	if n < 1 {
		n = 1
	}
	slots := make(callSlots, n)
	for i := 0; i < n; i++ {
		slots <- struct{}{}
	}
	return slots
}

// acquire blocks until a slot is available
func (s callSlots) acquire(ctx context.Context) error {
	select {
	case <-s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s callSlots) release() {
	s <- struct{}{}
}

func observeCall(provider string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMCallDuration.WithLabelValues(provider, status).Observe(time.Since(start).Seconds())
}
