package extraction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"invoiceflow/internal/port"
)

// backendSlot is one entry of the fallback chain with its rate-limit
// backoff. A zero pausedUntil means the backend is available.
type backendSlot struct {
	name    string
	backend port.ExtractionBackend

	mu          sync.RWMutex
	pausedUntil time.Time
}

func (s *backendSlot) paused(now time.Time) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pausedUntil, !s.pausedUntil.IsZero() && now.Before(s.pausedUntil)
}

func (s *backendSlot) pause(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedUntil = until
}

// FallbackBackend tries extraction backends in configured order. A backend
// that answers with a RateLimitError is paused for its Retry-After window
// and skipped by later documents until the window passes.
type FallbackBackend struct {
	slots []*backendSlot
	now   func() time.Time
}

// NewFallbackBackend creates a FallbackBackend from an ordered list of backends and their provider names.
func NewFallbackBackend(backends []port.ExtractionBackend, names []string) *FallbackBackend {
	slots := make([]*backendSlot, len(backends))
	for i, b := range backends {
		slots[i] = &backendSlot{name: names[i], backend: b}
	}
	return &FallbackBackend{slots: slots, now: time.Now}
}

// Extract returns the first successful backend response. The output's Trace
// is prefixed with the serving provider and any providers passed over.
//
// When every backend is rate limited (or paused) the result is a
// RateLimitError carrying the shortest remaining wait. Otherwise the error
// lists each provider's failure. A cancelled ctx stops the chain.
func (f *FallbackBackend) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	now := f.now()
	var (
		failures    []error
		passedOver  []string
		nextReady   time.Time
		onlyLimited = true
	)
	noteReady := func(t time.Time) {
		if nextReady.IsZero() || t.Before(nextReady) {
			nextReady = t
		}
	}

	for _, s := range f.slots {
		if until, paused := s.paused(now); paused {
			log.Printf("extraction.FallbackBackend.Extract: [%s] %s paused until %s, passing over",
				input.CorrelationID, s.name, until.Format(time.RFC3339))
			noteReady(until)
			passedOver = append(passedOver, s.name)
			continue
		}

		out, err := s.backend.Extract(ctx, input)
		if err == nil {
			return withProvenance(out, s.name, passedOver), nil
		}
		passedOver = append(passedOver, s.name)

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			until := now.Add(rlErr.RetryAfter)
			s.pause(until)
			noteReady(until)
			log.Printf("extraction.FallbackBackend.Extract: [%s] %s rate limited for %s",
				input.CorrelationID, s.name, rlErr.RetryAfter)
			failures = append(failures, fmt.Errorf("%s: rate limited for %s", s.name, rlErr.RetryAfter))
		} else {
			onlyLimited = false
			log.Printf("extraction.FallbackBackend.Extract: [%s] %s failed on %s: %v",
				input.CorrelationID, s.name, input.SourceReference, err)
			failures = append(failures, fmt.Errorf("%s: %w", s.name, err))
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("extracting %s: %w", input.SourceReference, errors.Join(append(failures, ctxErr)...))
		}
	}

	if onlyLimited {
		wait := nextReady.Sub(now)
		if wait < time.Second {
			wait = time.Second
		}
		return nil, NewRateLimitError(strings.Join(f.names(), ","),
			fmt.Errorf("every extraction backend is rate limited"), int(wait.Seconds()))
	}
	return nil, fmt.Errorf("no extraction backend could read %s: %w", input.SourceReference, errors.Join(failures...))
}

func (f *FallbackBackend) names() []string {
	out := make([]string, len(f.slots))
	for i, s := range f.slots {
		out[i] = s.name
	}
	return out
}

// withProvenance copies out with the serving provider recorded in its trace.
func withProvenance(out *port.ExtractOutput, served string, passedOver []string) *port.ExtractOutput {
	res := *out
	trace := make([]string, 0, len(out.Trace)+2)
	trace = append(trace, "provider="+served)
	if len(passedOver) > 0 {
		trace = append(trace, "fallback_from="+strings.Join(passedOver, ","))
	}
	res.Trace = append(trace, out.Trace...)
	return &res
}
