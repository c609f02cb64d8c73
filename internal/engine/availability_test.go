package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
	"github.com/orienta-edu/orienta-backend/internal/providers"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeProvider answers canary probes (requests without a system prompt)
// from probeText/probeErr and generation requests from a scripted queue.
type fakeProvider struct {
	id        string
	probeText string
	probeErr  error

	mu         sync.Mutex
	genQueue   []func() (*providers.Completion, error)
	probeCalls int
	genCalls   int
}

func (p *fakeProvider) ID() string { return p.id }

func (p *fakeProvider) Complete(_ context.Context, req providers.CompletionRequest) (*providers.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if req.System == "" {
		p.probeCalls++
		if p.probeErr != nil {
			return nil, p.probeErr
		}
		return &providers.Completion{Text: p.probeText}, nil
	}
	p.genCalls++
	if len(p.genQueue) == 0 {
		return &providers.Completion{Text: "{}"}, nil
	}
	next := p.genQueue[0]
	p.genQueue = p.genQueue[1:]
	return next()
}

func (p *fakeProvider) counts() (probes, gens int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probeCalls, p.genCalls
}

func TestProberCachesWithinTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	prober := NewProber(logger.NewNop(), clock, 5*time.Minute)
	prov := &fakeProvider{id: "openai", probeText: "LISTO"}

	for i := 0; i < 3; i++ {
		rec := prober.Check(context.Background(), prov, time.Second)
		if !rec.Available {
			t.Fatalf("check %d: provider should be available", i)
		}
	}
	if probes, _ := prov.counts(); probes != 1 {
		t.Fatalf("probe count: got=%d want=1", probes)
	}
}

func TestProberReprobesAfterTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	prober := NewProber(logger.NewNop(), clock, 5*time.Minute)
	prov := &fakeProvider{id: "openai", probeText: "LISTO"}

	prober.Check(context.Background(), prov, time.Second)
	clock.Advance(5*time.Minute + time.Second)
	prober.Check(context.Background(), prov, time.Second)

	if probes, _ := prov.counts(); probes != 2 {
		t.Fatalf("probe count after TTL expiry: got=%d want=2", probes)
	}
}

func TestProberRejectsMissingCanaryToken(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	prober := NewProber(logger.NewNop(), clock, 5*time.Minute)
	prov := &fakeProvider{id: "openai", probeText: "hola, ¿en qué puedo ayudar?"}

	rec := prober.Check(context.Background(), prov, time.Second)
	if rec.Available {
		t.Fatal("a 200 without the canary token must not count as available")
	}
	if rec.Reason != providers.FailureUnknown {
		t.Fatalf("reason: got=%q want=%q", rec.Reason, providers.FailureUnknown)
	}
}

func TestProberAcceptsTokenInsideLongerAnswer(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	prober := NewProber(logger.NewNop(), clock, 5*time.Minute)
	prov := &fakeProvider{id: "openai", probeText: "Claro: listo."}

	if rec := prober.Check(context.Background(), prov, time.Second); !rec.Available {
		t.Fatal("case-insensitive token match should count as available")
	}
}

func TestMarkUnavailableSkipsProbing(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	prober := NewProber(logger.NewNop(), clock, 5*time.Minute)
	prov := &fakeProvider{id: "openai", probeText: "LISTO"}

	prober.MarkUnavailable("openai", providers.FailureInvalidKey)

	rec := prober.Check(context.Background(), prov, time.Second)
	if rec.Available {
		t.Fatal("marked provider must stay unavailable within the TTL")
	}
	if rec.Reason != providers.FailureInvalidKey {
		t.Fatalf("reason: got=%q want=%q", rec.Reason, providers.FailureInvalidKey)
	}
	if probes, _ := prov.counts(); probes != 0 {
		t.Fatalf("probe count: got=%d want=0", probes)
	}

	// Past the TTL the mark expires and probing resumes.
	clock.Advance(6 * time.Minute)
	if rec := prober.Check(context.Background(), prov, time.Second); !rec.Available {
		t.Fatal("provider should recover after the TTL")
	}
}

func TestProberFailedProbeRecordsReason(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	prober := NewProber(logger.NewNop(), clock, 5*time.Minute)
	prov := &fakeProvider{
		id:       "anthropic",
		probeErr: &providers.Error{Provider: "anthropic", Kind: providers.FailureRateLimited},
	}

	rec := prober.Check(context.Background(), prov, time.Second)
	if rec.Available {
		t.Fatal("failed probe must record unavailable")
	}
	if rec.Reason != providers.FailureRateLimited {
		t.Fatalf("reason: got=%q want=%q", rec.Reason, providers.FailureRateLimited)
	}
}
