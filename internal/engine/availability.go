package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
	"github.com/orienta-edu/orienta-backend/internal/providers"
)

// The canary asks for one fixed token. A provider that answers HTTP 200
// with an error payload will not contain it, so availability requires
// both a transport success and the token in the body.
const (
	canaryPrompt    = "Responde únicamente con la palabra: LISTO"
	canaryToken     = "LISTO"
	canaryMaxTokens = 16
)

// DefaultAvailabilityTTL is how long a probe result is trusted.
const DefaultAvailabilityTTL = 5 * time.Minute

type AvailabilityRecord struct {
	Available bool                  `json:"available"`
	CheckedAt time.Time             `json:"checked_at"`
	Reason    providers.FailureKind `json:"reason,omitempty"`
}

// Prober caches per-provider availability with a TTL. Records are
// last-writer-wins; a lost update costs one redundant probe, never wrong
// routing, so there is no per-record locking beyond the map mutex.
// Concurrent probes of the same provider are collapsed via singleflight.
type Prober struct {
	log   *logger.Logger
	clock Clock
	ttl   time.Duration

	mu      sync.RWMutex
	records map[string]AvailabilityRecord

	sf singleflight.Group
}

func NewProber(log *logger.Logger, clock Clock, ttl time.Duration) *Prober {
	if ttl <= 0 {
		ttl = DefaultAvailabilityTTL
	}
	return &Prober{
		log:     log.With("component", "AvailabilityProber"),
		clock:   clock,
		ttl:     ttl,
		records: make(map[string]AvailabilityRecord),
	}
}

// Cached returns the current record if it is still within the TTL.
// A stale record is treated as absent.
func (p *Prober) Cached(providerID string) (AvailabilityRecord, bool) {
	p.mu.RLock()
	rec, ok := p.records[providerID]
	p.mu.RUnlock()
	if !ok {
		return AvailabilityRecord{}, false
	}
	if p.clock.Now().Sub(rec.CheckedAt) > p.ttl {
		return AvailabilityRecord{}, false
	}
	return rec, true
}

// Check returns the cached record or probes the provider. The probe is
// bounded by the provider's request timeout; a probe that does not
// finish in time marks the provider unavailable for this cycle.
func (p *Prober) Check(ctx context.Context, prov providers.ContentProvider, timeout time.Duration) AvailabilityRecord {
	if rec, ok := p.Cached(prov.ID()); ok {
		return rec
	}
	v, _, _ := p.sf.Do(prov.ID(), func() (interface{}, error) {
		// Re-check inside the flight: a concurrent caller may have
		// just stored a fresh record.
		if rec, ok := p.Cached(prov.ID()); ok {
			return rec, nil
		}
		return p.probe(ctx, prov, timeout), nil
	})
	return v.(AvailabilityRecord)
}

// MarkUnavailable records a terminal failure (auth, quota) observed
// during dispatch so later calls within the TTL skip the provider
// without re-probing.
func (p *Prober) MarkUnavailable(providerID string, reason providers.FailureKind) {
	rec := AvailabilityRecord{Available: false, CheckedAt: p.clock.Now(), Reason: reason}
	p.mu.Lock()
	p.records[providerID] = rec
	p.mu.Unlock()
	p.log.Warn("provider marked unavailable", "provider", providerID, "reason", string(reason))
}

func (p *Prober) probe(ctx context.Context, prov providers.ContentProvider, timeout time.Duration) AvailabilityRecord {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	comp, err := prov.Complete(pctx, providers.CompletionRequest{
		Prompt:    canaryPrompt,
		MaxTokens: canaryMaxTokens,
	})

	rec := AvailabilityRecord{CheckedAt: p.clock.Now()}
	switch {
	case err != nil:
		rec.Reason = providers.KindOf(err)
		p.log.Warn("availability probe failed", "provider", prov.ID(), "reason", string(rec.Reason), "error", err)
	case !strings.Contains(strings.ToUpper(comp.Text), canaryToken):
		rec.Reason = providers.FailureUnknown
		p.log.Warn("availability probe returned unexpected body", "provider", prov.ID())
	default:
		rec.Available = true
	}

	p.mu.Lock()
	p.records[prov.ID()] = rec
	p.mu.Unlock()
	return rec
}
