package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/orienta-edu/orienta-backend/internal/catalog"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
	"github.com/orienta-edu/orienta-backend/internal/providers"
)

const systemPrompt = "Eres un asistente pedagógico de una plataforma de educación inclusiva. " +
	"Respondes siempre en español y únicamente con JSON válido, sin texto adicional."

// retryBackoff is the fixed pause before the single in-place retry on a
// transient failure.
const retryBackoff = 500 * time.Millisecond

type registryEntry struct {
	cfg  catalog.ProviderConfig
	impl providers.ContentProvider
}

// Dispatcher is the orchestration core: it walks enabled providers in
// ascending priority, consults the availability cache, retries once on
// transient failures, and falls back to the mock generator when every
// candidate is exhausted. Provider-level failures never reach the
// caller; only a disabled or unknown capability does.
type Dispatcher struct {
	log     *logger.Logger
	cat     *catalog.Catalog
	prober  *Prober
	builder *PromptBuilder
	norm    *Normalizer
	mock    *providers.MockGenerator
	clock   Clock

	entries []registryEntry

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewDispatcher(
	log *logger.Logger,
	cat *catalog.Catalog,
	prober *Prober,
	builder *PromptBuilder,
	norm *Normalizer,
	mock *providers.MockGenerator,
	impls map[string]providers.ContentProvider,
	clock Clock,
) *Dispatcher {
	d := &Dispatcher{
		log:     log.With("component", "GenerationDispatcher"),
		cat:     cat,
		prober:  prober,
		builder: builder,
		norm:    norm,
		mock:    mock,
		clock:   clock,
		sleep:   time.Sleep,
	}
	for _, cfg := range cat.EnabledProviders() {
		impl, ok := impls[cfg.ID]
		if !ok {
			log.Warn("enabled provider has no adapter, skipping", "provider", cfg.ID)
			continue
		}
		d.entries = append(d.entries, registryEntry{cfg: cfg, impl: impl})
	}
	return d
}

// Generate runs one capability invocation. The returned result is always
// normalized and structurally valid; the caller can only tell a degraded
// result apart by its Provider field.
func (d *Dispatcher) Generate(ctx context.Context, capabilityID string, gctx GenerationContext) (*GenerationResult, error) {
	cc, ok := d.cat.Capability(capabilityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, capabilityID)
	}
	if !cc.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityDisabled, capabilityID)
	}

	for _, e := range d.entries {
		rec := d.prober.Check(ctx, e.impl, e.cfg.Limits.RequestTimeout)
		if !rec.Available {
			continue
		}

		payload, ok := d.tryProvider(ctx, capabilityID, e, gctx)
		if !ok {
			continue
		}
		return &GenerationResult{
			Capability:  capabilityID,
			Provider:    e.cfg.ID,
			GeneratedAt: d.clock.Now(),
			Payload:     payload,
		}, nil
	}

	return d.generateMock(capabilityID, gctx), nil
}

// tryProvider makes up to two attempts against one provider: the second
// attempt only happens after a transient failure (timeout, 5xx, rate
// limit, or unparseable output). Auth and quota failures poison the
// availability cache and end the provider's turn immediately.
func (d *Dispatcher) tryProvider(ctx context.Context, capabilityID string, e registryEntry, gctx GenerationContext) (Payload, bool) {
	prompt, err := d.builder.Build(capabilityID, gctx, e.cfg.Limits.MaxTokens)
	if err != nil {
		d.log.Error("prompt build failed", "capability", capabilityID, "error", err)
		return Payload{}, false
	}
	req := providers.CompletionRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		MaxTokens:   e.cfg.Limits.MaxTokens,
		Temperature: e.cfg.Limits.Temperature,
	}

	for attempt := 0; attempt < 2; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, e.cfg.Limits.RequestTimeout)
		comp, err := e.impl.Complete(cctx, req)
		cancel()

		if err != nil {
			kind := providers.KindOf(err)
			d.log.Warn("provider dispatch failed",
				"capability", capabilityID, "provider", e.cfg.ID,
				"attempt", attempt+1, "kind", string(kind), "error", err)
			if kind.Terminal() {
				d.prober.MarkUnavailable(e.cfg.ID, kind)
				return Payload{}, false
			}
			if kind.Retryable() && attempt == 0 {
				d.sleep(retryBackoff)
				continue
			}
			return Payload{}, false
		}

		payload, nerr := d.norm.Normalize(capabilityID, comp.Text)
		if nerr != nil {
			d.log.Warn("provider output failed normalization",
				"capability", capabilityID, "provider", e.cfg.ID,
				"attempt", attempt+1, "error", nerr)
			if attempt == 0 {
				d.sleep(retryBackoff)
				continue
			}
			return Payload{}, false
		}
		return payload, true
	}
	return Payload{}, false
}

func (d *Dispatcher) generateMock(capabilityID string, gctx GenerationContext) *GenerationResult {
	d.log.Info("all providers exhausted, using mock generator", "capability", capabilityID)

	mc := providers.MockContext{BaseActivity: gctx.BaseActivity}
	for _, s := range gctx.Students {
		mc.StudentNames = append(mc.StudentNames, s.Name)
		mc.Grades = append(mc.Grades, s.Grade)
	}

	raw := d.mock.Generate(capabilityID, mc)
	payload, err := d.norm.Normalize(capabilityID, raw)
	if err != nil {
		// Canned payloads always normalize; guard anyway so the
		// never-fails contract of the mock path holds.
		d.log.Error("mock payload failed normalization", "capability", capabilityID, "error", err)
		payload = d.norm.Empty(capabilityID)
	}
	return &GenerationResult{
		Capability:  capabilityID,
		Provider:    providers.MockProviderID,
		GeneratedAt: d.clock.Now(),
		Payload:     payload,
	}
}

// CheckAvailability probes every enabled provider (respecting the cache)
// and returns the snapshot. Used by the status endpoint; it never
// triggers content generation.
func (d *Dispatcher) CheckAvailability(ctx context.Context) map[string]AvailabilityRecord {
	out := make(map[string]AvailabilityRecord, len(d.entries))
	for _, e := range d.entries {
		out[e.cfg.ID] = d.prober.Check(ctx, e.impl, e.cfg.Limits.RequestTimeout)
	}
	return out
}
