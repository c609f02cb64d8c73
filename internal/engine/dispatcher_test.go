package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orienta-edu/orienta-backend/internal/catalog"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
	"github.com/orienta-edu/orienta-backend/internal/providers"
)

const dispatcherTestConfig = `
capabilities:
  support_plan:
    enabled: true
    limits:
      max_objectives: 5
      max_activities: 8
    templates:
      default: "Genera un plan de apoyo JSON para {students}. Diagnósticos: {diagnostics}"
  learning_analysis:
    enabled: false
    templates:
      default: "Analiza a {students}"
providers:
  p1:
    priority: 1
    enabled: true
    model: model-a
    limits:
      max_tokens: 64
      temperature: 0.2
      request_timeout: 2s
  p2:
    priority: 2
    enabled: true
    model: model-b
    limits:
      max_tokens: 64
      temperature: 0.2
      request_timeout: 2s
  p3:
    priority: 3
    enabled: true
    model: model-c
    limits:
      max_tokens: 64
      temperature: 0.2
      request_timeout: 2s
`

const validPlanJSON = `{"title": "Plan de apoyo", "objectives": ["Objetivo uno"]}`

func dispatcherCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(dispatcherTestConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cat
}

func newTestDispatcher(t *testing.T, impls map[string]providers.ContentProvider) *Dispatcher {
	t.Helper()
	cat := dispatcherCatalog(t)
	log := logger.NewNop()
	clock := newFakeClock()
	d := NewDispatcher(
		log,
		cat,
		NewProber(log, clock, 5*time.Minute),
		NewPromptBuilder(cat),
		NewNormalizer(cat),
		providers.NewMockGenerator(log, false),
		impls,
		clock,
	)
	d.sleep = func(time.Duration) {}
	return d
}

func genOK(text string) func() (*providers.Completion, error) {
	return func() (*providers.Completion, error) {
		return &providers.Completion{Text: text}, nil
	}
}

func genFail(kind providers.FailureKind) func() (*providers.Completion, error) {
	return func() (*providers.Completion, error) {
		return nil, &providers.Error{Provider: "test", Kind: kind, Err: errors.New("boom")}
	}
}

func TestGenerateWalksProvidersInPriorityOrder(t *testing.T) {
	t.Parallel()

	p1 := &fakeProvider{id: "p1", probeText: "LISTO", genQueue: []func() (*providers.Completion, error){
		genFail(providers.FailureTransient),
		genFail(providers.FailureTransient),
	}}
	p2 := &fakeProvider{id: "p2", probeText: "LISTO", genQueue: []func() (*providers.Completion, error){
		genOK(validPlanJSON),
	}}
	p3 := &fakeProvider{id: "p3", probeText: "LISTO"}

	d := newTestDispatcher(t, map[string]providers.ContentProvider{"p1": p1, "p2": p2, "p3": p3})

	res, err := d.Generate(context.Background(), catalog.CapabilitySupportPlan, GenerationContext{Role: "teacher"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Provider != "p2" {
		t.Fatalf("provider: got=%q want=%q", res.Provider, "p2")
	}
	if res.Degraded() {
		t.Fatal("a real provider result must not be degraded")
	}

	// p1 got its retry, p2 one call, p3 was never touched.
	if _, gens := p1.counts(); gens != 2 {
		t.Errorf("p1 generation calls: got=%d want=2", gens)
	}
	if _, gens := p2.counts(); gens != 1 {
		t.Errorf("p2 generation calls: got=%d want=1", gens)
	}
	if probes, gens := p3.counts(); probes != 0 || gens != 0 {
		t.Errorf("p3 must stay untouched: probes=%d gens=%d", probes, gens)
	}
}

func TestGenerateRetriesOnceOnTransientFailure(t *testing.T) {
	t.Parallel()

	p1 := &fakeProvider{id: "p1", probeText: "LISTO", genQueue: []func() (*providers.Completion, error){
		genFail(providers.FailureRateLimited),
		genOK(validPlanJSON),
	}}
	d := newTestDispatcher(t, map[string]providers.ContentProvider{"p1": p1})

	slept := 0
	d.sleep = func(time.Duration) { slept++ }

	res, err := d.Generate(context.Background(), catalog.CapabilitySupportPlan, GenerationContext{Role: "teacher"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Provider != "p1" {
		t.Fatalf("provider: got=%q want=%q", res.Provider, "p1")
	}
	if slept != 1 {
		t.Fatalf("backoff sleeps: got=%d want=1", slept)
	}
}

func TestGenerateRetriesUnparseableOutputThenMovesOn(t *testing.T) {
	t.Parallel()

	p1 := &fakeProvider{id: "p1", probeText: "LISTO", genQueue: []func() (*providers.Completion, error){
		genOK("no puedo responder en JSON"),
		genOK("tampoco esta vez"),
	}}
	p2 := &fakeProvider{id: "p2", probeText: "LISTO", genQueue: []func() (*providers.Completion, error){
		genOK(validPlanJSON),
	}}
	d := newTestDispatcher(t, map[string]providers.ContentProvider{"p1": p1, "p2": p2})

	res, err := d.Generate(context.Background(), catalog.CapabilitySupportPlan, GenerationContext{Role: "teacher"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Provider != "p2" {
		t.Fatalf("provider: got=%q want=%q", res.Provider, "p2")
	}
	if _, gens := p1.counts(); gens != 2 {
		t.Fatalf("p1 should get exactly one retry on unparseable output, calls=%d", gens)
	}
}

func TestGenerateFallsBackToMockWhenExhausted(t *testing.T) {
	t.Parallel()

	p1 := &fakeProvider{id: "p1", probeErr: &providers.Error{Provider: "p1", Kind: providers.FailureTransient}}
	p2 := &fakeProvider{id: "p2", probeText: "no soy el token esperado"}
	d := newTestDispatcher(t, map[string]providers.ContentProvider{"p1": p1, "p2": p2})

	gctx := GenerationContext{
		Role:     "teacher",
		Students: []StudentProfile{{Name: "Ana Lucía", Grade: "4°"}},
	}
	res, err := d.Generate(context.Background(), catalog.CapabilitySupportPlan, gctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Provider != providers.MockProviderID {
		t.Fatalf("provider: got=%q want=%q", res.Provider, providers.MockProviderID)
	}
	if !res.Degraded() {
		t.Fatal("mock result must report degraded")
	}
	if res.Payload.SupportPlan == nil {
		t.Fatal("mock fallback must still produce a structurally valid plan")
	}
}

func TestGenerateDisabledCapability(t *testing.T) {
	t.Parallel()

	p1 := &fakeProvider{id: "p1", probeText: "LISTO"}
	d := newTestDispatcher(t, map[string]providers.ContentProvider{"p1": p1})

	_, err := d.Generate(context.Background(), catalog.CapabilityLearningAnalysis, GenerationContext{Role: "teacher"})
	if !errors.Is(err, ErrCapabilityDisabled) {
		t.Fatalf("error: got=%v want ErrCapabilityDisabled", err)
	}
	if probes, gens := p1.counts(); probes != 0 || gens != 0 {
		t.Fatal("disabled capability must not touch any provider")
	}
}

func TestGenerateUnknownCapability(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, map[string]providers.ContentProvider{})
	if _, err := d.Generate(context.Background(), "course_builder", GenerationContext{}); !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("error: got=%v want ErrUnknownCapability", err)
	}
}

func TestTerminalFailurePoisonsAvailability(t *testing.T) {
	t.Parallel()

	p1 := &fakeProvider{id: "p1", probeText: "LISTO", genQueue: []func() (*providers.Completion, error){
		genFail(providers.FailureInvalidKey),
	}}
	p2 := &fakeProvider{id: "p2", probeText: "LISTO", genQueue: []func() (*providers.Completion, error){
		genOK(validPlanJSON),
		genOK(validPlanJSON),
	}}
	d := newTestDispatcher(t, map[string]providers.ContentProvider{"p1": p1, "p2": p2})

	res, err := d.Generate(context.Background(), catalog.CapabilitySupportPlan, GenerationContext{Role: "teacher"})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if res.Provider != "p2" {
		t.Fatalf("provider: got=%q want=%q", res.Provider, "p2")
	}

	// Within the TTL the poisoned provider is skipped without re-probing
	// or re-dispatching.
	res, err = d.Generate(context.Background(), catalog.CapabilitySupportPlan, GenerationContext{Role: "teacher"})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if res.Provider != "p2" {
		t.Fatalf("provider after poisoning: got=%q want=%q", res.Provider, "p2")
	}
	if probes, gens := p1.counts(); probes != 1 || gens != 1 {
		t.Fatalf("p1 must be skipped after terminal failure: probes=%d gens=%d", probes, gens)
	}
}

func TestCheckAvailabilitySnapshotsAllProviders(t *testing.T) {
	t.Parallel()

	p1 := &fakeProvider{id: "p1", probeText: "LISTO"}
	p2 := &fakeProvider{id: "p2", probeErr: &providers.Error{Provider: "p2", Kind: providers.FailureInvalidKey}}
	d := newTestDispatcher(t, map[string]providers.ContentProvider{"p1": p1, "p2": p2})

	snap := d.CheckAvailability(context.Background())
	if len(snap) != 2 {
		t.Fatalf("snapshot size: got=%d want=2", len(snap))
	}
	if !snap["p1"].Available {
		t.Error("p1 should be available")
	}
	if snap["p2"].Available || snap["p2"].Reason != providers.FailureInvalidKey {
		t.Errorf("p2 record wrong: %+v", snap["p2"])
	}
}
