package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orienta-edu/orienta-backend/internal/catalog"
	"github.com/orienta-edu/orienta-backend/internal/data/repos"
	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/engine"
	"github.com/orienta-edu/orienta-backend/internal/platform/ctxutil"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
	"github.com/orienta-edu/orienta-backend/internal/providers"
)

const generationTestConfig = `
capabilities:
  support_plan:
    enabled: true
    limits:
      max_objectives: 5
      max_activities: 8
    templates:
      default: "Genera un plan de apoyo JSON para {students}. Diagnósticos: {diagnostics}. Apoyos previos: {prior_support}"
  adaptive_content:
    enabled: true
    limits:
      max_activities: 6
    templates:
      default: "Adapta la actividad {base_activity} para {students}. Apoyos previos: {prior_support}"
providers:
  p1:
    priority: 1
    enabled: true
    model: model-a
    limits:
      max_tokens: 512
      temperature: 0.2
      request_timeout: 2s
`

// capturingProvider answers probes with the canary token and records the
// prompt of every generation call. Probes carry no system prompt.
type capturingProvider struct {
	genText string
	prompts []string
}

func (p *capturingProvider) ID() string { return "p1" }

func (p *capturingProvider) Complete(_ context.Context, req providers.CompletionRequest) (*providers.Completion, error) {
	if req.System == "" {
		return &providers.Completion{Text: "LISTO"}, nil
	}
	p.prompts = append(p.prompts, req.Prompt)
	return &providers.Completion{Text: p.genText}, nil
}

type stubPiarEntry struct {
	profile engine.StudentProfile
	frags   *engine.PlanFragments
}

type stubPiarService struct {
	entries map[uuid.UUID]stubPiarEntry
}

func (s *stubPiarService) GetPiarByStudentID(context.Context, uuid.UUID) (*domain.PiarRecord, error) {
	return nil, nil
}

func (s *stubPiarService) GetPiarForActivityGeneration(_ context.Context, studentID uuid.UUID) (engine.StudentProfile, *engine.PlanFragments, error) {
	e, ok := s.entries[studentID]
	if !ok {
		return engine.StudentProfile{ID: studentID}, nil, nil
	}
	return e.profile, e.frags, nil
}

func (s *stubPiarService) SavePiar(context.Context, *domain.PiarRecord) error { return nil }

type stubRunRepo struct {
	created   []*domain.GenerationRun
	createErr error
}

func (r *stubRunRepo) Create(_ context.Context, _ *gorm.DB, row *domain.GenerationRun) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, row)
	return nil
}

func (r *stubRunRepo) ListRecent(_ context.Context, _ *gorm.DB, limit int) ([]*domain.GenerationRun, error) {
	if limit > len(r.created) {
		limit = len(r.created)
	}
	return r.created[:limit], nil
}

var _ repos.GenerationRunRepo = (*stubRunRepo)(nil)

func newGenerationTestService(t *testing.T, piar PiarService, runs repos.GenerationRunRepo, genText string) (GenerationService, *capturingProvider) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(generationTestConfig), 0o600))
	cat, err := catalog.Load(path)
	require.NoError(t, err)

	log := logger.NewNop()
	clock := engine.NewRealClock()
	provider := &capturingProvider{genText: genText}
	dispatcher := engine.NewDispatcher(
		log,
		cat,
		engine.NewProber(log, clock, 5*time.Minute),
		engine.NewPromptBuilder(cat),
		engine.NewNormalizer(cat),
		providers.NewMockGenerator(log, false),
		map[string]providers.ContentProvider{"p1": provider},
		clock,
	)
	return NewGenerationService(nil, log, dispatcher, piar, runs), provider
}

func TestGenerateAdaptedActivitiesMergesPriorSupport(t *testing.T) {
	anaID, luisID := uuid.New(), uuid.New()
	piar := &stubPiarService{entries: map[uuid.UUID]stubPiarEntry{
		anaID: {
			profile: engine.StudentProfile{ID: anaID, Name: "Ana Lucía Torres", Grade: "4°"},
			frags:   &engine.PlanFragments{Objectives: []string{"Mejorar atención sostenida"}},
		},
		luisID: {
			profile: engine.StudentProfile{ID: luisID, Name: "Luis Felipe Rojas", Grade: "4°"},
			frags:   &engine.PlanFragments{Adaptations: []string{"Instrucciones por pasos"}},
		},
	}}
	runs := &stubRunRepo{}
	svc, provider := newGenerationTestService(t, piar, runs,
		`{"activities":[{"title":"Lectura adaptada","description":"Texto corto con apoyos visuales"}],"resources":["Guía docente"]}`)

	userID := uuid.New()
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		UserID: userID,
		Role:   domain.RoleTeacher,
	})
	result, err := svc.GenerateAdaptedActivities(ctx, AdaptedActivitiesRequest{
		BaseActivity: "Taller de lectura en voz alta",
		StudentIDs:   []uuid.UUID{anaID, luisID},
		Role:         domain.RoleTeacher,
	})
	require.NoError(t, err)
	require.Equal(t, "p1", result.Provider)
	require.NotNil(t, result.Payload.Adapted)
	require.Len(t, result.Payload.Adapted.Activities, 1)

	// One prompt, conditioned on every selected student's support history.
	require.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	require.Contains(t, prompt, "Taller de lectura en voz alta")
	require.Contains(t, prompt, "Ana Lucía Torres")
	require.Contains(t, prompt, "Luis Felipe Rojas")
	require.Contains(t, prompt, "Mejorar atención sostenida")
	require.Contains(t, prompt, "Instrucciones por pasos")

	require.Len(t, runs.created, 1)
	run := runs.created[0]
	require.Equal(t, catalog.CapabilityAdaptiveContent, run.Capability)
	require.Equal(t, "p1", run.Provider)
	require.True(t, run.Success)
	require.False(t, run.Fallback)
	require.NotNil(t, run.UserID)
	require.Equal(t, userID, *run.UserID)
	require.Contains(t, string(run.StudentIDs), anaID.String())
	require.Contains(t, string(run.StudentIDs), luisID.String())
}

func TestGenerateSupportPlanWithoutPiarUsesEmptyContext(t *testing.T) {
	studentID := uuid.New()
	piar := &stubPiarService{entries: map[uuid.UUID]stubPiarEntry{}}
	svc, provider := newGenerationTestService(t, piar, &stubRunRepo{},
		`{"title":"Plan de apoyo","objectives":["Objetivo uno"]}`)

	result, err := svc.GenerateSupportPlan(context.Background(), SupportPlanRequest{
		StudentID: studentID,
		Role:      domain.RolePsychopedagogue,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Payload.SupportPlan)

	// A student without a PIAR is a valid, empty context.
	require.Len(t, provider.prompts, 1)
	require.Contains(t, provider.prompts[0], "(sin apoyos previos registrados)")
}

func TestGenerateSucceedsWhenAuditWriteFails(t *testing.T) {
	studentID := uuid.New()
	piar := &stubPiarService{entries: map[uuid.UUID]stubPiarEntry{}}
	runs := &stubRunRepo{createErr: errors.New("generation_runs is unavailable")}
	svc, _ := newGenerationTestService(t, piar, runs,
		`{"title":"Plan de apoyo","objectives":["Objetivo uno"]}`)

	result, err := svc.GenerateSupportPlan(context.Background(), SupportPlanRequest{
		StudentID: studentID,
		Role:      domain.RoleTeacher,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Payload.SupportPlan)
}

func TestGenerateRequestValidation(t *testing.T) {
	piar := &stubPiarService{entries: map[uuid.UUID]stubPiarEntry{}}
	svc, _ := newGenerationTestService(t, piar, &stubRunRepo{}, `{}`)
	ctx := context.Background()

	_, err := svc.GenerateSupportPlan(ctx, SupportPlanRequest{Role: domain.RoleTeacher})
	require.Error(t, err)

	_, err = svc.GenerateSupportPlan(ctx, SupportPlanRequest{StudentID: uuid.New(), Role: "principal"})
	require.Error(t, err)

	_, err = svc.GenerateAdaptedActivities(ctx, AdaptedActivitiesRequest{
		BaseActivity: "Taller",
		Role:         domain.RoleTeacher,
	})
	require.Error(t, err)
}
