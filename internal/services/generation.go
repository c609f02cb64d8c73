package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/orienta-edu/orienta-backend/internal/catalog"
	"github.com/orienta-edu/orienta-backend/internal/data/repos"
	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/engine"
	"github.com/orienta-edu/orienta-backend/internal/platform/ctxutil"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type SupportPlanRequest struct {
	StudentID uuid.UUID
	Role      string
}

type AdaptedActivitiesRequest struct {
	BaseActivity string
	StudentIDs   []uuid.UUID
	Role         string
}

// GenerationService is the inbound facade over the generation engine.
// It assembles GenerationContext from PIAR data, dispatches, and records
// an audit row per call.
type GenerationService interface {
	GenerateSupportPlan(ctx context.Context, req SupportPlanRequest) (*engine.GenerationResult, error)
	GenerateAdaptedActivities(ctx context.Context, req AdaptedActivitiesRequest) (*engine.GenerationResult, error)

	// CheckProviderAvailability backs the status indicator. It probes
	// (respecting the cache) but never generates content.
	CheckProviderAvailability(ctx context.Context) map[string]engine.AvailabilityRecord

	// ListRecentRuns exposes the audit trail for coordination staff.
	ListRecentRuns(ctx context.Context, limit int) ([]*domain.GenerationRun, error)
}

type generationService struct {
	db         *gorm.DB
	log        *logger.Logger
	dispatcher *engine.Dispatcher
	piar       PiarService
	runs       repos.GenerationRunRepo
}

func NewGenerationService(
	db *gorm.DB,
	log *logger.Logger,
	dispatcher *engine.Dispatcher,
	piar PiarService,
	runs repos.GenerationRunRepo,
) GenerationService {
	return &generationService{
		db:         db,
		log:        log.With("service", "GenerationService"),
		dispatcher: dispatcher,
		piar:       piar,
		runs:       runs,
	}
}

func (s *generationService) GenerateSupportPlan(ctx context.Context, req SupportPlanRequest) (*engine.GenerationResult, error) {
	if req.StudentID == uuid.Nil {
		return nil, fmt.Errorf("student id required")
	}
	if !domain.ValidRole(req.Role) {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}

	profile, frags, err := s.piar.GetPiarForActivityGeneration(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	gctx := engine.GenerationContext{
		Role:      req.Role,
		Students:  []engine.StudentProfile{profile},
		PriorPlan: frags,
	}

	return s.dispatch(ctx, catalog.CapabilitySupportPlan, gctx, []uuid.UUID{req.StudentID})
}

func (s *generationService) GenerateAdaptedActivities(ctx context.Context, req AdaptedActivitiesRequest) (*engine.GenerationResult, error) {
	if len(req.StudentIDs) == 0 {
		return nil, fmt.Errorf("at least one student required")
	}
	if !domain.ValidRole(req.Role) {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}

	gctx := engine.GenerationContext{
		Role:         req.Role,
		BaseActivity: req.BaseActivity,
	}
	// Prior plan fragments from each student's PIAR are merged so the
	// adaptation conditions on every selected student's support history.
	merged := &engine.PlanFragments{}
	for _, id := range req.StudentIDs {
		profile, frags, err := s.piar.GetPiarForActivityGeneration(ctx, id)
		if err != nil {
			return nil, err
		}
		gctx.Students = append(gctx.Students, profile)
		if frags != nil {
			merged.Objectives = append(merged.Objectives, frags.Objectives...)
			merged.Adaptations = append(merged.Adaptations, frags.Adaptations...)
			merged.Resources = append(merged.Resources, frags.Resources...)
			merged.EvaluationCriteria = append(merged.EvaluationCriteria, frags.EvaluationCriteria...)
		}
	}
	if len(merged.Objectives)+len(merged.Adaptations)+len(merged.Resources)+len(merged.EvaluationCriteria) > 0 {
		gctx.PriorPlan = merged
	}

	return s.dispatch(ctx, catalog.CapabilityAdaptiveContent, gctx, req.StudentIDs)
}

func (s *generationService) CheckProviderAvailability(ctx context.Context) map[string]engine.AvailabilityRecord {
	return s.dispatcher.CheckAvailability(ctx)
}

func (s *generationService) ListRecentRuns(ctx context.Context, limit int) ([]*domain.GenerationRun, error) {
	return s.runs.ListRecent(ctx, nil, limit)
}

func (s *generationService) dispatch(ctx context.Context, capabilityID string, gctx engine.GenerationContext, studentIDs []uuid.UUID) (*engine.GenerationResult, error) {
	started := time.Now()
	result, err := s.dispatcher.Generate(ctx, capabilityID, gctx)
	s.recordRun(ctx, capabilityID, gctx.Role, studentIDs, result, err, time.Since(started))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recordRun is best-effort: an audit failure is logged, never surfaced.
func (s *generationService) recordRun(ctx context.Context, capabilityID, role string, studentIDs []uuid.UUID, result *engine.GenerationResult, genErr error, latency time.Duration) {
	row := &domain.GenerationRun{
		Capability: capabilityID,
		Role:       role,
		LatencyMs:  latency.Milliseconds(),
		Success:    genErr == nil,
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		id := rd.UserID
		row.UserID = &id
	}
	if result != nil {
		row.Provider = result.Provider
		row.Fallback = result.Degraded()
	}
	if genErr != nil {
		row.Error = genErr.Error()
	}
	if raw, err := json.Marshal(studentIDs); err == nil {
		row.StudentIDs = datatypes.JSON(raw)
	}
	if err := s.runs.Create(ctx, nil, row); err != nil {
		s.log.Warn("failed to record generation run", "capability", capabilityID, "error", err)
	}
}
