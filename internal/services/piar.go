package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orienta-edu/orienta-backend/internal/clients/redis"
	"github.com/orienta-edu/orienta-backend/internal/data/repos"
	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/engine"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

// PiarService supplies per-student diagnostic context to the generation
// engine. A student without a PIAR yields an empty profile, not an error.
type PiarService interface {
	GetPiarByStudentID(ctx context.Context, studentID uuid.UUID) (*domain.PiarRecord, error)

	// GetPiarForActivityGeneration maps a PIAR row onto the fragments
	// the prompt builder embeds so adapted activities can condition on
	// prior support content.
	GetPiarForActivityGeneration(ctx context.Context, studentID uuid.UUID) (engine.StudentProfile, *engine.PlanFragments, error)

	SavePiar(ctx context.Context, rec *domain.PiarRecord) error
}

type piarService struct {
	db    *gorm.DB
	log   *logger.Logger
	piars repos.PiarRepo
	cache redis.PiarCache
}

// NewPiarService accepts a nil cache; everything then reads straight
// from the database.
func NewPiarService(db *gorm.DB, log *logger.Logger, piars repos.PiarRepo, cache redis.PiarCache) PiarService {
	return &piarService{
		db:    db,
		log:   log.With("service", "PiarService"),
		piars: piars,
		cache: cache,
	}
}

func (s *piarService) GetPiarByStudentID(ctx context.Context, studentID uuid.UUID) (*domain.PiarRecord, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("student id required")
	}
	if s.cache != nil {
		if rec, ok := s.cache.Get(ctx, studentID); ok {
			return rec, nil
		}
	}
	rec, err := s.piars.GetByStudentID(ctx, nil, studentID)
	if err != nil {
		return nil, err
	}
	if rec != nil && s.cache != nil {
		s.cache.Set(ctx, rec)
	}
	return rec, nil
}

func (s *piarService) GetPiarForActivityGeneration(ctx context.Context, studentID uuid.UUID) (engine.StudentProfile, *engine.PlanFragments, error) {
	rec, err := s.GetPiarByStudentID(ctx, studentID)
	if err != nil {
		return engine.StudentProfile{}, nil, err
	}
	if rec == nil {
		return engine.StudentProfile{ID: studentID}, nil, nil
	}

	profile := engine.StudentProfile{
		ID:                rec.StudentID,
		Name:              rec.StudentName,
		Grade:             rec.Grade,
		DiagnosticSummary: rec.DiagnosticSummary,
	}
	frags := &engine.PlanFragments{
		Objectives:         decodeStrings([]byte(rec.Objectives)),
		Adaptations:        decodeStrings([]byte(rec.Adaptations)),
		Resources:          decodeStrings([]byte(rec.Resources)),
		EvaluationCriteria: decodeStrings([]byte(rec.EvaluationCriteria)),
	}
	if len(frags.Objectives) == 0 && len(frags.Adaptations) == 0 &&
		len(frags.Resources) == 0 && len(frags.EvaluationCriteria) == 0 {
		frags = nil
	}
	return profile, frags, nil
}

func (s *piarService) SavePiar(ctx context.Context, rec *domain.PiarRecord) error {
	if rec == nil || rec.StudentID == uuid.Nil {
		return fmt.Errorf("piar record with student id required")
	}
	if err := s.piars.Upsert(ctx, nil, rec); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, rec.StudentID)
	}
	return nil
}

func decodeStrings(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
