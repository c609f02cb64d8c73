package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type GenerationRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.GenerationRun) error
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.GenerationRun, error)
}

type generationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRunRepo {
	return &generationRunRepo{db: db, log: baseLog.With("repo", "GenerationRunRepo")}
}

func (r *generationRunRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.GenerationRun) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *generationRunRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.GenerationRun, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.GenerationRun
	if err := t.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
