package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type PiarRepo interface {
	// GetByStudentID returns nil, nil when the student has no PIAR;
	// that is a valid empty generation context, not an error.
	GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) (*domain.PiarRecord, error)
	ListByStudentIDs(ctx context.Context, tx *gorm.DB, studentIDs []uuid.UUID) ([]*domain.PiarRecord, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *domain.PiarRecord) error
}

type piarRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPiarRepo(db *gorm.DB, baseLog *logger.Logger) PiarRepo {
	return &piarRepo{db: db, log: baseLog.With("repo", "PiarRepo")}
}

func (r *piarRepo) GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) (*domain.PiarRecord, error) {
	if studentID == uuid.Nil {
		return nil, nil
	}
	rows, err := r.ListByStudentIDs(ctx, tx, []uuid.UUID{studentID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *piarRepo) ListByStudentIDs(ctx context.Context, tx *gorm.DB, studentIDs []uuid.UUID) ([]*domain.PiarRecord, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.PiarRecord
	if len(studentIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("student_id IN ?", studentIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *piarRepo) Upsert(ctx context.Context, tx *gorm.DB, row *domain.PiarRecord) error {
	t := tx
	if t == nil {
		t = r.db
	}
	existing, err := r.GetByStudentID(ctx, tx, row.StudentID)
	if err != nil {
		return err
	}
	if existing == nil {
		return t.WithContext(ctx).Create(row).Error
	}
	row.ID = existing.ID
	return t.WithContext(ctx).Save(row).Error
}
