package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type CommunicationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.Communication) error

	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Communication, error)
	ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) ([]*domain.Communication, error)
	ListByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) ([]*domain.Communication, error)

	// AdvanceStatus moves a communication from exactly `from` to `to`.
	// It reports false when the row was not in `from` anymore, which is
	// how concurrent transitions are serialized (compare-and-set).
	AdvanceStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error)
}

type communicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommunicationRepo(db *gorm.DB, baseLog *logger.Logger) CommunicationRepo {
	return &communicationRepo{db: db, log: baseLog.With("repo", "CommunicationRepo")}
}

func (r *communicationRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.Communication) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *communicationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Communication, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Communication
	if err := t.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *communicationRepo) ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) ([]*domain.Communication, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Communication
	if err := t.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *communicationRepo) ListByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) ([]*domain.Communication, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Communication
	if err := t.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *communicationRepo) AdvanceStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(ctx).
		Model(&domain.Communication{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
