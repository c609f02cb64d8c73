package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GenerationRun is an audit row recorded per content-generation call:
// which capability ran, which provider answered, whether the mock
// fallback was used, and how long the whole chain took.
type GenerationRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Capability string         `gorm:"column:capability;not null;index" json:"capability"`
	Role       string         `gorm:"column:role;not null" json:"role"`
	Provider   string         `gorm:"column:provider;not null" json:"provider"`
	Fallback   bool           `gorm:"column:fallback;not null" json:"fallback"`
	Success    bool           `gorm:"column:success;not null" json:"success"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	LatencyMs  int64          `gorm:"column:latency_ms;not null" json:"latency_ms"`
	StudentIDs datatypes.JSON `gorm:"type:jsonb;column:student_ids" json:"student_ids,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (GenerationRun) TableName() string {
	return "generation_runs"
}

func (g *GenerationRun) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
