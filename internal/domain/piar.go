package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PiarRecord is a student's individualized accommodation record (PIAR).
// It is read-only input for content generation; a student without one is
// a valid, empty context.
type PiarRecord struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	StudentName        string         `gorm:"column:student_name;not null" json:"student_name"`
	Grade              string         `gorm:"column:grade" json:"grade"`
	DiagnosticSummary  string         `gorm:"column:diagnostic_summary" json:"diagnostic_summary"`
	Objectives         datatypes.JSON `gorm:"type:jsonb;column:objectives" json:"objectives,omitempty"`
	Adaptations        datatypes.JSON `gorm:"type:jsonb;column:adaptations" json:"adaptations,omitempty"`
	Resources          datatypes.JSON `gorm:"type:jsonb;column:resources" json:"resources,omitempty"`
	EvaluationCriteria datatypes.JSON `gorm:"type:jsonb;column:evaluation_criteria" json:"evaluation_criteria,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PiarRecord) TableName() string {
	return "piar_records"
}

func (p *PiarRecord) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
