package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Communication statuses. Transitions only move forward; a row is never
// deleted, only superseded by a newer row carrying the same plan id.
const (
	CommStatusPending      = "pending"
	CommStatusSent         = "sent"
	CommStatusAcknowledged = "acknowledged"
	CommStatusImplemented  = "implemented"
	CommStatusReviewed     = "reviewed"
)

const (
	CommPriorityLow    = "low"
	CommPriorityMedium = "medium"
	CommPriorityHigh   = "high"
	CommPriorityUrgent = "urgent"
)

const (
	CommTypeSupportPlan = "support_plan"
	CommTypeAlert       = "alert"
	CommTypeGeneral     = "general"
)

var commStatusRank = map[string]int{
	CommStatusPending:      0,
	CommStatusSent:         1,
	CommStatusAcknowledged: 2,
	CommStatusImplemented:  3,
	CommStatusReviewed:     4,
}

// CommStatusRank returns the position of a status in the lifecycle,
// or -1 for an unknown status.
func CommStatusRank(status string) int {
	r, ok := commStatusRank[status]
	if !ok {
		return -1
	}
	return r
}

type Communication struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Type          string         `gorm:"column:type;not null;index" json:"type"`
	SenderRole    string         `gorm:"column:sender_role;not null" json:"sender_role"`
	SenderID      *uuid.UUID     `gorm:"type:uuid;index" json:"sender_id,omitempty"`
	RecipientRole string         `gorm:"column:recipient_role;not null" json:"recipient_role"`
	RecipientID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Subject       string         `gorm:"column:subject;not null" json:"subject"`
	Content       string         `gorm:"column:content;not null" json:"content"`
	Priority      string         `gorm:"column:priority;not null;default:'medium'" json:"priority"`
	Status        string         `gorm:"column:status;not null;default:'pending';index" json:"status"`
	PlanID        *uuid.UUID     `gorm:"type:uuid;index" json:"plan_id,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Communication) TableName() string {
	return "communications"
}

// BeforeCreate assigns the id when the caller left it unset, so inserts
// do not depend on a database-side uuid default.
func (c *Communication) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
