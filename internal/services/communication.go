package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/orienta-edu/orienta-backend/internal/data/repos"
	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/engine"
	"github.com/orienta-edu/orienta-backend/internal/platform/apierr"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type DeliverPlanRequest struct {
	Plan          *engine.GenerationResult
	PlanID        uuid.UUID
	SenderRole    string
	SenderID      *uuid.UUID
	RecipientRole string
	RecipientID   uuid.UUID
}

// CommunicationService turns generated support plans into deliverable
// messages and drives each communication through its lifecycle:
// pending -> sent -> acknowledged -> implemented -> reviewed. Transitions
// only move forward, one step at a time; repeating a transition the row
// already passed is a no-op.
type CommunicationService interface {
	DeliverSupportPlan(ctx context.Context, req DeliverPlanRequest) (*domain.Communication, error)

	// Send promotes a pending draft to sent. DeliverSupportPlan creates
	// rows already sent, so this only applies to externally seeded drafts.
	Send(ctx context.Context, id uuid.UUID) (string, error)
	Acknowledge(ctx context.Context, id uuid.UUID) (string, error)
	MarkImplemented(ctx context.Context, id uuid.UUID) (string, error)
	MarkReviewed(ctx context.Context, id uuid.UUID) (string, error)

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Communication, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Communication, error)
	ListByPlanID(ctx context.Context, planID uuid.UUID) ([]*domain.Communication, error)
}

type communicationService struct {
	db    *gorm.DB
	log   *logger.Logger
	comms repos.CommunicationRepo
}

func NewCommunicationService(db *gorm.DB, log *logger.Logger, comms repos.CommunicationRepo) CommunicationService {
	return &communicationService{
		db:    db,
		log:   log.With("service", "CommunicationService"),
		comms: comms,
	}
}

func (s *communicationService) DeliverSupportPlan(ctx context.Context, req DeliverPlanRequest) (*domain.Communication, error) {
	if req.Plan == nil || req.Plan.Payload.SupportPlan == nil {
		return nil, apierr.New(http.StatusBadRequest, "missing_plan", fmt.Errorf("generation result with a support plan is required"))
	}
	if req.RecipientID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, "missing_recipient", fmt.Errorf("recipient id is required"))
	}
	if !domain.ValidRole(req.SenderRole) || !domain.ValidRole(req.RecipientRole) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_role", fmt.Errorf("sender and recipient roles must be valid"))
	}

	plan := req.Plan.Payload.SupportPlan
	row := &domain.Communication{
		Type:          domain.CommTypeSupportPlan,
		SenderRole:    req.SenderRole,
		SenderID:      req.SenderID,
		RecipientRole: req.RecipientRole,
		RecipientID:   req.RecipientID,
		Subject:       planSubject(plan),
		Content:       formatPlanMessage(plan, req.Plan),
		Priority:      planPriority(plan),
		Status:        domain.CommStatusSent,
	}
	if req.PlanID != uuid.Nil {
		id := req.PlanID
		row.PlanID = &id
	}
	meta := map[string]interface{}{
		"provider":       req.Plan.Provider,
		"degraded":       req.Plan.Degraded(),
		"activity_count": len(plan.Activities),
		"timeline":       plan.Timeline,
	}
	if raw, err := json.Marshal(meta); err == nil {
		row.Metadata = datatypes.JSON(raw)
	}

	if err := s.comms.Create(ctx, nil, row); err != nil {
		return nil, err
	}
	s.log.Info("support plan delivered",
		"communication_id", row.ID,
		"recipient_role", req.RecipientRole,
		"priority", row.Priority,
	)
	return row, nil
}

func (s *communicationService) Send(ctx context.Context, id uuid.UUID) (string, error) {
	return s.advance(ctx, id, domain.CommStatusSent)
}

func (s *communicationService) Acknowledge(ctx context.Context, id uuid.UUID) (string, error) {
	return s.advance(ctx, id, domain.CommStatusAcknowledged)
}

func (s *communicationService) MarkImplemented(ctx context.Context, id uuid.UUID) (string, error) {
	return s.advance(ctx, id, domain.CommStatusImplemented)
}

func (s *communicationService) MarkReviewed(ctx context.Context, id uuid.UUID) (string, error) {
	return s.advance(ctx, id, domain.CommStatusReviewed)
}

func (s *communicationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Communication, error) {
	row, err := s.comms.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.New(http.StatusNotFound, "communication_not_found", fmt.Errorf("communication %s not found", id))
	}
	return row, nil
}

func (s *communicationService) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Communication, error) {
	return s.comms.ListByRecipient(ctx, nil, recipientID)
}

func (s *communicationService) ListByPlanID(ctx context.Context, planID uuid.UUID) ([]*domain.Communication, error) {
	return s.comms.ListByPlanID(ctx, nil, planID)
}

// advance moves a communication one step forward to target. The write is
// a compare-and-set on the current status, so two concurrent callers
// racing the same step resolve to exactly one database update.
func (s *communicationService) advance(ctx context.Context, id uuid.UUID, target string) (string, error) {
	targetRank := domain.CommStatusRank(target)

	for attempt := 0; attempt < 2; attempt++ {
		row, err := s.comms.GetByID(ctx, nil, id)
		if err != nil {
			return "", err
		}
		if row == nil {
			return "", apierr.New(http.StatusNotFound, "communication_not_found", fmt.Errorf("communication %s not found", id))
		}

		currentRank := domain.CommStatusRank(row.Status)
		if currentRank < 0 {
			return "", apierr.New(http.StatusConflict, "unknown_status", fmt.Errorf("communication %s has unknown status %q", id, row.Status))
		}
		// Already at or past the target: repeating the call is a no-op.
		if currentRank >= targetRank {
			return row.Status, nil
		}
		if currentRank != targetRank-1 {
			return "", apierr.New(http.StatusConflict, "invalid_transition",
				fmt.Errorf("communication %s is %q, cannot move to %q", id, row.Status, target))
		}

		ok, err := s.comms.AdvanceStatus(ctx, nil, id, row.Status, target)
		if err != nil {
			return "", err
		}
		if ok {
			return target, nil
		}
		// Lost the race; re-read and re-evaluate once.
	}
	return "", apierr.New(http.StatusConflict, "transition_conflict",
		fmt.Errorf("communication %s changed concurrently, transition to %q not applied", id, target))
}

func planSubject(plan *engine.SupportPlan) string {
	if strings.TrimSpace(plan.Title) != "" {
		return plan.Title
	}
	return "Plan de apoyo individualizado"
}

// planPriority derives message priority from the count of high-priority
// needs. A support plan is never delivered as low priority.
func planPriority(plan *engine.SupportPlan) string {
	high := 0
	for _, n := range plan.PriorityNeeds {
		if n.Priority == domain.CommPriorityHigh {
			high++
		}
	}
	switch {
	case high >= 2:
		return domain.CommPriorityUrgent
	case high >= 1:
		return domain.CommPriorityHigh
	default:
		return domain.CommPriorityMedium
	}
}

func formatPlanMessage(plan *engine.SupportPlan, result *engine.GenerationResult) string {
	var b strings.Builder

	b.WriteString(planSubject(plan))
	b.WriteString("\n\n")

	if len(plan.Objectives) > 0 {
		b.WriteString("Objetivos del plan:\n")
		writeBullets(&b, plan.Objectives)
	}
	if len(plan.PriorityNeeds) > 0 {
		b.WriteString("Necesidades prioritarias:\n")
		for _, n := range plan.PriorityNeeds {
			fmt.Fprintf(&b, "- %s (prioridad %s)\n", n.Need, n.Priority)
		}
		b.WriteString("\n")
	}
	if len(plan.Strengths) > 0 {
		b.WriteString("Fortalezas identificadas:\n")
		writeBullets(&b, plan.Strengths)
	}
	if len(plan.Strategies) > 0 {
		b.WriteString("Estrategias de apoyo:\n")
		writeBullets(&b, plan.Strategies)
	}
	if len(plan.Activities) > 0 {
		b.WriteString("Actividades sugeridas:\n")
		for _, a := range plan.Activities {
			fmt.Fprintf(&b, "- %s: %s\n", a.Title, a.Description)
			if a.Duration != "" || a.Difficulty != "" {
				fmt.Fprintf(&b, "  Duración: %s | Dificultad: %s\n", a.Duration, a.Difficulty)
			}
			if len(a.Materials) > 0 {
				fmt.Fprintf(&b, "  Materiales: %s\n", strings.Join(a.Materials, ", "))
			}
		}
		b.WriteString("\n")
	}
	if plan.Timeline != "" {
		fmt.Fprintf(&b, "Cronograma de implementación: %s\n\n", plan.Timeline)
	}
	if len(plan.Resources) > 0 {
		b.WriteString("Recursos recomendados:\n")
		writeBullets(&b, plan.Resources)
	}

	fmt.Fprintf(&b, "Generado el %s.", result.GeneratedAt.Format("02/01/2006 15:04"))
	if result.Degraded() {
		b.WriteString(" Contenido de referencia generado sin asistencia de IA; revíselo con el equipo de orientación.")
	}
	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
