package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orienta-edu/orienta-backend/internal/engine"
	"github.com/orienta-edu/orienta-backend/internal/http/response"
	"github.com/orienta-edu/orienta-backend/internal/platform/ctxutil"
	"github.com/orienta-edu/orienta-backend/internal/services"
)

type CommunicationHandler struct {
	comms services.CommunicationService
}

func NewCommunicationHandler(comms services.CommunicationService) *CommunicationHandler {
	return &CommunicationHandler{comms: comms}
}

type deliverPlanBody struct {
	Plan          *engine.GenerationResult `json:"plan" binding:"required"`
	PlanID        uuid.UUID                `json:"plan_id"`
	RecipientRole string                   `json:"recipient_role" binding:"required"`
	RecipientID   uuid.UUID                `json:"recipient_id" binding:"required"`
}

// POST /api/communications
func (h *CommunicationHandler) Deliver(c *gin.Context) {
	var body deliverPlanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request identity"))
		return
	}

	senderID := rd.UserID
	row, err := h.comms.DeliverSupportPlan(c.Request.Context(), services.DeliverPlanRequest{
		Plan:          body.Plan,
		PlanID:        body.PlanID,
		SenderRole:    rd.Role,
		SenderID:      &senderID,
		RecipientRole: body.RecipientRole,
		RecipientID:   body.RecipientID,
	})
	if err != nil {
		response.RespondAPIError(c, err, http.StatusBadRequest, "deliver_failed")
		return
	}
	response.RespondCreated(c, gin.H{"communication": row})
}

// POST /api/communications/:id/acknowledge
func (h *CommunicationHandler) Acknowledge(c *gin.Context) {
	h.transition(c, h.comms.Acknowledge)
}

// POST /api/communications/:id/implement
func (h *CommunicationHandler) MarkImplemented(c *gin.Context) {
	h.transition(c, h.comms.MarkImplemented)
}

// POST /api/communications/:id/review
func (h *CommunicationHandler) MarkReviewed(c *gin.Context) {
	h.transition(c, h.comms.MarkReviewed)
}

// GET /api/communications
func (h *CommunicationHandler) List(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request identity"))
		return
	}
	if planID, err := uuid.Parse(c.Query("plan_id")); err == nil && planID != uuid.Nil {
		rows, err := h.comms.ListByPlanID(c.Request.Context(), planID)
		if err != nil {
			response.RespondAPIError(c, err, http.StatusBadRequest, "list_failed")
			return
		}
		response.RespondOK(c, gin.H{"communications": rows})
		return
	}
	rows, err := h.comms.ListByRecipient(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err, http.StatusBadRequest, "list_failed")
		return
	}
	response.RespondOK(c, gin.H{"communications": rows})
}

// GET /api/communications/:id
func (h *CommunicationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_communication_id", err)
		return
	}
	row, err := h.comms.GetByID(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, http.StatusNotFound, "communication_not_found")
		return
	}
	response.RespondOK(c, gin.H{"communication": row})
}

func (h *CommunicationHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (string, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_communication_id", err)
		return
	}
	status, err := fn(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, http.StatusConflict, "transition_failed")
		return
	}
	response.RespondOK(c, gin.H{"id": id, "status": status})
}
