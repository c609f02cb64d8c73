package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orienta-edu/orienta-backend/internal/engine"
	"github.com/orienta-edu/orienta-backend/internal/http/response"
	"github.com/orienta-edu/orienta-backend/internal/platform/ctxutil"
	"github.com/orienta-edu/orienta-backend/internal/services"
)

type GenerationHandler struct {
	gen services.GenerationService
}

func NewGenerationHandler(gen services.GenerationService) *GenerationHandler {
	return &GenerationHandler{gen: gen}
}

type supportPlanBody struct {
	StudentID uuid.UUID `json:"student_id" binding:"required"`
}

// POST /api/generation/support-plan
func (h *GenerationHandler) GenerateSupportPlan(c *gin.Context) {
	var body supportPlanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request identity"))
		return
	}

	result, err := h.gen.GenerateSupportPlan(c.Request.Context(), services.SupportPlanRequest{
		StudentID: body.StudentID,
		Role:      rd.Role,
	})
	if err != nil {
		respondGenerationError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": result})
}

type adaptedActivitiesBody struct {
	BaseActivity string      `json:"base_activity" binding:"required"`
	StudentIDs   []uuid.UUID `json:"student_ids" binding:"required,min=1"`
}

// POST /api/generation/adapted-activities
func (h *GenerationHandler) GenerateAdaptedActivities(c *gin.Context) {
	var body adaptedActivitiesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request identity"))
		return
	}

	result, err := h.gen.GenerateAdaptedActivities(c.Request.Context(), services.AdaptedActivitiesRequest{
		BaseActivity: body.BaseActivity,
		StudentIDs:   body.StudentIDs,
		Role:         rd.Role,
	})
	if err != nil {
		respondGenerationError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": result})
}

// GET /api/generation/providers
func (h *GenerationHandler) ProviderAvailability(c *gin.Context) {
	response.RespondOK(c, gin.H{"providers": h.gen.CheckProviderAvailability(c.Request.Context())})
}

// GET /api/generation/runs?limit=50 (coordination staff only)
func (h *GenerationHandler) ListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	runs, err := h.gen.ListRecentRuns(c.Request.Context(), limit)
	if err != nil {
		response.RespondAPIError(c, err, http.StatusInternalServerError, "list_runs_failed")
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

func respondGenerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrCapabilityDisabled):
		response.RespondError(c, http.StatusForbidden, "capability_disabled", err)
	case errors.Is(err, engine.ErrUnknownCapability):
		response.RespondError(c, http.StatusNotFound, "unknown_capability", err)
	default:
		response.RespondAPIError(c, err, http.StatusBadRequest, "generation_failed")
	}
}
