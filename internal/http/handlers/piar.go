package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/http/response"
	"github.com/orienta-edu/orienta-backend/internal/services"
)

type PiarHandler struct {
	piar services.PiarService
}

func NewPiarHandler(piar services.PiarService) *PiarHandler {
	return &PiarHandler{piar: piar}
}

// GET /api/piar/:studentId
func (h *PiarHandler) GetByStudent(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	rec, err := h.piar.GetPiarByStudentID(c.Request.Context(), studentID)
	if err != nil {
		response.RespondAPIError(c, err, http.StatusBadRequest, "piar_lookup_failed")
		return
	}
	if rec == nil {
		response.RespondError(c, http.StatusNotFound, "piar_not_found", fmt.Errorf("no piar record for student %s", studentID))
		return
	}
	response.RespondOK(c, gin.H{"piar": rec})
}

type savePiarBody struct {
	StudentID          uuid.UUID      `json:"student_id" binding:"required"`
	StudentName        string         `json:"student_name" binding:"required"`
	Grade              string         `json:"grade"`
	DiagnosticSummary  string         `json:"diagnostic_summary"`
	Objectives         datatypes.JSON `json:"objectives"`
	Adaptations        datatypes.JSON `json:"adaptations"`
	Resources          datatypes.JSON `json:"resources"`
	EvaluationCriteria datatypes.JSON `json:"evaluation_criteria"`
}

// PUT /api/piar
func (h *PiarHandler) Save(c *gin.Context) {
	var body savePiarBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rec := &domain.PiarRecord{
		StudentID:          body.StudentID,
		StudentName:        body.StudentName,
		Grade:              body.Grade,
		DiagnosticSummary:  body.DiagnosticSummary,
		Objectives:         body.Objectives,
		Adaptations:        body.Adaptations,
		Resources:          body.Resources,
		EvaluationCriteria: body.EvaluationCriteria,
	}
	if err := h.piar.SavePiar(c.Request.Context(), rec); err != nil {
		response.RespondAPIError(c, err, http.StatusBadRequest, "piar_save_failed")
		return
	}
	response.RespondOK(c, gin.H{"piar": rec})
}
