package engine

import "github.com/google/uuid"

// StudentProfile is the per-student slice of generation context. It is
// supplied by the caller and read-only to the engine.
type StudentProfile struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Grade             string    `json:"grade"`
	DiagnosticSummary string    `json:"diagnostic_summary"`
}

// PlanFragments carries prior PIAR-derived support content so a second
// invocation can condition on an earlier result.
type PlanFragments struct {
	Objectives         []string `json:"objectives"`
	Adaptations        []string `json:"adaptations"`
	Resources          []string `json:"resources"`
	EvaluationCriteria []string `json:"evaluation_criteria"`
}

// GenerationContext is ephemeral, request-scoped input. The engine never
// persists it.
type GenerationContext struct {
	Role         string
	Students     []StudentProfile
	PriorPlan    *PlanFragments
	BaseActivity string
}
