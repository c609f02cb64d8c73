package engine

import (
	"fmt"
	"strings"

	"github.com/orienta-edu/orienta-backend/internal/catalog"
)

// charsPerToken is the fixed approximation used to turn a provider's
// token budget into a character budget for context fields. It is an
// approximation, not a tokenizer.
const charsPerToken = 4

// minFieldBudget keeps pathological provider configs from truncating
// context fields into uselessness.
const minFieldBudget = 256

// PromptBuilder composes the final prompt from the capability's role
// template and the request context. Identifying fields (names, grades)
// are never truncated; free-text fields are bounded per provider.
type PromptBuilder struct {
	cat *catalog.Catalog
}

func NewPromptBuilder(cat *catalog.Catalog) *PromptBuilder {
	return &PromptBuilder{cat: cat}
}

func (b *PromptBuilder) Build(capabilityID string, gctx GenerationContext, maxTokens int) (string, error) {
	cc, ok := b.cat.Capability(capabilityID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCapability, capabilityID)
	}
	tmpl := cc.Template(gctx.Role)

	budget := maxTokens * charsPerToken
	if budget < minFieldBudget {
		budget = minFieldBudget
	}

	r := strings.NewReplacer(
		"{students}", studentsBlock(gctx.Students),
		"{diagnostics}", diagnosticsBlock(gctx.Students, budget),
		"{prior_support}", priorSupportBlock(gctx.PriorPlan, budget),
		"{base_activity}", truncate(strings.TrimSpace(gctx.BaseActivity), budget),
	)
	return strings.TrimSpace(r.Replace(tmpl)), nil
}

func studentsBlock(students []StudentProfile) string {
	if len(students) == 0 {
		return "(sin estudiantes seleccionados)"
	}
	var sb strings.Builder
	for _, s := range students {
		sb.WriteString("- ")
		sb.WriteString(s.Name)
		if s.Grade != "" {
			sb.WriteString(" (grado ")
			sb.WriteString(s.Grade)
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func diagnosticsBlock(students []StudentProfile, budget int) string {
	var sb strings.Builder
	for _, s := range students {
		summary := strings.TrimSpace(s.DiagnosticSummary)
		if summary == "" {
			summary = "(sin registro diagnóstico)"
		}
		sb.WriteString(s.Name)
		sb.WriteString(": ")
		sb.WriteString(truncate(summary, budget))
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "(sin registros diagnósticos)"
	}
	return strings.TrimRight(sb.String(), "\n")
}

func priorSupportBlock(prior *PlanFragments, budget int) string {
	if prior == nil {
		return "(sin apoyos previos registrados)"
	}
	var sections []string
	if len(prior.Objectives) > 0 {
		sections = append(sections, "Objetivos: "+truncate(strings.Join(prior.Objectives, "; "), budget))
	}
	if len(prior.Adaptations) > 0 {
		sections = append(sections, "Adaptaciones: "+truncate(strings.Join(prior.Adaptations, "; "), budget))
	}
	if len(prior.Resources) > 0 {
		sections = append(sections, "Recursos: "+truncate(strings.Join(prior.Resources, "; "), budget))
	}
	if len(prior.EvaluationCriteria) > 0 {
		sections = append(sections, "Criterios de evaluación: "+truncate(strings.Join(prior.EvaluationCriteria, "; "), budget))
	}
	if len(sections) == 0 {
		return "(sin apoyos previos registrados)"
	}
	return strings.Join(sections, "\n")
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
