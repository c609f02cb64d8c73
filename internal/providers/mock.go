package providers

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/orienta-edu/orienta-backend/internal/catalog"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

// MockProviderID tags results produced by the terminal fallback.
const MockProviderID = "mock"

// MockContext is the minimal slice of generation context the mock
// generator interpolates into its canned payloads.
type MockContext struct {
	StudentNames []string
	Grades       []string
	BaseActivity string
}

// MockGenerator returns structurally valid, non-intelligent content for
// every capability. It is the terminal step of the fallback chain and has
// no failure mode: its output always parses and always normalizes.
type MockGenerator struct {
	log *logger.Logger

	// simulateLatency adds a small random delay in development so the UI
	// exercises its loading states.
	simulateLatency bool
}

func NewMockGenerator(log *logger.Logger, simulateLatency bool) *MockGenerator {
	return &MockGenerator{
		log:             log.With("provider", MockProviderID),
		simulateLatency: simulateLatency,
	}
}

func (g *MockGenerator) Generate(capability string, mc MockContext) string {
	if g.simulateLatency {
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
	}

	student := "el estudiante"
	if len(mc.StudentNames) > 0 && strings.TrimSpace(mc.StudentNames[0]) != "" {
		student = mc.StudentNames[0]
	}

	var payload any
	switch capability {
	case catalog.CapabilitySupportPlan:
		payload = map[string]any{
			"title":      fmt.Sprintf("Plan de apoyo para %s", student),
			"objectives": []string{"Fortalecer la comprensión lectora", "Mejorar la autorregulación en el aula"},
			"strategies": []string{"Instrucciones segmentadas paso a paso", "Apoyos visuales en cada actividad"},
			"priority_needs": []map[string]string{
				{"need": "Acompañamiento en lectura", "priority": "medium"},
			},
			"strengths": []string{"Buena disposición al trabajo en grupo"},
			"activities": []map[string]any{
				{
					"title":       "Lectura guiada",
					"description": "Sesión corta de lectura acompañada con preguntas de verificación.",
					"duration":    "20 minutos",
					"difficulty":  "básico",
					"materials":   []string{"Texto corto ilustrado"},
				},
			},
			"timeline":            "4 semanas",
			"resources":           []string{"Fichas de lectura", "Material visual de apoyo"},
			"evaluation_criteria": []string{"Avance en comprensión de textos cortos"},
		}
	case catalog.CapabilityPredictiveAlerts:
		alerts := make([]map[string]any, 0, len(mc.StudentNames))
		for _, name := range mc.StudentNames {
			alerts = append(alerts, map[string]any{
				"student_name":   name,
				"risk":           "Posible rezago en lectoescritura",
				"priority":       "medium",
				"indicators":     []string{"Entregas incompletas", "Baja participación"},
				"recommendation": "Programar seguimiento individual con el docente de aula.",
			})
		}
		if len(alerts) == 0 {
			alerts = append(alerts, map[string]any{
				"student_name":   student,
				"risk":           "Sin datos suficientes",
				"priority":       "low",
				"indicators":     []string{},
				"recommendation": "Registrar más información diagnóstica.",
			})
		}
		payload = map[string]any{"alerts": alerts}
	case catalog.CapabilityPersonalizedTasks:
		payload = map[string]any{
			"tasks": []map[string]any{
				{
					"title":             fmt.Sprintf("Tarea de refuerzo para %s", student),
					"description":       "Ejercicio corto de repaso con apoyo visual.",
					"subject":           "Lenguaje",
					"difficulty":        "básico",
					"estimated_minutes": 20,
				},
			},
		}
	case catalog.CapabilityLearningAnalysis:
		payload = map[string]any{
			"summary":         fmt.Sprintf("Perfil preliminar de %s generado sin proveedor externo.", student),
			"learning_style":  "visual",
			"barriers":        []string{"Periodos de atención cortos"},
			"recommendations": []string{"Actividades breves con pausas activas"},
			"resources":       []string{"Pictogramas", "Organizadores gráficos"},
		}
	case catalog.CapabilityRoleAssistance:
		payload = map[string]any{
			"answer":      "No hay un proveedor de IA disponible en este momento; esta es una guía general.",
			"suggestions": []string{"Consultar el PIAR del estudiante", "Coordinar con psicopedagogía"},
		}
	case catalog.CapabilityAdaptiveContent:
		base := strings.TrimSpace(mc.BaseActivity)
		if base == "" {
			base = "Actividad de clase"
		}
		payload = map[string]any{
			"activities": []map[string]any{
				{
					"title":       fmt.Sprintf("%s (adaptada para %s)", base, student),
					"description": "Versión simplificada con instrucciones segmentadas y apoyo visual.",
					"duration":    "30 minutos",
					"difficulty":  "básico",
					"materials":   []string{"Guía impresa", "Material visual"},
				},
			},
			"resources": []string{"Apoyo visual", "Acompañamiento docente"},
		}
	default:
		payload = map[string]any{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		// Canned payloads are always marshalable; this only guards
		// against future edits breaking the invariant.
		g.log.Error("mock payload marshal failed", "capability", capability, "error", err)
		return "{}"
	}
	return string(raw)
}
