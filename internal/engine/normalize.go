package engine

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/orienta-edu/orienta-backend/internal/catalog"
	"github.com/orienta-edu/orienta-backend/internal/domain"
)

// fallbackArrayLimit bounds arrays whose capability leaves the limit
// unset in the catalog.
const fallbackArrayLimit = 10

// Normalizer turns raw provider text into the capability's target shape.
// Its guarantees: output is never nil, every expected key is present,
// arrays are truncated head-first to the catalog limits, and enum fields
// are clamped to their documented values. A parse failure is reported as
// a NormalizationError so the dispatcher can retry or fall back.
type Normalizer struct {
	cat *catalog.Catalog
}

func NewNormalizer(cat *catalog.Catalog) *Normalizer {
	return &Normalizer{cat: cat}
}

func (n *Normalizer) Normalize(capabilityID, raw string) (Payload, error) {
	cc, ok := n.cat.Capability(capabilityID)
	if !ok {
		return Payload{}, &NormalizationError{Capability: capabilityID, Err: ErrUnknownCapability}
	}

	doc, err := extractJSON(raw)
	if err != nil {
		return Payload{}, &NormalizationError{Capability: capabilityID, Err: err}
	}

	switch capabilityID {
	case catalog.CapabilitySupportPlan:
		return n.normalizeSupportPlan(cc, doc)
	case catalog.CapabilityPredictiveAlerts:
		return n.normalizeAlerts(cc, doc)
	case catalog.CapabilityPersonalizedTasks:
		return n.normalizeTasks(cc, doc)
	case catalog.CapabilityLearningAnalysis:
		return n.normalizeAnalysis(cc, doc)
	case catalog.CapabilityRoleAssistance:
		return n.normalizeAssistance(doc)
	case catalog.CapabilityAdaptiveContent:
		return n.normalizeAdapted(cc, doc)
	}
	return Payload{}, &NormalizationError{Capability: capabilityID, Err: ErrUnknownCapability}
}

// Empty returns the minimal valid payload for a capability. It backs the
// never-nil contract when there is nothing better to return.
func (n *Normalizer) Empty(capabilityID string) Payload {
	switch capabilityID {
	case catalog.CapabilitySupportPlan:
		return Payload{SupportPlan: emptySupportPlan()}
	case catalog.CapabilityPredictiveAlerts:
		return Payload{Alerts: []Alert{}}
	case catalog.CapabilityPersonalizedTasks:
		return Payload{Tasks: []Task{}}
	case catalog.CapabilityLearningAnalysis:
		return Payload{Analysis: &LearningAnalysis{Barriers: []string{}, Recommendations: []string{}, Resources: []string{}}}
	case catalog.CapabilityRoleAssistance:
		return Payload{Assistance: &RoleAssistance{Suggestions: []string{}}}
	case catalog.CapabilityAdaptiveContent:
		return Payload{Adapted: &AdaptedContent{Activities: []Activity{}, Resources: []string{}}}
	}
	return Payload{}
}

func emptySupportPlan() *SupportPlan {
	return &SupportPlan{
		Objectives:         []string{},
		Strategies:         []string{},
		PriorityNeeds:      []PriorityNeed{},
		Strengths:          []string{},
		Activities:         []Activity{},
		Resources:          []string{},
		EvaluationCriteria: []string{},
	}
}

type wireActivity struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    string   `json:"duration"`
	Difficulty  string   `json:"difficulty"`
	Materials   []string `json:"materials"`
}

type wireSupportPlan struct {
	Title              string         `json:"title"`
	Objectives         []string       `json:"objectives"`
	Strategies         []string       `json:"strategies"`
	PriorityNeeds      []PriorityNeed `json:"priority_needs"`
	Strengths          []string       `json:"strengths"`
	Activities         []wireActivity `json:"activities"`
	Timeline           string         `json:"timeline"`
	Resources          []string       `json:"resources"`
	EvaluationCriteria []string       `json:"evaluation_criteria"`
}

func (n *Normalizer) normalizeSupportPlan(cc *catalog.Capability, doc []byte) (Payload, error) {
	var w wireSupportPlan
	if err := json.Unmarshal(doc, &w); err != nil {
		return Payload{}, &NormalizationError{Capability: cc.ID, Err: err}
	}
	if strings.TrimSpace(w.Title) == "" && len(w.Objectives) == 0 && len(w.Activities) == 0 {
		return Payload{}, &NormalizationError{Capability: cc.ID, Err: errors.New("plan has no content")}
	}

	plan := &SupportPlan{
		Title:              strings.TrimSpace(w.Title),
		Objectives:         capStrings(w.Objectives, cc.Limits.MaxObjectives),
		Strategies:         capStrings(w.Strategies, cc.Limits.MaxStrategies),
		PriorityNeeds:      capNeeds(w.PriorityNeeds),
		Strengths:          capStrings(w.Strengths, 0),
		Activities:         capActivities(w.Activities, cc.Limits.MaxActivities),
		Timeline:           strings.TrimSpace(w.Timeline),
		Resources:          capStrings(w.Resources, cc.Limits.MaxResources),
		EvaluationCriteria: capStrings(w.EvaluationCriteria, 0),
	}
	if plan.Title == "" {
		plan.Title = "Plan de apoyo"
	}
	if plan.Timeline == "" && cc.Limits.TimelineWeeks > 0 {
		plan.Timeline = weeksLabel(cc.Limits.TimelineWeeks)
	}
	return Payload{SupportPlan: plan}, nil
}

type wireAlert struct {
	StudentName    string   `json:"student_name"`
	Risk           string   `json:"risk"`
	Priority       string   `json:"priority"`
	Indicators     []string `json:"indicators"`
	Recommendation string   `json:"recommendation"`
}

func (n *Normalizer) normalizeAlerts(cc *catalog.Capability, doc []byte) (Payload, error) {
	var w struct {
		Alerts []wireAlert `json:"alerts"`
	}
	if err := json.Unmarshal(doc, &w); err != nil {
		return Payload{}, &NormalizationError{Capability: cc.ID, Err: err}
	}

	max := arrayLimit(cc.Limits.MaxAlerts)
	alerts := make([]Alert, 0, len(w.Alerts))
	for _, a := range w.Alerts {
		if len(alerts) >= max {
			break
		}
		alerts = append(alerts, Alert{
			StudentName:    strings.TrimSpace(a.StudentName),
			Risk:           strings.TrimSpace(a.Risk),
			Priority:       clampPriority(a.Priority),
			Indicators:     nonNil(a.Indicators),
			Recommendation: strings.TrimSpace(a.Recommendation),
		})
	}
	return Payload{Alerts: alerts}, nil
}

type wireTask struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Subject          string `json:"subject"`
	Difficulty       string `json:"difficulty"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

func (n *Normalizer) normalizeTasks(cc *catalog.Capability, doc []byte) (Payload, error) {
	var w struct {
		Tasks []wireTask `json:"tasks"`
	}
	if err := json.Unmarshal(doc, &w); err != nil {
		return Payload{}, &NormalizationError{Capability: cc.ID, Err: err}
	}

	max := arrayLimit(cc.Limits.MaxTasks)
	tasks := make([]Task, 0, len(w.Tasks))
	for _, t := range w.Tasks {
		if len(tasks) >= max {
			break
		}
		minutes := t.EstimatedMinutes
		if minutes < 0 {
			minutes = 0
		}
		tasks = append(tasks, Task{
			Title:            strings.TrimSpace(t.Title),
			Description:      strings.TrimSpace(t.Description),
			Subject:          strings.TrimSpace(t.Subject),
			Difficulty:       strings.TrimSpace(t.Difficulty),
			EstimatedMinutes: minutes,
		})
	}
	return Payload{Tasks: tasks}, nil
}

func (n *Normalizer) normalizeAnalysis(cc *catalog.Capability, doc []byte) (Payload, error) {
	var w struct {
		Summary         string   `json:"summary"`
		LearningStyle   string   `json:"learning_style"`
		Barriers        []string `json:"barriers"`
		Recommendations []string `json:"recommendations"`
		Resources       []string `json:"resources"`
	}
	if err := json.Unmarshal(doc, &w); err != nil {
		return Payload{}, &NormalizationError{Capability: cc.ID, Err: err}
	}
	if strings.TrimSpace(w.Summary) == "" {
		return Payload{}, &NormalizationError{Capability: cc.ID, Err: errors.New("missing summary")}
	}
	return Payload{Analysis: &LearningAnalysis{
		Summary:         strings.TrimSpace(w.Summary),
		LearningStyle:   strings.TrimSpace(w.LearningStyle),
		Barriers:        capStrings(w.Barriers, 0),
		Recommendations: capStrings(w.Recommendations, 0),
		Resources:       capStrings(w.Resources, cc.Limits.MaxResources),
	}}, nil
}

func (n *Normalizer) normalizeAssistance(doc []byte) (Payload, error) {
	var w struct {
		Answer      string   `json:"answer"`
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(doc, &w); err != nil {
		return Payload{}, &NormalizationError{Capability: catalog.CapabilityRoleAssistance, Err: err}
	}
	if strings.TrimSpace(w.Answer) == "" {
		return Payload{}, &NormalizationError{Capability: catalog.CapabilityRoleAssistance, Err: errors.New("missing answer")}
	}
	return Payload{Assistance: &RoleAssistance{
		Answer:      strings.TrimSpace(w.Answer),
		Suggestions: capStrings(w.Suggestions, 0),
	}}, nil
}

func (n *Normalizer) normalizeAdapted(cc *catalog.Capability, doc []byte) (Payload, error) {
	var w struct {
		Activities []wireActivity `json:"activities"`
		Resources  []string       `json:"resources"`
	}
	if err := json.Unmarshal(doc, &w); err != nil {
		return Payload{}, &NormalizationError{Capability: cc.ID, Err: err}
	}
	if len(w.Activities) == 0 {
		return Payload{}, &NormalizationError{Capability: cc.ID, Err: errors.New("no adapted activities")}
	}
	return Payload{Adapted: &AdaptedContent{
		Activities: capActivities(w.Activities, cc.Limits.MaxActivities),
		Resources:  capStrings(w.Resources, cc.Limits.MaxResources),
	}}, nil
}

// extractJSON locates the outermost JSON object in free-form provider
// output (models often wrap it in prose or code fences).
func extractJSON(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, errors.New("empty response")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in response")
	}
	doc := []byte(s[start : end+1])
	if !json.Valid(doc) {
		return nil, errors.New("malformed JSON in response")
	}
	return doc, nil
}

func clampPriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case domain.CommPriorityLow:
		return domain.CommPriorityLow
	case domain.CommPriorityHigh:
		return domain.CommPriorityHigh
	case domain.CommPriorityUrgent:
		return domain.CommPriorityUrgent
	default:
		return domain.CommPriorityMedium
	}
}

func arrayLimit(configured int) int {
	if configured > 0 {
		return configured
	}
	return fallbackArrayLimit
}

func capStrings(xs []string, max int) []string {
	limit := arrayLimit(max)
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if len(out) >= limit {
			break
		}
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		out = append(out, x)
	}
	return out
}

func capNeeds(needs []PriorityNeed) []PriorityNeed {
	out := make([]PriorityNeed, 0, len(needs))
	for _, nd := range needs {
		if len(out) >= fallbackArrayLimit {
			break
		}
		need := strings.TrimSpace(nd.Need)
		if need == "" {
			continue
		}
		out = append(out, PriorityNeed{Need: need, Priority: clampPriority(nd.Priority)})
	}
	return out
}

func capActivities(acts []wireActivity, max int) []Activity {
	limit := arrayLimit(max)
	out := make([]Activity, 0, len(acts))
	for _, a := range acts {
		if len(out) >= limit {
			break
		}
		if strings.TrimSpace(a.Title) == "" && strings.TrimSpace(a.Description) == "" {
			continue
		}
		out = append(out, Activity{
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			Duration:    strings.TrimSpace(a.Duration),
			Difficulty:  strings.TrimSpace(a.Difficulty),
			Materials:   nonNil(a.Materials),
		})
	}
	return out
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func weeksLabel(weeks int) string {
	if weeks == 1 {
		return "1 semana"
	}
	return strconv.Itoa(weeks) + " semanas"
}
