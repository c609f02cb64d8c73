package engine

import "time"

type PriorityNeed struct {
	Need     string `json:"need"`
	Priority string `json:"priority"`
}

type Activity struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    string   `json:"duration"`
	Difficulty  string   `json:"difficulty"`
	Materials   []string `json:"materials"`
}

type SupportPlan struct {
	Title              string         `json:"title"`
	Objectives         []string       `json:"objectives"`
	Strategies         []string       `json:"strategies"`
	PriorityNeeds      []PriorityNeed `json:"priority_needs"`
	Strengths          []string       `json:"strengths"`
	Activities         []Activity     `json:"activities"`
	Timeline           string         `json:"timeline"`
	Resources          []string       `json:"resources"`
	EvaluationCriteria []string       `json:"evaluation_criteria"`
}

type Alert struct {
	StudentName    string   `json:"student_name"`
	Risk           string   `json:"risk"`
	Priority       string   `json:"priority"`
	Indicators     []string `json:"indicators"`
	Recommendation string   `json:"recommendation"`
}

type Task struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Subject          string `json:"subject"`
	Difficulty       string `json:"difficulty"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

type LearningAnalysis struct {
	Summary         string   `json:"summary"`
	LearningStyle   string   `json:"learning_style"`
	Barriers        []string `json:"barriers"`
	Recommendations []string `json:"recommendations"`
	Resources       []string `json:"resources"`
}

type RoleAssistance struct {
	Answer      string   `json:"answer"`
	Suggestions []string `json:"suggestions"`
}

type AdaptedContent struct {
	Activities []Activity `json:"activities"`
	Resources  []string   `json:"resources"`
}

// Payload is the normalized, shape-guaranteed output of a capability
// invocation. Exactly the section matching the requested capability is
// populated; it is never nil and its array lengths respect the catalog
// limits regardless of which provider produced the raw output.
type Payload struct {
	SupportPlan *SupportPlan      `json:"support_plan,omitempty"`
	Alerts      []Alert           `json:"alerts,omitempty"`
	Tasks       []Task            `json:"tasks,omitempty"`
	Analysis    *LearningAnalysis `json:"analysis,omitempty"`
	Assistance  *RoleAssistance   `json:"assistance,omitempty"`
	Adapted     *AdaptedContent   `json:"adapted_content,omitempty"`
}

type GenerationResult struct {
	Capability  string    `json:"capability"`
	Provider    string    `json:"provider"`
	GeneratedAt time.Time `json:"generated_at"`
	Payload     Payload   `json:"payload"`
}

// Degraded reports whether the result came from the mock fallback.
func (r *GenerationResult) Degraded() bool {
	return r.Provider == "mock"
}
