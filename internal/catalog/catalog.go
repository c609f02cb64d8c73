package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orienta-edu/orienta-backend/internal/domain"
)

// Content-generation capabilities. Each one has its own structural limits
// and per-role prompt templates.
const (
	CapabilitySupportPlan       = "support_plan"
	CapabilityPredictiveAlerts  = "predictive_alerts"
	CapabilityPersonalizedTasks = "personalized_tasks"
	CapabilityLearningAnalysis  = "learning_analysis"
	CapabilityRoleAssistance    = "role_assistance"
	CapabilityAdaptiveContent   = "adaptive_content"
)

// DefaultTemplateKey is the template used when no role-specific one exists.
const DefaultTemplateKey = "default"

var knownCapabilities = map[string]bool{
	CapabilitySupportPlan:       true,
	CapabilityPredictiveAlerts:  true,
	CapabilityPersonalizedTasks: true,
	CapabilityLearningAnalysis:  true,
	CapabilityRoleAssistance:    true,
	CapabilityAdaptiveContent:   true,
}

type Limits struct {
	MaxObjectives int `yaml:"max_objectives"`
	MaxStrategies int `yaml:"max_strategies"`
	MaxActivities int `yaml:"max_activities"`
	MaxAlerts     int `yaml:"max_alerts"`
	MaxResources  int `yaml:"max_resources"`
	MaxTasks      int `yaml:"max_tasks"`
	TimelineWeeks int `yaml:"timeline_weeks"`
}

type Capability struct {
	ID        string            `yaml:"-"`
	Enabled   bool              `yaml:"enabled"`
	Limits    Limits            `yaml:"limits"`
	Templates map[string]string `yaml:"templates"`
}

// Template returns the prompt template for a role, falling back to the
// default template. The default is guaranteed present by Load.
func (c *Capability) Template(role string) string {
	if t, ok := c.Templates[role]; ok && strings.TrimSpace(t) != "" {
		return t
	}
	return c.Templates[DefaultTemplateKey]
}

type ProviderLimits struct {
	MaxTokens      int           `yaml:"max_tokens"`
	Temperature    float64       `yaml:"temperature"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// UnmarshalYAML accepts request_timeout in Go duration syntax ("30s").
func (l *ProviderLimits) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		RequestTimeout string  `yaml:"request_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	l.MaxTokens = raw.MaxTokens
	l.Temperature = raw.Temperature
	l.RequestTimeout = 0
	if s := strings.TrimSpace(raw.RequestTimeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse request_timeout %q: %w", s, err)
		}
		l.RequestTimeout = d
	}
	return nil
}

type ProviderConfig struct {
	ID       string         `yaml:"-"`
	Priority int            `yaml:"priority"`
	Enabled  bool           `yaml:"enabled"`
	Model    string         `yaml:"model"`
	Limits   ProviderLimits `yaml:"limits"`
}

type fileConfig struct {
	Capabilities map[string]*Capability    `yaml:"capabilities"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
}

// Catalog holds the static capability and provider configuration loaded at
// process start. It is immutable afterwards.
type Catalog struct {
	capabilities map[string]*Capability
	providers    []ProviderConfig
}

//go:embed default_config.yaml
var defaultConfigYAML []byte

// Load reads the catalog from the given YAML file, or from the embedded
// default when path is empty. Configuration problems (missing default
// template, unknown capability, bad limits) are startup errors, not
// request-time errors.
func Load(path string) (*Catalog, error) {
	raw := defaultConfigYAML
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog config: %w", err)
		}
		raw = b
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse catalog config: %w", err)
	}
	return build(fc)
}

func build(fc fileConfig) (*Catalog, error) {
	if len(fc.Capabilities) == 0 {
		return nil, fmt.Errorf("catalog config: no capabilities defined")
	}
	if len(fc.Providers) == 0 {
		return nil, fmt.Errorf("catalog config: no providers defined")
	}

	caps := make(map[string]*Capability, len(fc.Capabilities))
	for id, c := range fc.Capabilities {
		if !knownCapabilities[id] {
			return nil, fmt.Errorf("catalog config: unknown capability %q", id)
		}
		if c == nil {
			return nil, fmt.Errorf("catalog config: capability %q is empty", id)
		}
		c.ID = id
		if err := validateCapability(c); err != nil {
			return nil, err
		}
		caps[id] = c
	}

	provs := make([]ProviderConfig, 0, len(fc.Providers))
	seenPriority := map[int]string{}
	for id, p := range fc.Providers {
		p.ID = id
		if err := validateProvider(&p); err != nil {
			return nil, err
		}
		if other, dup := seenPriority[p.Priority]; dup {
			return nil, fmt.Errorf("catalog config: providers %q and %q share priority %d", other, id, p.Priority)
		}
		seenPriority[p.Priority] = id
		provs = append(provs, p)
	}
	sort.Slice(provs, func(i, j int) bool { return provs[i].Priority < provs[j].Priority })

	return &Catalog{capabilities: caps, providers: provs}, nil
}

func validateCapability(c *Capability) error {
	if len(c.Templates) == 0 {
		return fmt.Errorf("catalog config: capability %q has no templates", c.ID)
	}
	if strings.TrimSpace(c.Templates[DefaultTemplateKey]) == "" {
		return fmt.Errorf("catalog config: capability %q is missing the %q template", c.ID, DefaultTemplateKey)
	}
	for role := range c.Templates {
		if role == DefaultTemplateKey {
			continue
		}
		if !domain.ValidRole(role) {
			return fmt.Errorf("catalog config: capability %q has a template for unknown role %q", c.ID, role)
		}
	}
	l := c.Limits
	for name, v := range map[string]int{
		"max_objectives": l.MaxObjectives,
		"max_strategies": l.MaxStrategies,
		"max_activities": l.MaxActivities,
		"max_alerts":     l.MaxAlerts,
		"max_resources":  l.MaxResources,
		"max_tasks":      l.MaxTasks,
		"timeline_weeks": l.TimelineWeeks,
	} {
		if v < 0 {
			return fmt.Errorf("catalog config: capability %q has negative limit %s", c.ID, name)
		}
	}
	return nil
}

func validateProvider(p *ProviderConfig) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("catalog config: provider with empty id")
	}
	if p.Priority < 0 {
		return fmt.Errorf("catalog config: provider %q has negative priority", p.ID)
	}
	if p.Limits.MaxTokens <= 0 {
		return fmt.Errorf("catalog config: provider %q needs max_tokens > 0", p.ID)
	}
	if p.Limits.Temperature < 0 || p.Limits.Temperature > 2 {
		return fmt.Errorf("catalog config: provider %q temperature must be between 0 and 2", p.ID)
	}
	if p.Limits.RequestTimeout <= 0 {
		return fmt.Errorf("catalog config: provider %q needs request_timeout > 0", p.ID)
	}
	return nil
}

// Capability returns the configuration for a capability id.
func (c *Catalog) Capability(id string) (*Capability, bool) {
	cc, ok := c.capabilities[id]
	return cc, ok
}

// Capabilities returns all configured capabilities sorted by id.
func (c *Catalog) Capabilities() []*Capability {
	out := make([]*Capability, 0, len(c.capabilities))
	for _, cc := range c.capabilities {
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Providers returns provider configurations in ascending priority order
// (lower priority value = tried first).
func (c *Catalog) Providers() []ProviderConfig {
	out := make([]ProviderConfig, len(c.providers))
	copy(out, c.providers)
	return out
}

// EnabledProviders returns only enabled providers, ascending priority.
func (c *Catalog) EnabledProviders() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(c.providers))
	for _, p := range c.providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
