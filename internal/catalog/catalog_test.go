package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	t.Parallel()

	cat, err := Load("")
	if err != nil {
		t.Fatalf("load embedded default: %v", err)
	}

	caps := cat.Capabilities()
	if len(caps) != 6 {
		t.Fatalf("unexpected capability count: got=%d want=6", len(caps))
	}
	for _, cc := range caps {
		if !cc.Enabled {
			t.Errorf("capability %q disabled in default config", cc.ID)
		}
		if strings.TrimSpace(cc.Templates[DefaultTemplateKey]) == "" {
			t.Errorf("capability %q missing default template", cc.ID)
		}
	}

	provs := cat.EnabledProviders()
	if len(provs) != 3 {
		t.Fatalf("unexpected provider count: got=%d want=3", len(provs))
	}
	wantOrder := []string{"openai", "anthropic", "gemini"}
	for i, p := range provs {
		if p.ID != wantOrder[i] {
			t.Fatalf("provider order at %d: got=%q want=%q", i, p.ID, wantOrder[i])
		}
	}
}

func TestTemplateRoleFallback(t *testing.T) {
	t.Parallel()

	cat, err := Load("")
	if err != nil {
		t.Fatalf("load embedded default: %v", err)
	}
	cc, ok := cat.Capability(CapabilitySupportPlan)
	if !ok {
		t.Fatal("support_plan missing from default config")
	}

	if got := cc.Template("psychopedagogue"); !strings.Contains(got, "psicopedagogo") {
		t.Errorf("psychopedagogue template not role-specific: %q", got[:40])
	}
	// A role without its own template uses the default.
	if got, def := cc.Template("parent"), cc.Templates[DefaultTemplateKey]; got != def {
		t.Error("parent role should fall back to the default template")
	}
}

const validConfigYAML = `
capabilities:
  support_plan:
    enabled: true
    limits:
      max_objectives: 3
    templates:
      default: "Plan para {students}"
providers:
  openai:
    priority: 1
    enabled: true
    model: gpt-5-mini
    limits:
      max_tokens: 512
      temperature: 0.5
      request_timeout: 10s
`

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(s string) string { return s },
			wantErr: "",
		},
		{
			name: "unknown capability",
			mutate: func(s string) string {
				return strings.Replace(s, "support_plan:", "course_builder:", 1)
			},
			wantErr: "unknown capability",
		},
		{
			name: "missing default template",
			mutate: func(s string) string {
				return strings.Replace(s, "default:", "teacher:", 1)
			},
			wantErr: "missing the \"default\" template",
		},
		{
			name: "template for unknown role",
			mutate: func(s string) string {
				return strings.Replace(s, `      default: "Plan para {students}"`,
					"      default: \"Plan para {students}\"\n      principal: \"x\"", 1)
			},
			wantErr: "unknown role",
		},
		{
			name: "negative limit",
			mutate: func(s string) string {
				return strings.Replace(s, "max_objectives: 3", "max_objectives: -1", 1)
			},
			wantErr: "negative limit",
		},
		{
			name: "duplicate priority",
			mutate: func(s string) string {
				return s + `
  anthropic:
    priority: 1
    enabled: true
    model: claude-haiku-4-5-20251001
    limits:
      max_tokens: 512
      temperature: 0.5
      request_timeout: 10s
`
			},
			wantErr: "share priority",
		},
		{
			name: "temperature out of range",
			mutate: func(s string) string {
				return strings.Replace(s, "temperature: 0.5", "temperature: 2.5", 1)
			},
			wantErr: "temperature",
		},
		{
			name: "missing request timeout",
			mutate: func(s string) string {
				return strings.Replace(s, "request_timeout: 10s", "request_timeout: 0s", 1)
			},
			wantErr: "request_timeout",
		},
		{
			name: "zero max tokens",
			mutate: func(s string) string {
				return strings.Replace(s, "max_tokens: 512", "max_tokens: 0", 1)
			},
			wantErr: "max_tokens",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "catalog.yaml")
			if err := os.WriteFile(path, []byte(tc.mutate(validConfigYAML)), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}

			_, err := Load(path)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
