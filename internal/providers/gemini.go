package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type geminiProvider struct {
	log    *logger.Logger
	client *genai.Client
	model  string
}

// NewGeminiProvider builds the Gemini adapter from GEMINI_API_KEY.
func NewGeminiProvider(ctx context.Context, log *logger.Logger, model string) (ContentProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &geminiProvider{
		log:    log.With("provider", "gemini"),
		client: client,
		model:  model,
	}, nil
}

func (p *geminiProvider) ID() string { return "gemini" }

func (p *geminiProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, p.classify(err)
	}

	out := &Completion{Text: resp.Text(), Model: p.model}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func (p *geminiProvider) classify(err error) *Error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return classifyStatus(p.ID(), apierr.Code, err)
	}
	return classifyTransport(p.ID(), err)
}
