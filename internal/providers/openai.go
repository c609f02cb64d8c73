package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type openAIProvider struct {
	log    *logger.Logger
	client openai.Client
	model  string
}

// NewOpenAIProvider builds the OpenAI adapter from OPENAI_API_KEY and an
// optional OPENAI_BASE_URL. The model comes from the provider registry.
func NewOpenAIProvider(log *logger.Logger, model string) (ContentProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIProvider{
		log:    log.With("provider", "openai"),
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (p *openAIProvider) ID() string { return "openai" }

func (p *openAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.model),
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(req.Prompt)},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, p.classify(err)
	}
	return &Completion{
		Text:         resp.OutputText(),
		Model:        string(resp.Model),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func (p *openAIProvider) classify(err error) *Error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return classifyStatus(p.ID(), apierr.StatusCode, err)
	}
	return classifyTransport(p.ID(), err)
}
