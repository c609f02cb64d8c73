package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type anthropicProvider struct {
	log    *logger.Logger
	client anthropic.Client
	model  string
}

// NewAnthropicProvider builds the Anthropic adapter from ANTHROPIC_API_KEY.
func NewAnthropicProvider(log *logger.Logger, model string) (ContentProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &anthropicProvider{
		log:    log.With("provider", "anthropic"),
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

func (p *anthropicProvider) ID() string { return "anthropic" }

func (p *anthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			sb.WriteString(b.Text)
		}
	}
	return &Completion{
		Text:         sb.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

func (p *anthropicProvider) classify(err error) *Error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return classifyStatus(p.ID(), apierr.StatusCode, err)
	}
	return classifyTransport(p.ID(), err)
}
