package probe

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for Anthropic's Claude models.
type AnthropicProvider struct {
	client *anthropic.Client
	config AnthropicConfig
}

var anthropicModelPrefixes = []string{"claude-"}

// NewAnthropicProvider creates an Anthropic provider with the given
// configuration.
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	if config.Model == "" {
		config.Model = DefaultAnthropicConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultAnthropicConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client: &client,
		config: config,
	}, nil
}

func (p *AnthropicProvider) Name() string {
	return string(ProviderTypeAnthropic)
}

// Generate performs a non-streaming completion request.
func (p *AnthropicProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, p.classify(err)
	}

	return p.convertResponse(msg), nil
}

func (p *AnthropicProvider) ValidateConfig() error {
	return p.config.Validate()
}

func (p *AnthropicProvider) SupportsModel(model string) bool {
	for _, prefix := range anthropicModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func (p *AnthropicProvider) Close() error {
	return nil
}

func (p *AnthropicProvider) buildParams(req *Request) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  p.convertMessages(req.Messages),
	}

	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(p.config.Temperature)
	}

	return params
}

func (p *AnthropicProvider) convertMessages(messages []Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result
}

func (p *AnthropicProvider) convertResponse(msg *anthropic.Message) *Response {
	var content strings.Builder
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(b.Text)
		}
	}

	return &Response{
		Content:    content.String(),
		Model:      string(msg.Model),
		StopReason: p.convertStopReason(msg.StopReason),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

func (p *AnthropicProvider) convertStopReason(reason anthropic.StopReason) StopReason {
	switch reason {
	case anthropic.StopReasonEndTurn:
		return StopReasonEndTurn
	case anthropic.StopReasonMaxTokens:
		return StopReasonMaxTokens
	case anthropic.StopReasonStopSequence:
		return StopReasonStopSequence
	default:
		return StopReasonEndTurn
	}
}

func (p *AnthropicProvider) classify(err error) error {
	var apiErr *anthropic.Error
	if stderrors.As(err, &apiErr) {
		return classifyStatus(err, apiErr.StatusCode, p.Name())
	}
	return classifyStatus(err, 0, p.Name())
}
