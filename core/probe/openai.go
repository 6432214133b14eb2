package probe

import (
	"context"
	stderrors "errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/perihelion-labs/ldsi/core/errors"
)

// OpenAIProvider implements Provider for any /chat/completions endpoint:
// OpenAI itself, OpenRouter's gateway, or a local Ollama daemon.
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIProvider creates an OpenAI-compatible provider with the given
// configuration.
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	if config.Model == "" {
		config.Model = DefaultOpenAIConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultOpenAIConfig().MaxTokens
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
	if config.Organization != "" {
		opts = append(opts, option.WithHeader("OpenAI-Organization", config.Organization))
	}
	if config.flavorName() == ProviderTypeOpenRouter {
		// OpenRouter's attribution headers.
		opts = append(opts,
			option.WithHeader("HTTP-Referer", "https://github.com/perihelion-labs/ldsi"),
			option.WithHeader("X-Title", "LDSI Benchmark"),
		)
	}

	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client: &client,
		config: config,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return string(p.config.flavorName())
}

// Generate performs a non-streaming completion request.
func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	completion, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, p.classify(err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.NewTieredError(errors.TierTransient, p.Name()+" returned no choices", nil)
	}

	choice := completion.Choices[0]
	return &Response{
		Content:    choice.Message.Content,
		Model:      completion.Model,
		StopReason: p.convertFinishReason(choice.FinishReason),
		Usage: Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}, nil
}

func (p *OpenAIProvider) ValidateConfig() error {
	return p.config.Validate()
}

// SupportsModel accepts any routed model name. OpenRouter's catalog is
// open-ended, so membership is advisory and lives in Catalog.
func (p *OpenAIProvider) SupportsModel(model string) bool {
	return model != ""
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) buildParams(req *Request) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(model),
		Messages:  messages,
		MaxTokens: openai.Int(int64(maxTokens)),
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}

	return params
}

func (p *OpenAIProvider) convertFinishReason(reason string) StopReason {
	switch reason {
	case "stop":
		return StopReasonEndTurn
	case "length":
		return StopReasonMaxTokens
	case "content_filter":
		return StopReasonStopSequence
	default:
		return StopReasonEndTurn
	}
}

func (p *OpenAIProvider) classify(err error) error {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return classifyStatus(err, apiErr.StatusCode, p.Name())
	}
	return classifyStatus(err, 0, p.Name())
}
