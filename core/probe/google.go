package probe

import (
	"context"
	stderrors "errors"
	"strings"

	"google.golang.org/genai"
)

// GoogleProvider implements Provider for Gemini models, through either
// the Gemini API or Vertex AI.
type GoogleProvider struct {
	client *genai.Client
	config GoogleConfig
}

// NewGoogleProvider creates a Gemini provider with the given
// configuration.
func NewGoogleProvider(ctx context.Context, config GoogleConfig) (*GoogleProvider, error) {
	if config.Model == "" {
		config.Model = DefaultGoogleConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultGoogleConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.UseVertexAI {
		cc.Backend = genai.BackendVertexAI
		cc.Project = config.ProjectID
		cc.Location = config.Location
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	return &GoogleProvider{
		client: client,
		config: config,
	}, nil
}

func (p *GoogleProvider) Name() string {
	return string(ProviderTypeGoogle)
}

// Generate performs a non-streaming completion request.
func (p *GoogleProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, p.convertMessages(req.Messages), p.buildConfig(req))
	if err != nil {
		return nil, p.classify(err)
	}

	result := &Response{
		Content:    resp.Text(),
		Model:      model,
		StopReason: StopReasonEndTurn,
	}
	if len(resp.Candidates) > 0 {
		result.StopReason = p.convertFinishReason(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result, nil
}

func (p *GoogleProvider) ValidateConfig() error {
	return p.config.Validate()
}

func (p *GoogleProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "gemini-")
}

func (p *GoogleProvider) Close() error {
	return nil
}

func (p *GoogleProvider) buildConfig(req *Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}

	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	} else if p.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(p.config.Temperature))
	}

	return cfg
}

func (p *GoogleProvider) convertMessages(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}

func (p *GoogleProvider) convertFinishReason(reason genai.FinishReason) StopReason {
	switch reason {
	case genai.FinishReasonMaxTokens:
		return StopReasonMaxTokens
	case genai.FinishReasonStop, genai.FinishReasonUnspecified:
		return StopReasonEndTurn
	default:
		return StopReasonError
	}
}

func (p *GoogleProvider) classify(err error) error {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return classifyStatus(err, apiErr.Code, p.Name())
	}
	return classifyStatus(err, 0, p.Name())
}
