package probe

import (
	"context"
	"net/http"

	"github.com/perihelion-labs/ldsi/core/errors"
)

// Provider abstracts one LLM endpoint. Adapters translate the neutral
// request/response types to the vendor SDK.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Response, error)
	ValidateConfig() error
	SupportsModel(model string) bool
	Close() error
}

type Request struct {
	Model        string    `json:"model,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// UserPrompt builds the single-turn request the injector sends.
func UserPrompt(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}

type Response struct {
	Content    string     `json:"content"`
	Model      string     `json:"model"`
	StopReason StopReason `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
	StopReasonError        StopReason = "error"
)

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ModelInfo describes one catalog entry.
type ModelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Category string `json:"category"`
}

// classifyStatus maps an upstream HTTP status to the error tiers the
// retry loop understands. The zero status means no response arrived.
func classifyStatus(err error, status int, provider string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return errors.NewTieredError(errors.TierExternalRateLimit, provider+" rate limited", err).
			WithStatusCode(status)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewTieredError(errors.TierUserFixable, provider+" rejected credentials", err).
			WithStatusCode(status)
	case status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		return errors.NewTieredError(errors.TierPermanent, provider+" rejected request", err).
			WithStatusCode(status)
	case status >= http.StatusInternalServerError:
		return errors.NewTieredError(errors.TierExternalDegrading, provider+" upstream degraded", err).
			WithStatusCode(status)
	default:
		return errors.NewTieredError(errors.TierTransient, provider+" request failed", err)
	}
}
