package probe

import "strings"

// Catalog groups the known benchmark targets by transport. OpenRouter
// entries use the vendor-prefixed routing IDs; Ollama entries are bare
// local tags.
type Catalog struct {
	OpenRouter []ModelInfo `json:"openrouter"`
	Ollama     []ModelInfo `json:"ollama"`
}

// ShortName returns the display segment of a routed model ID, the part
// after the vendor prefix. Bare IDs come back unchanged.
func ShortName(modelID string) string {
	if _, short, ok := strings.Cut(modelID, "/"); ok {
		return short
	}
	return modelID
}

// Find looks up an entry by ID across both lists.
func (c Catalog) Find(modelID string) (ModelInfo, bool) {
	for _, m := range c.OpenRouter {
		if m.ID == modelID {
			return m, true
		}
	}
	for _, m := range c.Ollama {
		if m.ID == modelID {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// DefaultCatalog returns the curated model set. The list is a snapshot,
// not a live query: OpenRouter accepts IDs beyond it and Ollama serves
// whatever is pulled locally, so membership is advisory.
func DefaultCatalog() Catalog {
	return Catalog{
		OpenRouter: []ModelInfo{
			{ID: "anthropic/claude-opus-4.5", Name: "Claude Opus 4.5", Provider: "Anthropic", Category: "Premium"},
			{ID: "anthropic/claude-haiku-4.5", Name: "Claude Haiku 4.5", Provider: "Anthropic", Category: "Fast"},
			{ID: "anthropic/claude-sonnet-4", Name: "Claude Sonnet 4", Provider: "Anthropic", Category: "Balanced"},
			{ID: "openai/gpt-5.2", Name: "GPT-5.2", Provider: "OpenAI", Category: "Premium"},
			{ID: "openai/gpt-5.2-pro", Name: "GPT-5.2 Pro", Provider: "OpenAI", Category: "Premium"},
			{ID: "openai/gpt-5.1", Name: "GPT-5.1", Provider: "OpenAI", Category: "Balanced"},
			{ID: "openai/gpt-5.1-codex", Name: "GPT-5.1 Codex", Provider: "OpenAI", Category: "Coding"},
			{ID: "openai/o3-deep-research", Name: "o3 Deep Research", Provider: "OpenAI", Category: "Reasoning"},
			{ID: "google/gemini-3-pro-preview", Name: "Gemini 3 Pro", Provider: "Google", Category: "Premium"},
			{ID: "google/gemini-3-flash-preview", Name: "Gemini 3 Flash", Provider: "Google", Category: "Fast"},
			{ID: "mistralai/mistral-large-2512", Name: "Mistral Large 3", Provider: "Mistral", Category: "Premium"},
			{ID: "mistralai/devstral-2512", Name: "Devstral 2", Provider: "Mistral", Category: "Coding"},
			{ID: "mistralai/ministral-3b-2512", Name: "Ministral 3B", Provider: "Mistral", Category: "Fast"},
			{ID: "mistralai/mistral-small-creative", Name: "Mistral Small Creative", Provider: "Mistral", Category: "Creative"},
			{ID: "deepseek/deepseek-v3.2", Name: "DeepSeek V3.2", Provider: "DeepSeek", Category: "Balanced"},
			{ID: "deepseek/deepseek-v3.2-speciale", Name: "DeepSeek V3.2 Speciale", Provider: "DeepSeek", Category: "Premium"},
			{ID: "x-ai/grok-4.1-fast", Name: "Grok 4.1 Fast", Provider: "xAI", Category: "Fast"},
			{ID: "qwen/qwen3-vl-32b-instruct", Name: "Qwen3 VL 32B", Provider: "Qwen", Category: "Balanced"},
			{ID: "bytedance-seed/seed-1.6", Name: "Seed 1.6", Provider: "ByteDance", Category: "Balanced"},
			{ID: "bytedance-seed/seed-1.6-flash", Name: "Seed 1.6 Flash", Provider: "ByteDance", Category: "Fast"},
			{ID: "minimax/minimax-m2.1", Name: "MiniMax M2.1", Provider: "MiniMax", Category: "Balanced"},
			{ID: "z-ai/glm-4.7", Name: "GLM 4.7", Provider: "Z.AI", Category: "Balanced"},
			{ID: "xiaomi/mimo-v2-flash:free", Name: "MiMo V2 Flash", Provider: "Xiaomi", Category: "Free"},
			{ID: "amazon/nova-premier-v1", Name: "Nova Premier", Provider: "Amazon", Category: "Premium"},
			{ID: "nvidia/llama-3.3-nemotron-super-49b-v1.5", Name: "Nemotron Super 49B", Provider: "NVIDIA", Category: "Premium"},
			{ID: "moonshotai/kimi-k2-thinking", Name: "Kimi K2 Thinking", Provider: "Moonshot", Category: "Reasoning"},
			{ID: "mistralai/devstral-2512:free", Name: "Devstral 2 (Free)", Provider: "Mistral", Category: "Free"},
			{ID: "allenai/olmo-3.1-32b-think:free", Name: "Olmo 3.1 32B (Free)", Provider: "AllenAI", Category: "Free"},
			{ID: "nvidia/nemotron-3-nano-30b-a3b:free", Name: "Nemotron Nano (Free)", Provider: "NVIDIA", Category: "Free"},
		},
		Ollama: []ModelInfo{
			{ID: "llama3.3", Name: "Llama 3.3", Provider: "Local", Category: "Open"},
			{ID: "qwen2.5", Name: "Qwen 2.5", Provider: "Local", Category: "Open"},
			{ID: "qwen2.5-coder", Name: "Qwen 2.5 Coder", Provider: "Local", Category: "Coding"},
			{ID: "mistral", Name: "Mistral 7B", Provider: "Local", Category: "Open"},
			{ID: "deepseek-r1", Name: "DeepSeek R1", Provider: "Local", Category: "Reasoning"},
			{ID: "gemma2", Name: "Gemma 2", Provider: "Local", Category: "Open"},
			{ID: "phi4", Name: "Phi 4", Provider: "Local", Category: "Fast"},
		},
	}
}
