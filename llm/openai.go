package llm

import "context"

// openAIProvider implements Provider for the OpenAI API.
// Uses the standard OpenAI-compatible format for both chat and embeddings.
//
// API key: set via config or the OPENAI_API_KEY env var.
type openAIProvider struct {
	base openAICompatClient
}

// NewOpenAI creates a provider for OpenAI.
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &openAIProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
