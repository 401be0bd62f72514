package llm

import "context"

// deepSeekProvider implements Provider for the DeepSeek API. DeepSeek-R1
// streams a reasoning trace before the answer; only the final content is
// surfaced here.
//
// API key: set via config or the DEEPSEEK_API_KEY env var.
type deepSeekProvider struct {
	base openAICompatClient
}

// NewDeepSeek creates a provider for DeepSeek.
func NewDeepSeek(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	return &deepSeekProvider{base: newOpenAICompatClient(cfg)}
}

func (p *deepSeekProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *deepSeekProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
