package llm

import "context"

// dashScopeProvider implements Provider for Alibaba Cloud DashScope
// (qwen-plus and friends) through its OpenAI-compatible endpoint.
//
// API key: set via config or the DASHSCOPE_API_KEY env var.
type dashScopeProvider struct {
	base openAICompatClient
}

// NewDashScope creates a provider for DashScope.
func NewDashScope(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen-plus"
	}
	return &dashScopeProvider{base: newOpenAICompatClient(cfg)}
}

func (p *dashScopeProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *dashScopeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
