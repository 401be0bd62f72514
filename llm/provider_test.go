package llm

import (
	"fmt"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"ollama", "*llm.ollamaProvider"},
		{"openai", "*llm.openAIProvider"},
		{"dashscope", "*llm.dashScopeProvider"},
		{"deepseek", "*llm.deepSeekProvider"},
		{"custom", "*llm.openAICompatProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := Config{
				Provider: tt.provider,
				Model:    "test-model",
			}
			p, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			gotType := fmt.Sprintf("%T", p)
			if gotType != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, gotType, tt.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist"})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	want := "unknown llm provider: doesnotexist"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewProviderEmpty(t *testing.T) {
	_, err := NewProvider(Config{})
	if err == nil {
		t.Fatal("expected error for empty provider, got nil")
	}
}

func TestDefaultBaseURLs(t *testing.T) {
	tests := []struct {
		provider string
		wantURL  string
	}{
		{"ollama", "http://localhost:11434"},
		{"openai", "https://api.openai.com"},
		{"dashscope", "https://dashscope.aliyuncs.com/compatible-mode"},
		{"deepseek", "https://api.deepseek.com"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			var got string
			switch v := p.(type) {
			case *ollamaProvider:
				got = v.base.cfg.BaseURL
			case *openAIProvider:
				got = v.base.cfg.BaseURL
			case *dashScopeProvider:
				got = v.base.cfg.BaseURL
			case *deepSeekProvider:
				got = v.base.cfg.BaseURL
			}
			if got != tt.wantURL {
				t.Errorf("base URL = %q, want %q", got, tt.wantURL)
			}
		})
	}
}
