package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"script-studio-api/internal/config"
	einoobs "script-studio-api/internal/observability/eino"
	apperrors "script-studio-api/pkg/errors"
)

// OpenAIProvider 使用 go-openai 直连 OpenAI，错误带结构化状态码
type OpenAIProvider struct {
	name    string
	config  config.ProviderConfig
	clients map[string]*openai.Client
	mu      sync.Mutex
}

// NewOpenAIProvider 创建 OpenAI 适配器
func NewOpenAIProvider(name string, cfg config.ProviderConfig) *OpenAIProvider {
	return &OpenAIProvider{
		name:    name,
		config:  cfg,
		clients: make(map[string]*openai.Client),
	}
}

// Name 实现 Provider
func (p *OpenAIProvider) Name() string { return p.name }

// Generate 实现 Provider
func (p *OpenAIProvider) Generate(ctx context.Context, prompt, apiKey, modelName string) (string, error) {
	if modelName == "" {
		modelName = p.config.Model
	}
	ctx, call := einoobs.StartCall(ctx, p.name, modelName)

	resp, err := p.client(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   p.config.MaxTokens,
		Temperature: float32(p.config.Temperature),
	})
	if err != nil {
		call.Done(0, 0, err)
		return "", p.classify(err)
	}
	call.SetModel(resp.Model)
	call.Done(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil)

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperrors.Newf(apperrors.CodeLLMProviderError, "%s returned no choices", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) classify(err error) error {
	apiErr := &openai.APIError{}
	if errors.As(err, &apiErr) {
		return FromHTTPStatus(p.name, apiErr.HTTPStatusCode, apiErr.Message)
	}
	reqErr := &openai.RequestError{}
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return FromHTTPStatus(p.name, reqErr.HTTPStatusCode, reqErr.Error())
	}
	return Classify(p.name, err)
}

func (p *OpenAIProvider) client(apiKey string) *openai.Client {
	fp := keyFingerprint(apiKey)

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[fp]; ok {
		return c
	}

	cfg := openai.DefaultConfig(apiKey)
	if p.config.BaseURL != "" {
		cfg.BaseURL = p.config.BaseURL
	}
	if p.config.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: p.config.Timeout}
	}
	c := openai.NewClientWithConfig(cfg)
	p.clients[fp] = c
	return c
}
