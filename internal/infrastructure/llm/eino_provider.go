package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"script-studio-api/internal/config"
	einoobs "script-studio-api/internal/observability/eino"
	apperrors "script-studio-api/pkg/errors"
)

// EinoProvider 通过 Eino 的 OpenAI 兼容适配器调用模型（Gemini / DeepSeek / 任意兼容端点）
type EinoProvider struct {
	name   string
	config config.ProviderConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoProvider 创建 Eino 适配器
func NewEinoProvider(name string, cfg config.ProviderConfig) *EinoProvider {
	return &EinoProvider{
		name:   name,
		config: cfg,
		models: make(map[string]model.BaseChatModel),
	}
}

// Name 实现 Provider
func (p *EinoProvider) Name() string { return p.name }

// Generate 实现 Provider
func (p *EinoProvider) Generate(ctx context.Context, prompt, apiKey, modelName string) (string, error) {
	if modelName == "" {
		modelName = p.config.Model
	}
	chatModel, err := p.get(ctx, apiKey, modelName)
	if err != nil {
		return "", err
	}

	ctx = einoobs.WithWorkflowProvider(ctx, "script_generate", p.name)
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      p.name,
		Type:      "OpenAICompatible",
		Component: components.ComponentOfChatModel,
	})

	msg, err := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", Classify(p.name, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", apperrors.Newf(apperrors.CodeLLMProviderError, "%s returned an empty reply", p.name)
	}
	return msg.Content, nil
}

// get 按 (key, model) 惰性创建并复用 ChatModel
func (p *EinoProvider) get(ctx context.Context, apiKey, modelName string) (model.BaseChatModel, error) {
	cacheKey := keyFingerprint(apiKey) + "|" + modelName

	p.mu.RLock()
	m, ok := p.models[cacheKey]
	p.mu.RUnlock()
	if ok {
		return m, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = p.models[cacheKey]; ok {
		return m, nil
	}

	maxTokens := p.config.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     p.config.BaseURL,
		Model:       modelName,
		MaxTokens:   &maxTokens,
		Temperature: ptrFloat32(float32(p.config.Temperature)),
		Timeout:     p.config.Timeout,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, fmt.Sprintf("failed to create chat model for %s", p.name))
	}

	p.models[cacheKey] = chatModel
	return chatModel, nil
}

// keyFingerprint 避免明文密钥作为缓存键或出现在日志中
func keyFingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:6])
}

func ptrFloat32(f float32) *float32 {
	return &f
}
