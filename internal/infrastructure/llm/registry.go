package llm

import (
	"fmt"
	"sort"
	"strings"

	"script-studio-api/internal/config"
	apperrors "script-studio-api/pkg/errors"
)

// 适配器类型
const (
	KindOpenAICompatible = "openai_compatible"
	KindOpenAI           = "openai"
	KindAnthropic        = "anthropic"
	KindMock             = "mock"
)

// Registry 按名称管理已配置的 Provider
type Registry struct {
	config    *config.LLMConfig
	providers map[string]Provider
}

// NewRegistry 根据配置创建所有 Provider
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		config:    &cfg.LLM,
		providers: make(map[string]Provider, len(cfg.LLM.Providers)),
	}
	for name, pc := range cfg.LLM.Providers {
		r.providers[name] = newProvider(name, pc, cfg.LLM.IsMock())
	}
	if _, ok := r.providers[KindMock]; !ok {
		r.providers[KindMock] = NewMockProvider(KindMock)
	}
	return r
}

func newProvider(name string, pc config.ProviderConfig, forceMock bool) Provider {
	if forceMock {
		return NewMockProvider(name)
	}
	switch strings.ToLower(pc.Kind) {
	case KindOpenAI:
		return NewOpenAIProvider(name, pc)
	case KindAnthropic:
		return NewAnthropicProvider(name, pc)
	case KindMock:
		return NewMockProvider(name)
	default:
		return NewEinoProvider(name, pc)
	}
}

// Register 注册或替换 Provider
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get 获取指定名称的 Provider，名称为空时使用默认提供商
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.config.DefaultProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeInvalidParam, "provider %q is not configured", name)
	}
	return p, nil
}

// DefaultModel 返回提供商配置的默认模型
func (r *Registry) DefaultModel(name string) string {
	if name == "" {
		name = r.config.DefaultProvider
	}
	return r.config.Providers[name].Model
}

// DefaultKeys 返回配置文件中为提供商声明的密钥
func (r *Registry) DefaultKeys(name string) []string {
	if name == "" {
		name = r.config.DefaultProvider
	}
	var keys []string
	for _, k := range r.config.Providers[name].APIKeys {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 && (r.config.IsMock() || strings.EqualFold(r.config.Providers[name].Kind, KindMock) || name == KindMock) {
		keys = []string{"mock-key"}
	}
	return keys
}

// Names 返回所有提供商名称
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String 用于日志
func (r *Registry) String() string {
	return fmt.Sprintf("llm.Registry%v", r.Names())
}
