// Package llm 提供各模型供应商的统一调用适配
package llm

import (
	"context"
)

// Provider 统一的生成能力：prompt + apiKey (+ model) -> text
//
// 实现需要把供应商错误转换为 pkg/errors 中的分类：
// CodeRateLimited (429)、CodeAuthInvalid (401/403)、CodeModelNotFound (404)，
// 其余为 CodeLLMProviderError 并携带供应商原始信息。
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt, apiKey, model string) (string, error)
}

// ProviderFunc 便于测试的函数式 Provider
type ProviderFunc func(ctx context.Context, prompt, apiKey, model string) (string, error)

// Name 实现 Provider
func (f ProviderFunc) Name() string { return "func" }

// Generate 实现 Provider
func (f ProviderFunc) Generate(ctx context.Context, prompt, apiKey, model string) (string, error) {
	return f(ctx, prompt, apiKey, model)
}
