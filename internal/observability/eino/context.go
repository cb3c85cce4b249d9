// Package eino 将 Eino 组件回调接入 Prometheus 与 OpenTelemetry
package eino

import (
	"context"
	"strings"
)

type ctxKey string

const (
	ctxKeyWorkflow ctxKey = "llm_workflow"
	ctxKeyProvider ctxKey = "llm_provider"
)

// WithWorkflowProvider 在 context 中标记调用所属流程与提供商，用作指标标签
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	if w := strings.TrimSpace(workflow); w != "" && ctx.Value(ctxKeyWorkflow) == nil {
		ctx = context.WithValue(ctx, ctxKeyWorkflow, w)
	}
	if p := strings.TrimSpace(provider); p != "" {
		ctx = context.WithValue(ctx, ctxKeyProvider, p)
	}
	return ctx
}

// WithWorkflow 仅标记流程名称
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if w := strings.TrimSpace(workflow); w != "" {
		ctx = context.WithValue(ctx, ctxKeyWorkflow, w)
	}
	return ctx
}

// WorkflowFromContext 读取流程名称
func WorkflowFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, ctxKeyWorkflow)
}

// ProviderFromContext 读取提供商名称
func ProviderFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, ctxKeyProvider)
}

func valueOrUnknown(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
