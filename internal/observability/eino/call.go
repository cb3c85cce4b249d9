package eino

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"script-studio-api/pkg/logger"
	"script-studio-api/pkg/metrics"
	"script-studio-api/pkg/tracer"
)

// Call 一次模型调用的观测：span、调用计数、耗时与 token 用量
type Call struct {
	span     trace.Span
	workflow string
	provider string
	model    string
	start    time.Time
	now      func() time.Time
}

// StartCall 开始观测一次调用，返回的 ctx 携带 span
func StartCall(ctx context.Context, provider, model string) (context.Context, *Call) {
	c := &Call{
		workflow: WorkflowFromContext(ctx),
		provider: provider,
		model:    model,
		now:      time.Now,
	}
	if provider == "" {
		c.provider = ProviderFromContext(ctx)
	}
	c.start = c.now()

	attrs := []attribute.KeyValue{
		attribute.String("llm.workflow", c.workflow),
		attribute.String("llm.provider", c.provider),
		attribute.String("llm.model", model),
	}
	for _, key := range []logger.ContextKey{logger.SessionIDKey, logger.StepIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, attribute.String(string(key), v))
		}
	}
	ctx, c.span = tracer.Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	return ctx, c
}

// SetModel 响应里的模型名比请求更准确时覆盖
func (c *Call) SetModel(model string) {
	if model != "" {
		c.model = model
	}
}

// Done 结束调用，err 非空时计为失败
func (c *Call) Done(promptTokens, completionTokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
		tracer.Fail(c.span, err)
	}
	metrics.LLMCallTotal.WithLabelValues(c.workflow, c.provider, c.model, status).Inc()
	metrics.LLMCallDuration.WithLabelValues(c.workflow, c.provider, c.model).Observe(c.now().Sub(c.start).Seconds())

	if err == nil && promptTokens+completionTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues(c.workflow, c.provider, c.model, "prompt").Add(float64(promptTokens))
		metrics.LLMTokensUsed.WithLabelValues(c.workflow, c.provider, c.model, "completion").Add(float64(completionTokens))
		c.span.SetAttributes(
			attribute.Int("llm.prompt_tokens", promptTokens),
			attribute.Int("llm.completion_tokens", completionTokens),
		)
	}
	c.span.End()
}
