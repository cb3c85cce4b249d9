package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"script-studio-api/pkg/logger"
)

func TestWorkflowProvider(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", WorkflowFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))

	ctx = WithWorkflow(ctx, "loop_iteration")
	ctx = WithWorkflowProvider(ctx, "script_generate", "gemini")
	assert.Equal(t, "loop_iteration", WorkflowFromContext(ctx), "an outer workflow label wins")
	assert.Equal(t, "gemini", ProviderFromContext(ctx))

	ctx = WithWorkflowProvider(context.Background(), " ", "")
	assert.Equal(t, "unknown", WorkflowFromContext(ctx))
}

func TestCallRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx := WithWorkflow(context.Background(), "script_step")
	ctx = logger.WithContext(ctx, logger.SessionIDKey, "s-1")
	_, call := StartCall(ctx, "openai", "gpt-4o-mini")
	call.SetModel("gpt-4o-mini-2024")
	call.Done(10, 20, nil)

	_, failed := StartCall(context.Background(), "anthropic", "haiku")
	failed.Done(0, 0, errors.New("boom"))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "script_step", attrs["llm.workflow"])
	assert.Equal(t, "s-1", attrs["session_id"])
	assert.Equal(t, "20", attrs["llm.completion_tokens"])
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
