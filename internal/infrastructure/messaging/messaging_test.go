package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/config"
	"script-studio-api/pkg/logger"
)

func TestCalculateBackoff(t *testing.T) {
	b := BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, b.CalculateBackoff(0))
	assert.Equal(t, 4*time.Second, b.CalculateBackoff(2))
	assert.Equal(t, 10*time.Second, b.CalculateBackoff(5))
}

func TestBackoffFromConfig(t *testing.T) {
	assert.Equal(t, DefaultBackoffConfig(), BackoffFromConfig(config.BackoffConfig{}))

	b := BackoffFromConfig(config.BackoffConfig{Initial: 2 * time.Second, Multiplier: 3})
	assert.Equal(t, 2*time.Second, b.Initial)
	assert.Equal(t, time.Minute, b.Max)
	assert.Equal(t, 3.0, b.Multiplier)
}

func TestStreamNames(t *testing.T) {
	assert.Equal(t, "dlq:stream:script:gen", StreamScriptGen.DLQStream())
	assert.Equal(t, ConsumerGroupScriptWorker, GroupWithPrefix("", ConsumerGroupScriptWorker))
	assert.Equal(t, ConsumerGroup("prod-cg-script-worker"), GroupWithPrefix("prod", ConsumerGroupScriptWorker))
}

func TestDecodeMessage(t *testing.T) {
	msg, err := NewMessage("job-1", MessageTypeGeneration, &GenerationJobMessage{JobID: "job-1", SessionID: "s-1"})
	require.NoError(t, err)
	msg.SessionID = "s-1"
	msg.SetMetadata("request_id", "req-9")
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	got, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]any{"data": string(data)}})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeGeneration, got.Type)

	var job GenerationJobMessage
	require.NoError(t, got.UnmarshalPayload(&job))
	assert.Equal(t, "s-1", job.SessionID)

	ctx := messageContext(context.Background(), got)
	assert.Equal(t, "s-1", ctx.Value(logger.SessionIDKey))
	assert.Equal(t, "req-9", ctx.Value(logger.RequestIDKey))

	_, err = decodeMessage(redis.XMessage{ID: "2-0", Values: map[string]any{}})
	assert.Error(t, err)
	_, err = decodeMessage(redis.XMessage{ID: "3-0", Values: map[string]any{"data": "{"}})
	assert.Error(t, err)
}

func TestNewConsumerDefaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{Stream: StreamScriptGen, Group: ConsumerGroupScriptWorker})
	assert.Equal(t, 3, c.retryLimit)
	assert.Equal(t, 5*time.Second, c.blockTimeout)
	assert.Equal(t, 20*time.Minute, c.reclaimIdle)
	assert.Equal(t, DefaultBackoffConfig(), c.backoff)
}
