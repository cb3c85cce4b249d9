package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/config"
	apperrors "script-studio-api/pkg/errors"
)

func TestAnthropicProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, "olá", req.Messages[0].Content)

		switch r.Header.Get("x-api-key") {
		case "limited":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
		case "revoked":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
		default:
			_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"resposta"}],"usage":{"input_tokens":3,"output_tokens":2}}`))
		}
	}))
	defer srv.Close()

	p := NewAnthropicProvider("anthropic", config.ProviderConfig{BaseURL: srv.URL, Model: "claude-test"})

	out, err := p.Generate(context.Background(), "olá", "good", "")
	require.NoError(t, err)
	assert.Equal(t, "resposta", out)

	_, err = p.Generate(context.Background(), "olá", "limited", "")
	assert.Equal(t, apperrors.CodeRateLimited, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "slow down")

	_, err = p.Generate(context.Background(), "olá", "revoked", "")
	assert.Equal(t, apperrors.CodeAuthInvalid, apperrors.CodeOf(err))
}
