package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/config"
	apperrors "script-studio-api/pkg/errors"
)

func testConfig(mode string) *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		Mode:            mode,
		DefaultProvider: "gemini",
		Providers: map[string]config.ProviderConfig{
			"gemini":    {Kind: KindOpenAICompatible, APIKeys: []string{"g1", " ", "g2"}, Model: "gemini-2.0-flash", BaseURL: "https://example.invalid/v1"},
			"openai":    {Kind: KindOpenAI, Model: "gpt-4o-mini"},
			"anthropic": {Kind: KindAnthropic, Model: "claude-3-5-haiku-latest"},
		},
	}}
}

func TestRegistry_BuildsAdaptersByKind(t *testing.T) {
	r := NewRegistry(testConfig(""))

	p, err := r.Get("")
	require.NoError(t, err)
	assert.IsType(t, &EinoProvider{}, p)
	assert.Equal(t, "gemini", p.Name())

	p, err = r.Get("openai")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIProvider{}, p)

	p, err = r.Get("anthropic")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicProvider{}, p)

	_, err = r.Get("mock")
	require.NoError(t, err)

	_, err = r.Get("nope")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParam))

	assert.Equal(t, []string{"anthropic", "gemini", "mock", "openai"}, r.Names())
	assert.Equal(t, []string{"g1", "g2"}, r.DefaultKeys(""))
	assert.Equal(t, "gemini-2.0-flash", r.DefaultModel("gemini"))
	assert.Empty(t, r.DefaultKeys("openai"))
	assert.Equal(t, []string{"mock-key"}, r.DefaultKeys("mock"))
}

func TestRegistry_MockModeReplacesEveryAdapter(t *testing.T) {
	r := NewRegistry(testConfig("mock"))
	for _, name := range r.Names() {
		p, err := r.Get(name)
		require.NoError(t, err)
		assert.IsType(t, &MockProvider{}, p, name)
	}
	assert.Equal(t, []string{"mock-key"}, r.DefaultKeys("openai"))
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider("mock")

	out, err := m.Generate(context.Background(), "Divida em exatamente 3 tópicos", "k", "")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "TÓPICO "))
	assert.True(t, strings.HasPrefix(out, "TÓPICO 1:"))

	out, err = m.Generate(context.Background(), "user: quero 3 tópicos\n\nassistant: ok\n\nEscreva o hook", "k", "")
	require.NoError(t, err)
	assert.Equal(t, "Resposta simulada (mock): Escreva o hook", out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Generate(ctx, "x", "k", "")
	assert.ErrorIs(t, err, context.Canceled)
}
