package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"script-studio-api/internal/config"
	einoobs "script-studio-api/internal/observability/eino"
	apperrors "script-studio-api/pkg/errors"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnthropicProvider 调用 Anthropic Messages API
type AnthropicProvider struct {
	name       string
	config     config.ProviderConfig
	httpClient *http.Client
}

// NewAnthropicProvider 创建 Anthropic 适配器
func NewAnthropicProvider(name string, cfg config.ProviderConfig) *AnthropicProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &AnthropicProvider{
		name:       name,
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name 实现 Provider
func (p *AnthropicProvider) Name() string { return p.name }

// Generate 实现 Provider
func (p *AnthropicProvider) Generate(ctx context.Context, prompt, apiKey, modelName string) (string, error) {
	if modelName == "" {
		modelName = p.config.Model
	}
	maxTokens := p.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		Temperature: p.config.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	baseURL := strings.TrimRight(p.config.BaseURL, "/")
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	ctx, call := einoobs.StartCall(ctx, p.name, modelName)
	out, err := p.do(req.WithContext(ctx))
	if err != nil {
		call.Done(0, 0, err)
		return "", err
	}
	call.Done(out.Usage.InputTokens, out.Usage.OutputTokens, nil)

	var sb strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", apperrors.Newf(apperrors.CodeLLMProviderError, "%s returned no text content", p.name)
	}
	return sb.String(), nil
}

func (p *AnthropicProvider) do(req *http.Request) (*anthropicResponse, error) {
	ctx := req.Context()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, fmt.Sprintf("%s request failed", p.name))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, fmt.Sprintf("%s response unreadable", p.name))
	}
	if resp.StatusCode != http.StatusOK {
		var errResp anthropicErrorResponse
		msg := string(raw)
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Type + ": " + errResp.Error.Message
		}
		return nil, FromHTTPStatus(p.name, resp.StatusCode, msg)
	}

	var out anthropicResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, fmt.Sprintf("%s response malformed", p.name))
	}
	return &out, nil
}
