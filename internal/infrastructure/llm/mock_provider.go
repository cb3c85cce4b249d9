package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MockProvider 离线模拟实现，回复内容可预测
type MockProvider struct {
	name string
}

// NewMockProvider 创建模拟适配器
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

var _ Provider = (*MockProvider)(nil)

var topicCountPattern = regexp.MustCompile(`(?i)(\d+)\s+(t[oó]picos|topics|curiosidades|curiosities|atos|acts)`)

// Name 实现 Provider
func (m *MockProvider) Name() string { return m.name }

// Generate 实现 Provider
func (m *MockProvider) Generate(ctx context.Context, prompt, apiKey, modelName string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	// 请求结构时按提示词中的数量生成带编号的主题；带上下文的后续步骤不生成
	if match := topicCountPattern.FindStringSubmatch(prompt); match != nil && !hasContext(prompt) {
		n, _ := strconv.Atoi(match[1])
		if n > 0 && n <= 50 {
			var sb strings.Builder
			for i := 1; i <= n; i++ {
				fmt.Fprintf(&sb, "TÓPICO %d: Tema simulado número %d\nDesenvolvimento resumido do tema %d.\n\n", i, i, i)
			}
			return strings.TrimSpace(sb.String()), nil
		}
	}

	head := []rune(strings.TrimSpace(lastParagraph(prompt)))
	if len(head) > 80 {
		head = head[:80]
	}
	return fmt.Sprintf("Resposta simulada (%s): %s", m.name, string(head)), nil
}

func lastParagraph(s string) string {
	parts := strings.Split(strings.TrimSpace(s), "\n\n")
	return parts[len(parts)-1]
}

func hasContext(prompt string) bool {
	return strings.HasPrefix(prompt, "user: ") || strings.HasPrefix(prompt, "assistant: ")
}
