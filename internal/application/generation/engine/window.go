package engine

import (
	"fmt"
	"strings"

	"script-studio-api/internal/domain/entity"
)

// DefaultContextWindow 最近 4 条消息（2 轮问答）
const DefaultContextWindow = 4

// formatContext 将消息序列化为 "{role}: {content}"，以空行分隔
func formatContext(messages []*entity.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(parts, "\n\n")
}

// withContext 把上下文窗口拼接在提示词之前
func withContext(history []*entity.Message, prompt string) string {
	block := formatContext(history)
	if block == "" {
		return prompt
	}
	return block + "\n\n" + prompt
}
