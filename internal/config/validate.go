package config

import (
	"fmt"
	"strings"
)

// 循环续跑策略
const (
	LoopResumeOutputs = "outputs"
	LoopResumeMarkers = "markers"
)

// Validate 校验配置的基本约束
func (c *Config) Validate() error {
	g := c.Generation
	if g.MaxAttempts < 1 {
		return fmt.Errorf("generation.max_attempts must be >= 1, got %d", g.MaxAttempts)
	}
	if g.BaseDelay < 0 || g.CapDelay < 0 || g.StepDelay < 0 {
		return fmt.Errorf("generation delays must not be negative")
	}
	if g.CapDelay > 0 && g.BaseDelay > g.CapDelay {
		return fmt.Errorf("generation.base_delay (%s) exceeds cap_delay (%s)", g.BaseDelay, g.CapDelay)
	}
	if g.ContextWindow < 0 {
		return fmt.Errorf("generation.context_window must not be negative")
	}
	switch strings.ToLower(g.LoopResume) {
	case "", LoopResumeOutputs, LoopResumeMarkers:
	default:
		return fmt.Errorf("generation.loop_resume must be %q or %q, got %q", LoopResumeOutputs, LoopResumeMarkers, g.LoopResume)
	}
	if c.TTS.ChunkSize <= 0 {
		return fmt.Errorf("tts.chunk_size must be positive")
	}

	if c.LLM.IsMock() || len(c.LLM.Providers) == 0 {
		return nil
	}
	if _, ok := c.LLM.Providers[c.LLM.DefaultProvider]; !ok {
		return fmt.Errorf("llm.default_provider %q is not configured", c.LLM.DefaultProvider)
	}
	return nil
}

// IsMock 是否启用离线模拟模式
func (c LLMConfig) IsMock() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), "mock")
}

// DSN 返回 PostgreSQL 连接串
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Addr 返回 Redis 地址
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
