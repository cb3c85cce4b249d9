package rotation

import (
	"context"
	"fmt"
	"strings"

	"script-studio-api/internal/infrastructure/llm"
	apperrors "script-studio-api/pkg/errors"
	"script-studio-api/pkg/logger"
	"script-studio-api/pkg/metrics"
)

// Request 一次生成请求
type Request struct {
	Prompt string
	Keys   []string
	Model  string
}

// Result 生成结果
type Result struct {
	Text string
	// KeyIndex 最终成功的密钥序号
	KeyIndex int
	// Calls 本次共调用 Provider 的次数
	Calls int
}

// Rotator 按顺序尝试密钥；每个密钥内部有有限次数的退避重试。
// 除构造参数外不持有状态，可被多个会话并发使用。
type Rotator struct {
	policy  Policy
	sleeper Sleeper
}

// New 创建 Rotator，sleeper 为 nil 时使用真实计时器
func New(policy Policy, sleeper Sleeper) *Rotator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if sleeper == nil {
		sleeper = TimerSleeper
	}
	return &Rotator{policy: policy, sleeper: sleeper}
}

// Generate 使用密钥轮换生成文本
//
//   - RateLimited / AuthInvalid：立即换下一个密钥，不退避
//   - ModelNotFound：直接返回，不再尝试其他密钥
//   - 其他错误：在当前密钥上退避重试，用尽后换下一个密钥
//
// 所有密钥都失败时返回 CodeKeysExhausted，并包裹最后一个底层错误。
func (r *Rotator) Generate(ctx context.Context, provider llm.Provider, req Request) (*Result, error) {
	keys := nonEmpty(req.Keys)
	if len(keys) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "at least one API key is required")
	}

	res := &Result{}
	var lastErr error
	for i, key := range keys {
		text, err := r.attempt(ctx, provider, key, req, res)
		if err == nil {
			res.Text = text
			res.KeyIndex = i
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		code := apperrors.CodeOf(err)
		if code == apperrors.CodeModelNotFound {
			return nil, err
		}

		reason := "transient"
		switch code {
		case apperrors.CodeRateLimited:
			reason = "rate_limited"
		case apperrors.CodeAuthInvalid:
			reason = "auth_invalid"
		}
		if i < len(keys)-1 {
			metrics.KeyRotationTotal.WithLabelValues(reason).Inc()
			logger.Warn(ctx, "rotating API key",
				"provider", provider.Name(),
				"key_index", i,
				"next_key_index", i+1,
				"reason", reason,
				"error", err.Error(),
			)
		}
	}

	return nil, apperrors.Wrap(lastErr, apperrors.CodeKeysExhausted,
		fmt.Sprintf("all %d API keys exhausted for %s", len(keys), provider.Name()))
}

// attempt 在单个密钥上执行有限次数的退避重试
func (r *Rotator) attempt(ctx context.Context, provider llm.Provider, key string, req Request, res *Result) (string, error) {
	var err error
	for n := 1; n <= r.policy.MaxAttempts; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		var text string
		res.Calls++
		text, err = provider.Generate(ctx, req.Prompt, key, req.Model)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) || n == r.policy.MaxAttempts {
			return "", err
		}

		delay := r.policy.Backoff.Delay(n)
		metrics.RetryBackoffSeconds.Observe(delay.Seconds())
		logger.Debug(ctx, "retrying provider call",
			"provider", provider.Name(),
			"attempt", n,
			"delay", delay.String(),
			"error", err.Error(),
		)
		if sleepErr := r.sleeper.Sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
	}
	return "", err
}

// retryable 只有非分类的临时错误在同一密钥上重试
func retryable(err error) bool {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeRateLimited, apperrors.CodeAuthInvalid, apperrors.CodeModelNotFound:
		return false
	default:
		return true
	}
}

func nonEmpty(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) != "" {
			out = append(out, strings.TrimSpace(k))
		}
	}
	return out
}
