// Package rotation 实现多密钥轮换与指数退避重试
package rotation

import (
	"context"
	"math"
	"time"

	"script-studio-api/internal/config"
)

// Sleeper 可注入的等待原语，测试中可替换为不真正等待的实现
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc 函数式 Sleeper
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep 实现 Sleeper
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerSleeper struct{}

// TimerSleeper 基于 time.Timer 的真实等待，可被 ctx 取消
var TimerSleeper Sleeper = timerSleeper{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff 指数退避：第 n 次失败后等待 min(Base*2^(n-1), Cap)
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// Delay 返回第 attempt 次（从 1 开始）失败后的等待时长
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 || b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		if b.Cap > 0 && d >= b.Cap {
			return b.Cap
		}
		if d > math.MaxInt64/2 {
			return d
		}
		d *= 2
	}
	if b.Cap > 0 && d > b.Cap {
		return b.Cap
	}
	return d
}

// Policy 重试策略
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
}

// DefaultPolicy 默认 3 次尝试
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Backoff{Base: 2 * time.Second, Cap: 30 * time.Second},
	}
}

// PolicyFromConfig 从生成配置构造策略
func PolicyFromConfig(cfg config.GenerationConfig) Policy {
	p := Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     Backoff{Base: cfg.BaseDelay, Cap: cfg.CapDelay},
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}
