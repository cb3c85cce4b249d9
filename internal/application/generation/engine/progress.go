package engine

import "math"

// progress 单次运行内单调不减的进度；消息事件最多到 99，100 只属于完成事件
type progress struct {
	total int
	last  int
}

func newProgress(totalSteps int) *progress {
	return &progress{total: totalSteps}
}

// at 计算 (stepIndex + frac) / total 的百分比
func (p *progress) at(stepIndex int, frac float64) int {
	if p.total <= 0 {
		return p.last
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	v := int(math.Floor((float64(stepIndex) + frac) / float64(p.total) * 100))
	if v > 99 {
		v = 99
	}
	if v < p.last {
		v = p.last
	}
	p.last = v
	return v
}
