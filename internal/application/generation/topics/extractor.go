// Package topics 将结构文档切分为主题块
package topics

import (
	"fmt"
	"strings"

	apperrors "script-studio-api/pkg/errors"
	"script-studio-api/pkg/metrics"
)

const (
	// DefaultMinBlockRunes 兜底策略的最小段落长度
	DefaultMinBlockRunes = 200
	previewRunes         = 300
)

// Result 切分结果
type Result struct {
	Blocks   []string
	Pattern  string
	Detected int
}

// MismatchError 所有策略都无法切出足够的主题块。
// Detected 为各策略中最接近的块数，BestPattern 为得到该块数的策略。
type MismatchError struct {
	Expected    int
	Detected    int
	BestPattern string
	Pattern     string
	Head        string
	Tail        string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("topic extraction failed: expected %d topics, detected %d (best pattern: %s, last pattern tried: %s); text head: %q; text tail: %q",
		e.Expected, e.Detected, e.BestPattern, e.Pattern, e.Head, e.Tail)
}

// Extractor 按顺序尝试各策略，第一个切出足够块数的策略胜出
type Extractor struct {
	strategies []Strategy
}

// NewExtractor 默认的启发式级联
func NewExtractor(minBlockRunes int) *Extractor {
	if minBlockRunes <= 0 {
		minBlockRunes = DefaultMinBlockRunes
	}
	return NewExtractorWith(
		LabeledColon(),
		LabeledHyphen(),
		LeadingNumber(),
		MarkdownHeading(),
		LargeParagraphs(minBlockRunes),
	)
}

// NewExtractorWith 使用自定义策略列表
func NewExtractorWith(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Extract 切分出 expected 个主题块
func (e *Extractor) Extract(text string, expected int) (*Result, error) {
	if expected <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidParam, "expected topic count must be positive, got %d", expected)
	}

	var (
		lastPattern string
		bestPattern string
		best        int
	)
	for _, s := range e.strategies {
		blocks := s.Split(text, expected)
		lastPattern = s.Name()
		detected := len(blocks)
		if detected > best || bestPattern == "" {
			best, bestPattern = detected, s.Name()
		}
		if detected >= expected {
			metrics.TopicExtractionTotal.WithLabelValues(s.Name(), "success").Inc()
			return &Result{
				Blocks:   blocks[:expected],
				Pattern:  s.Name(),
				Detected: detected,
			}, nil
		}
	}

	metrics.TopicExtractionTotal.WithLabelValues(lastPattern, "mismatch").Inc()
	mismatch := &MismatchError{
		Expected:    expected,
		Detected:    best,
		BestPattern: bestPattern,
		Pattern:     lastPattern,
		Head:        head(text, previewRunes),
		Tail:        tail(text, previewRunes),
	}
	return nil, apperrors.Wrap(mismatch, apperrors.CodeValidationFailed,
		fmt.Sprintf("expected %d topics but detected %d (best pattern: %s)", expected, best, bestPattern)).
		WithDetail(mismatch.Error())
}

func head(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}

func tail(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return "…" + string(r[len(r)-n:])
}
