package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "script-studio-api/pkg/errors"
)

// FromHTTPStatus 根据 HTTP 状态码构造分类错误
func FromHTTPStatus(provider string, status int, vendorMsg string) error {
	msg := strings.TrimSpace(vendorMsg)
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.Newf(apperrors.CodeRateLimited, "%s rate limited: %s", provider, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Newf(apperrors.CodeAuthInvalid, "%s rejected the API key: %s", provider, msg)
	case status == http.StatusNotFound:
		return apperrors.Newf(apperrors.CodeModelNotFound, "%s model not found: %s", provider, msg)
	default:
		return apperrors.Newf(apperrors.CodeLLMProviderError, "%s error (HTTP %d): %s", provider, status, msg)
	}
}

// Classify 对没有结构化状态码的错误按错误信息归类
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "429", "rate limit", "rate_limit", "too many requests", "quota", "resource_exhausted", "resource exhausted"):
		return apperrors.Wrap(err, apperrors.CodeRateLimited, fmt.Sprintf("%s rate limited", provider))
	case containsAny(msg, "401", "403", "unauthorized", "invalid api key", "incorrect api key", "api key not valid", "permission_denied", "authentication"):
		return apperrors.Wrap(err, apperrors.CodeAuthInvalid, fmt.Sprintf("%s rejected the API key", provider))
	case containsAny(msg, "404", "model not found", "model_not_found", "does not exist", "not_found"):
		return apperrors.Wrap(err, apperrors.CodeModelNotFound, fmt.Sprintf("%s model not found", provider))
	default:
		return apperrors.Wrap(err, apperrors.CodeLLMProviderError, fmt.Sprintf("%s call failed", provider))
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
