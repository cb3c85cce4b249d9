package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "script-studio-api/pkg/errors"
)

func TestFromHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   apperrors.ErrorCode
	}{
		{http.StatusTooManyRequests, apperrors.CodeRateLimited},
		{http.StatusUnauthorized, apperrors.CodeAuthInvalid},
		{http.StatusForbidden, apperrors.CodeAuthInvalid},
		{http.StatusNotFound, apperrors.CodeModelNotFound},
		{http.StatusInternalServerError, apperrors.CodeLLMProviderError},
		{http.StatusBadGateway, apperrors.CodeLLMProviderError},
	}
	for _, tc := range cases {
		err := FromHTTPStatus("gemini", tc.status, "vendor says no")
		assert.Equal(t, tc.want, apperrors.CodeOf(err), "status %d", tc.status)
		assert.Contains(t, err.Error(), "vendor says no")
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, apperrors.CodeRateLimited, apperrors.CodeOf(Classify("gemini", errors.New("error, status code: 429, RESOURCE_EXHAUSTED"))))
	assert.Equal(t, apperrors.CodeAuthInvalid, apperrors.CodeOf(Classify("gemini", errors.New("API key not valid. Please pass a valid API key."))))
	assert.Equal(t, apperrors.CodeModelNotFound, apperrors.CodeOf(Classify("deepseek", errors.New("The model `x` does not exist"))))
	assert.Equal(t, apperrors.CodeLLMProviderError, apperrors.CodeOf(Classify("deepseek", errors.New("connection reset by peer"))))

	assert.ErrorIs(t, Classify("gemini", context.Canceled), context.Canceled)
	assert.Nil(t, Classify("gemini", nil))

	already := apperrors.New(apperrors.CodeAuthInvalid, "bad key")
	assert.Same(t, already, Classify("gemini", already))
}
