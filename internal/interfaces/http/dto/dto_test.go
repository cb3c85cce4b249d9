package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
	apperrors "script-studio-api/pkg/errors"
)

func TestAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		code    apperrors.ErrorCode
		message string
	}{
		{"not found", apperrors.Newf(apperrors.CodeSessionNotFound, "session %s not found", "s1"), http.StatusNotFound, apperrors.CodeSessionNotFound, "session s1 not found"},
		{"busy", apperrors.ErrSessionBusy, http.StatusConflict, apperrors.CodeSessionBusy, "session already has an active run"},
		{"plain error hides detail", errors.New("pq: password authentication failed"), http.StatusInternalServerError, apperrors.CodeUnknown, "internal server error"},
		{"timeout", apperrors.New(apperrors.CodeTimeout, "too slow"), http.StatusGatewayTimeout, apperrors.CodeTimeout, "too slow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set("trace_id", "trace-1")

			AppError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Code)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, string(tt.code), body.Error.ErrorCode)
			assert.Equal(t, "trace-1", body.TraceID)
		})
	}
}

func TestBindPageAndClientID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=0&page_size=500&client_id=q", nil)

	page := BindPage(c)
	assert.Equal(t, repository.Pagination{Page: 1, PageSize: 100}, page)
	assert.Equal(t, "q", ClientID(c))

	c.Request.Header.Set(ClientIDHeader, " h ")
	assert.Equal(t, "h", ClientID(c))
}

func TestGenerationRequest_ToRequest(t *testing.T) {
	req := GenerationRequest{TemplateID: "documentario", APIKeys: []string{"a"}}
	assert.True(t, req.HasSource())
	out := req.ToRequest("header-client")
	assert.Equal(t, "header-client", out.ClientID)
	assert.Equal(t, []string{"a"}, out.APIKeys)

	req.ClientID = "body-client"
	assert.Equal(t, "body-client", req.ToRequest("header-client").ClientID)
	assert.False(t, (&GenerationRequest{Provider: "gemini"}).HasSource())
}

func TestNewSessionFilesResponse(t *testing.T) {
	s := entity.NewSession("doc", nil)
	s.Status = entity.SessionStatusCompleted
	s.Responses["HOOK"] = "hook"
	s.Responses["ESTRUTURA"] = "outline"

	resp := NewSessionFilesResponse(s)
	assert.Equal(t, "completed", resp.Status)
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "hook", resp.Files[0].Content)
	assert.Equal(t, "outline", resp.Files[1].Content)
}

func TestToPreferenceResponse_HidesKeys(t *testing.T) {
	p := (&PreferenceRequest{Provider: "openai", APIKeys: map[string][]string{"openai": {"sk-1"}}}).ToEntity("c1")
	resp := ToPreferenceResponse(p)
	assert.Equal(t, map[string]int{"openai": 1}, resp.KeyCounts)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-1")
}

func TestNewPageMeta(t *testing.T) {
	assert.Equal(t, 3, NewPageMeta(1, 10, 21).TotalPages)
	assert.Equal(t, 0, NewPageMeta(1, 10, 0).TotalPages)
}
