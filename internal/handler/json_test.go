package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	h, err := NewHandler(&config.Config{}, nil, nil, nil)
	require.NoError(t, err)
	return h
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestSuccessResponseEnvelope(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)

	h.successResponse(rec, req, "获取成功", map[string]any{"count": 1})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	require.Equal(t, "获取成功", resp.Message)
	require.NotNil(t, resp.Data)
}

func TestValidationFailedResponseCarriesIssues(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/assignments", nil)

	h.validationFailedResponse(rec, req, domain.ValidationResult{
		IsValid: false,
		Errors: []domain.ValidationIssue{
			{Kind: domain.ErrKindCapacityExceeded, Message: "工位已满"},
		},
		Suggestions: []string{"选择其他工位"},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "排班校验未通过", resp.Message)

	// 校验结果作为内联数据返回，前端直接读取 errors 和 suggestions
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, false, data["isValid"])
	require.Len(t, data["errors"], 1)
	require.Len(t, data["suggestions"], 1)
}

func TestPersistenceErrorResponseExposesRetryability(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	// 网络错误可以重试
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/sessions/s1/assignments/a1", nil)
	h.persistenceErrorResponse(rec, req, domain.NewNetworkError(errors.New("connection refused")))

	resp := decodeResponse(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "远端保存失败", resp.Message)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "network", data["type"])
	require.Equal(t, true, data["retryable"])

	// 未知错误不建议重试
	rec = httptest.NewRecorder()
	h.persistenceErrorResponse(rec, req, domain.NewUnknownError(errors.New("boom")))

	resp = decodeResponse(t, rec)
	data, ok = resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "unknown", data["type"])
	require.Equal(t, false, data["retryable"])
}

func TestPersistenceErrorResponseFallsBackOnPlainError(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/sessions/s1/assignments/a1", nil)

	h.persistenceErrorResponse(rec, req, errors.New("排班不存在"))

	resp := decodeResponse(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "排班不存在", resp.Message)
	require.Nil(t, resp.Data)
}

func TestBadRequestTranslatesValidationErrors(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/assignments", nil)

	var body struct {
		DemandID   string `json:"demandID" validate:"required"`
		EmployeeID int64  `json:"employeeID" validate:"required"`
	}
	err := h.validate.Struct(body)
	require.Error(t, err)

	h.badRequest(rec, req, err)

	resp := decodeResponse(t, rec)
	require.False(t, resp.Success)
	// 结构校验错误翻译成中文后只返回第一条
	require.Contains(t, resp.Message, "DemandID")
	require.Contains(t, resp.Message, "必填字段")
}
