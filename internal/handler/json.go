package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// Response 是所有接口统一的响应信封。
// 校验问题、冲突和保存失败都属于业务数据而不是传输错误，
// 因此状态码几乎总是 200，结论通过 success 和 data 表达。
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("响应序列化失败", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{Success: true, Message: msg, Data: data})
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, msg string) {
	h.writeJSON(w, r, http.StatusOK, Response{Success: false, Message: msg})
}

// validationFailedResponse 把未通过的快速校验结果原样返回，
// 问题永远作为内联数据呈现，前端据此高亮具体的错误和建议
func (h *Handler) validationFailedResponse(w http.ResponseWriter, r *http.Request, result domain.ValidationResult) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: "排班校验未通过",
		Data:    result,
	})
}

// persistenceErrorResponse 区分持久化错误的类别，
// 告诉前端这次失败是否值得自动重试
func (h *Handler) persistenceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var pErr *domain.PersistenceError
	if !errors.As(err, &pErr) {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: "远端保存失败",
		Data: map[string]any{
			"type":      pErr.Type,
			"retryable": pErr.Retryable,
		},
	})
}

// badRequest 把请求体的结构校验错误翻译成中文后返回第一条
func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.errorResponse(w, r, validationErrors[0].Translate(h.translator))
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
	})
}
