package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionCookieName = "__shift_planner_session"

type SessionClaims struct {
	Date  string `json:"date"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// session 把请求绑定到它所属的规划会话。
// 身份认证由外部系统负责，这里的令牌只标识会话。
func (h *Handler) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			switch {
			case errors.Is(err, http.ErrNoCookie):
				h.errorResponse(w, r, "尚未打开规划会话")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		claims := &SessionClaims{}
		_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.Session.Secret), nil
		})
		if err != nil {
			h.errorResponse(w, r, "无效的会话令牌")
			return
		}

		session := h.sessions.Get(claims.Subject)
		if session == nil {
			h.errorResponse(w, r, "会话不存在或已关闭")
			return
		}

		ctx := context.WithValue(r.Context(), SessionCtxKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
