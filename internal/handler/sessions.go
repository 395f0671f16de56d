package handler

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/coordinator"
)

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date         string `json:"date" validate:"required,datetime=2006-01-02"`
		PlannerEmail string `json:"plannerEmail" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	session, err := h.sessions.Open(req.Date, req.PlannerEmail)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 签发会话令牌，后续请求据此路由到对应的协调器
	expiration := time.Now().Add(time.Duration(h.config.Session.Expiration) * time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Date:  req.Date,
		Email: req.PlannerEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Subject:   session.ID,
		},
	})
	ss, err := token.SignedString([]byte(h.config.Session.Secret))
	if err != nil {
		h.sessions.Close(session.ID)
		h.internalServerError(w, r, err)
		return
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	h.successResponse(w, r, "会话已打开", session.Coordinator.Snapshot())
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)
	h.sessions.Close(session.ID)

	http.SetCookie(w, &http.Cookie{
		Name:    sessionCookieName,
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
		Path:    "/",
	})

	h.successResponse(w, r, "会话已关闭", nil)
}
