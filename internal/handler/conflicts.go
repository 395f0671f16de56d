package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/coordinator"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

func (h *Handler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)
	conflictID := chi.URLParam(r, "id")

	var req struct {
		Action             string             `json:"action" validate:"required,oneof=accept_local accept_remote merge"`
		ResolvedAssignment *domain.Assignment `json:"resolvedAssignment"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	resolution := domain.ConflictResolution{
		Action:             domain.ResolutionAction(req.Action),
		ResolvedAssignment: req.ResolvedAssignment,
	}

	if err := session.Coordinator.ResolveConflict(conflictID, resolution); err != nil {
		switch {
		case errors.Is(err, coordinator.ErrMergeRequiresAssignment):
			h.badRequest(w, r, err)
		default:
			// 解决失败时冲突保持未解决状态，用户可以重试
			h.persistenceErrorResponse(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "冲突已处理", session.Coordinator.Snapshot())
}
