package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/coordinator"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// ValidateAssignment 对一个候选排班做快速校验，不改变任何状态，
// 供前端在拖拽过程中获取即时反馈
func (h *Handler) ValidateAssignment(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)

	var req struct {
		StationID  int64  `json:"stationID" validate:"required"`
		EmployeeID int64  `json:"employeeID" validate:"required"`
		Date       string `json:"date" validate:"required,datetime=2006-01-02"`
		ShiftID    int64  `json:"shiftID" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	data := session.Coordinator.PlanningData()
	demandID := domain.MakeDemandID(req.StationID, req.ShiftID, req.Date)

	input, msg := h.buildValidationInput(data, demandID, req.EmployeeID, "")
	if input == nil {
		h.errorResponse(w, r, msg)
		return
	}

	result := h.checker.ValidateAssignment(*input)
	h.successResponse(w, r, "校验完成", result)
}

// GetViolations 对当前会话的完整排班集合跑一遍批量约束检测，
// 覆盖周工时上限这类跨排班的规则
func (h *Handler) GetViolations(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)

	data := session.Coordinator.PlanningData()

	date, err := time.Parse("2006-01-02", data.Date)
	if err != nil {
		date = time.Now()
	}

	result := h.constraints.ValidateAndFormat(data.Assignments, data.Context(date))
	h.successResponse(w, r, "检测完成", result)
}
