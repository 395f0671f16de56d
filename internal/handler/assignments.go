package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/coordinator"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/validation"
)

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)
	h.successResponse(w, r, "获取规划状态成功", session.Coordinator.Snapshot())
}

func (h *Handler) AddAssignment(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)

	var req struct {
		DemandID    string  `json:"demandID" validate:"required"`
		EmployeeID  int64   `json:"employeeID" validate:"required"`
		Score       float64 `json:"score"`
		Explanation string  `json:"explanation"`
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

	input, msg := h.buildValidationInput(data, req.DemandID, req.EmployeeID, "")
	if input == nil {
		h.errorResponse(w, r, msg)
		return
	}

	// 先做同步快速校验，error 级别的问题阻止乐观应用，warning 不阻止
	result := h.checker.ValidateAssignment(*input)
	if !result.IsValid {
		h.validationFailedResponse(w, r, result)
		return
	}

	assignment := session.Coordinator.AddAssignment(&domain.Assignment{
		DemandID:    req.DemandID,
		EmployeeID:  req.EmployeeID,
		Score:       req.Score,
		Explanation: req.Explanation,
		Status:      domain.AssignmentProposed,
		CreatedBy:   session.PlannerEmail,
	})

	h.successResponse(w, r, "排班已添加", map[string]any{
		"assignment": assignment,
		"validation": result,
	})
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)
	assignmentID := chi.URLParam(r, "id")

	var req struct {
		DemandID    *string  `json:"demandID"`
		EmployeeID  *int64   `json:"employeeID"`
		Status      *string  `json:"status" validate:"omitempty,oneof=proposed confirmed rejected"`
		Score       *float64 `json:"score"`
		Explanation *string  `json:"explanation"`
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

	var current *domain.Assignment
	for _, a := range data.Assignments {
		if a.ID == assignmentID {
			current = a
			break
		}
	}
	if current == nil {
		h.errorResponse(w, r, "排班不存在")
		return
	}

	updated := current.Clone()
	if req.DemandID != nil {
		updated.DemandID = *req.DemandID
	}
	if req.EmployeeID != nil {
		updated.EmployeeID = *req.EmployeeID
	}
	if req.Status != nil {
		updated.Status = domain.AssignmentStatus(*req.Status)
	}
	if req.Score != nil {
		updated.Score = *req.Score
	}
	if req.Explanation != nil {
		updated.Explanation = *req.Explanation
	}

	input, msg := h.buildValidationInput(data, updated.DemandID, updated.EmployeeID, assignmentID)
	if input == nil {
		h.errorResponse(w, r, msg)
		return
	}

	result := h.checker.ValidateAssignment(*input)
	if !result.IsValid {
		h.validationFailedResponse(w, r, result)
		return
	}

	if !session.Coordinator.UpdateAssignment(updated) {
		h.errorResponse(w, r, "排班不存在")
		return
	}

	h.successResponse(w, r, "排班已更新", map[string]any{
		"assignment": updated,
		"validation": result,
	})
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)
	assignmentID := chi.URLParam(r, "id")

	if !session.Coordinator.DeleteAssignment(assignmentID) {
		h.errorResponse(w, r, "排班不存在")
		return
	}

	h.successResponse(w, r, "排班已删除", nil)
}

func (h *Handler) ForceSave(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)
	session.Coordinator.ForceSave()
	h.successResponse(w, r, "已触发强制保存", session.Coordinator.Snapshot())
}

func (h *Handler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(SessionCtxKey).(*coordinator.Session)

	var req struct {
		Online *bool `json:"online" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	session.Coordinator.SetOnline(*req.Online)
	h.successResponse(w, r, "连接状态已更新", nil)
}

// buildValidationInput 根据需求槽位和员工组装快速校验的输入。
// excludeID 用于更新场景，把被更新的排班自己从槽位占用者中排除。
// 返回 nil 时附带给用户的错误信息。
func (h *Handler) buildValidationInput(data *domain.PlanningData, demandID string, employeeID int64, excludeID string) (*validation.Input, string) {
	var demand *domain.Demand
	for _, d := range data.Demands {
		if d.ID == demandID {
			demand = d
			break
		}
	}
	if demand == nil {
		return nil, "需求槽位不存在"
	}

	var station *domain.Station
	for _, s := range data.Stations {
		if s.ID == demand.StationID {
			station = s
			break
		}
	}
	if station == nil {
		return nil, "需求槽位引用的工位不存在"
	}

	var employee *domain.Employee
	for _, e := range data.Employees {
		if e.ID == employeeID {
			employee = e
			break
		}
	}
	if employee == nil {
		return nil, "员工不存在"
	}

	existing := []*domain.Assignment{}
	for _, a := range data.Assignments {
		if a.DemandID == demandID && a.ID != excludeID {
			existing = append(existing, a)
		}
	}

	date, err := time.Parse("2006-01-02", demand.Date)
	if err != nil {
		return nil, "需求槽位的日期格式错误"
	}

	return &validation.Input{
		Station:             station,
		Employee:            employee,
		ExistingAssignments: existing,
		Date:                date,
		ShiftID:             demand.ShiftID,
	}, ""
}
