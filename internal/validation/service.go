package validation

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// Service 对单个候选排班做同步快速校验，用于拖拽时的即时反馈。
// 它只检查候选人自身和目标槽位的占用情况，整体的交叉规则由批量检测负责。
type Service struct{}

func NewService() *Service {
	return &Service{}
}

type Input struct {
	Station             *domain.Station
	Employee            *domain.Employee
	ExistingAssignments []*domain.Assignment // 目标槽位当前的占用者
	Date                time.Time
	ShiftID             int64
}

// 每种校验问题对应的固定恢复建议
var recoveryActions = map[domain.ValidationErrorKind][]string{
	domain.ErrKindCapacityExceeded:    {"选择其他工位", "将现有排班移出该槽位"},
	domain.ErrKindSkillMismatch:       {"选择具备所需技能的员工", "安排技能培训后再排班"},
	domain.ErrKindEmployeeUnavailable: {"选择当天可出勤的员工"},
	domain.ErrKindDuplicateAssignment: {"该员工已在此槽位，无需重复排班"},
}

// ValidateAssignment 依次执行容量、技能、可用性、重复四项检查。
// 四项检查全部执行完才返回，保证所有问题一次性反馈给用户。
// isValid 只看 errors，warnings 不会阻止排班。
func (s *Service) ValidateAssignment(input Input) domain.ValidationResult {
	result := domain.ValidationResult{
		Errors:      []domain.ValidationIssue{},
		Warnings:    []domain.ValidationIssue{},
		Suggestions: []string{},
	}
	extraSuggestions := []string{}

	// 容量检查
	if input.Station.Capacity == nil {
		result.Warnings = append(result.Warnings, domain.ValidationIssue{
			Kind:    domain.ErrKindCapacityExceeded,
			Message: fmt.Sprintf("工位 %s 未配置容量上限", input.Station.Name),
		})
		extraSuggestions = append(extraSuggestions, "为该工位配置容量上限")
	} else {
		capacity := int(*input.Station.Capacity)
		occupied := len(input.ExistingAssignments) + 1 // 加上候选人自己

		switch {
		case occupied > capacity:
			result.Errors = append(result.Errors, domain.ValidationIssue{
				Kind:    domain.ErrKindCapacityExceeded,
				Message: fmt.Sprintf("工位 %s 容量不足 (%d/%d)", input.Station.Name, occupied, capacity),
			})
		case occupied == capacity:
			result.Warnings = append(result.Warnings, domain.ValidationIssue{
				Kind:    domain.ErrKindCapacityExceeded,
				Message: fmt.Sprintf("工位 %s 将达到满员 (%d/%d)", input.Station.Name, occupied, capacity),
			})
		}
	}

	// 技能检查，只针对候选人本人，已有占用者由批量检测覆盖
	for _, req := range input.Station.RequiredSkills {
		if candidateHasSkill(input.Employee, req, input.Date) {
			continue
		}

		issue := domain.ValidationIssue{
			Kind:    domain.ErrKindSkillMismatch,
			Message: fmt.Sprintf("员工 %s 不满足技能 %d（等级 ≥ %d）的要求", input.Employee.Name, req.SkillID, req.MinLevel),
		}
		if req.Mandatory {
			result.Errors = append(result.Errors, issue)
		} else {
			result.Warnings = append(result.Warnings, issue)
		}
	}

	// 可用性检查
	if !input.Employee.Active {
		result.Errors = append(result.Errors, domain.ValidationIssue{
			Kind:    domain.ErrKindEmployeeUnavailable,
			Message: fmt.Sprintf("员工 %s 已停用，不能参与排班", input.Employee.Name),
		})
	} else if !input.Employee.AvailableAt(input.Date.Weekday(), input.ShiftID) {
		// 没有申报过可用时间的员工默认可用，申报过但不含该时段的只提示不拦截
		result.Warnings = append(result.Warnings, domain.ValidationIssue{
			Kind:    domain.ErrKindEmployeeUnavailable,
			Message: fmt.Sprintf("员工 %s 未申报该时段的可用时间", input.Employee.Name),
		})
	}

	// 重复检查
	for _, existing := range input.ExistingAssignments {
		if existing.EmployeeID == input.Employee.ID {
			result.Errors = append(result.Errors, domain.ValidationIssue{
				Kind:    domain.ErrKindDuplicateAssignment,
				Message: fmt.Sprintf("员工 %s 已经在该槽位中", input.Employee.Name),
			})
			break
		}
	}

	result.IsValid = len(result.Errors) == 0
	result.Suggestions = collectSuggestions(result, extraSuggestions)

	return result
}

func candidateHasSkill(emp *domain.Employee, req domain.SkillRequirement, date time.Time) bool {
	for _, skill := range emp.Skills {
		if skill.SkillID != req.SkillID || skill.Level < req.MinLevel {
			continue
		}
		// 证书过期等同于没有认证
		if skill.Certified && skill.CertifiedUntil != nil && skill.CertifiedUntil.Before(date) {
			continue
		}
		return true
	}
	return false
}

// collectSuggestions 把静态的按类型恢复建议和本次校验产生的额外建议合并去重，
// 顺序为问题出现的顺序
func collectSuggestions(result domain.ValidationResult, extras []string) []string {
	suggestions := []string{}
	seenKinds := map[domain.ValidationErrorKind]bool{}

	appendKind := func(kind domain.ValidationErrorKind) {
		if seenKinds[kind] {
			return
		}
		seenKinds[kind] = true
		for _, action := range recoveryActions[kind] {
			if !containsString(suggestions, action) {
				suggestions = append(suggestions, action)
			}
		}
	}

	for _, issue := range result.Errors {
		appendKind(issue.Kind)
	}
	for _, issue := range result.Warnings {
		appendKind(issue.Kind)
	}
	for _, extra := range extras {
		if !containsString(suggestions, extra) {
			suggestions = append(suggestions, extra)
		}
	}

	return suggestions
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
