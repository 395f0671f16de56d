package constraint

import (
	"fmt"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

type Type string

const (
	TypeHard Type = "hard" // 阻止提交
	TypeSoft Type = "soft" // 仅提示
)

// Constraint 是单条业务规则。Evaluate 必须是纯函数：
// 同样的 (assignments, ctx) 必须返回内容和顺序都完全相同的结果。
type Constraint interface {
	ID() string
	Name() string
	Type() Type
	Priority() int32
	Evaluate(assignments []*domain.Assignment, ctx *domain.ValidationContext) []domain.ConstraintViolation
}

// Manager 持有约束注册表并驱动批量检测。
// 约束按注册顺序求值，注册表的增删不会影响检测主循环。
type Manager struct {
	constraints []Constraint
}

func NewManager() *Manager {
	return &Manager{
		constraints: []Constraint{},
	}
}

// NewDefaultManager 注册全部内置规则
func NewDefaultManager(weeklyHourLimit float64) *Manager {
	m := NewManager()
	m.Register(NewCapacityConstraint())
	m.Register(NewDuplicateEmployeeConstraint())
	m.Register(NewSkillConstraint())
	m.Register(NewAvailabilityConstraint())
	m.Register(NewWeeklyHoursConstraint(weeklyHourLimit))
	return m
}

// Register 注册一条约束。如果 id 已存在则原地替换，保持原有的求值顺序
func (m *Manager) Register(c Constraint) {
	for i, existing := range m.constraints {
		if existing.ID() == c.ID() {
			m.constraints[i] = c
			return
		}
	}
	m.constraints = append(m.constraints, c)
}

// Deregister 按 id 注销约束，id 不存在时什么都不做
func (m *Manager) Deregister(id string) {
	for i, c := range m.constraints {
		if c.ID() == id {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

func (m *Manager) Constraints() []Constraint {
	out := make([]Constraint, len(m.constraints))
	copy(out, m.constraints)
	return out
}

// Detect 对整个排班集合跑一遍所有已注册的约束。
// 不会在遇到第一个违规时提前返回，所有问题一次性暴露给用户。
func (m *Manager) Detect(assignments []*domain.Assignment, ctx *domain.ValidationContext) []domain.ConstraintViolation {
	violations := []domain.ConstraintViolation{}
	for _, c := range m.constraints {
		violations = append(violations, c.Evaluate(assignments, ctx)...)
	}
	return violations
}

// BatchResult 是一次批量检测的完整结论
type BatchResult struct {
	IsValid        bool                         `json:"isValid"`
	CanProceed     bool                         `json:"canProceed"`
	Violations     []domain.ConstraintViolation `json:"violations"`
	Messages       []string                     `json:"messages"`
	SuggestedFixes map[string][]string          `json:"suggestedFixes"`
}

// ValidateAndFormat 在 Detect 的基础上给出整体结论和格式化信息。
// isValid 表示没有 error/critical 级别的违规；
// canProceed 表示没有 critical 级别的违规，允许规划者继续编辑但不允许提交。
func (m *Manager) ValidateAndFormat(assignments []*domain.Assignment, ctx *domain.ValidationContext) *BatchResult {
	violations := m.Detect(assignments, ctx)

	result := &BatchResult{
		IsValid:        true,
		CanProceed:     true,
		Violations:     violations,
		Messages:       []string{},
		SuggestedFixes: map[string][]string{},
	}

	for _, v := range violations {
		if v.Severity.Blocking() {
			result.IsValid = false
		}
		if v.Severity == domain.SeverityCritical {
			result.CanProceed = false
		}

		result.Messages = append(result.Messages, fmt.Sprintf("[%s] %s", v.Severity, v.Message))

		for _, action := range v.SuggestedActions {
			if !contains(result.SuggestedFixes[v.ConstraintID], action) {
				result.SuggestedFixes[v.ConstraintID] = append(result.SuggestedFixes[v.ConstraintID], action)
			}
		}
	}

	return result
}

// Summary 描述当前注册表的概况
type Summary struct {
	Total int      `json:"total"`
	Hard  int      `json:"hard"`
	Soft  int      `json:"soft"`
	IDs   []string `json:"ids"`
}

func (m *Manager) Summary() Summary {
	s := Summary{IDs: []string{}}
	for _, c := range m.constraints {
		s.Total++
		switch c.Type() {
		case TypeHard:
			s.Hard++
		case TypeSoft:
			s.Soft++
		}
		s.IDs = append(s.IDs, c.ID())
	}
	return s
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
