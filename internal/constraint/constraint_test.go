package constraint

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// fakeConstraint 是注册表测试用的可控约束
type fakeConstraint struct {
	id       string
	severity domain.Severity
}

func (f *fakeConstraint) ID() string      { return f.id }
func (f *fakeConstraint) Name() string    { return f.id }
func (f *fakeConstraint) Type() Type      { return TypeHard }
func (f *fakeConstraint) Priority() int32 { return 0 }

func (f *fakeConstraint) Evaluate(assignments []*domain.Assignment, ctx *domain.ValidationContext) []domain.ConstraintViolation {
	return []domain.ConstraintViolation{
		{
			ConstraintID:        f.id,
			Severity:            f.severity,
			Message:             f.id,
			AffectedAssignments: []string{},
			SuggestedActions:    []string{"修复 " + f.id},
		},
	}
}

func registryIDs(m *Manager) []string {
	ids := []string{}
	for _, c := range m.Constraints() {
		ids = append(ids, c.ID())
	}
	return ids
}

func TestManagerRegisterKeepsOrder(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.Register(&fakeConstraint{id: "a", severity: domain.SeverityInfo})
	m.Register(&fakeConstraint{id: "b", severity: domain.SeverityInfo})
	m.Register(&fakeConstraint{id: "c", severity: domain.SeverityInfo})

	require.Equal(t, []string{"a", "b", "c"}, registryIDs(m))

	// 重复注册同一个 id 应该原地替换，不改变求值顺序
	m.Register(&fakeConstraint{id: "b", severity: domain.SeverityError})
	require.Equal(t, []string{"a", "b", "c"}, registryIDs(m))

	violations := m.Detect(nil, &domain.ValidationContext{})
	require.Len(t, violations, 3)
	require.Equal(t, domain.SeverityError, violations[1].Severity)
}

func TestManagerDeregister(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.Register(&fakeConstraint{id: "a", severity: domain.SeverityInfo})
	m.Register(&fakeConstraint{id: "b", severity: domain.SeverityInfo})

	// 注销不存在的 id 不应报错，也不应影响注册表
	m.Deregister("missing")
	require.Equal(t, []string{"a", "b"}, registryIDs(m))

	m.Deregister("a")
	require.Equal(t, []string{"b"}, registryIDs(m))
}

func TestDetectRunsAllConstraints(t *testing.T) {
	t.Parallel()

	// 第一个约束产生 critical 也不应该让后面的约束被跳过
	m := NewManager()
	m.Register(&fakeConstraint{id: "first", severity: domain.SeverityCritical})
	m.Register(&fakeConstraint{id: "second", severity: domain.SeverityWarning})

	violations := m.Detect(nil, &domain.ValidationContext{})
	require.Len(t, violations, 2)
	require.Equal(t, "first", violations[0].ConstraintID)
	require.Equal(t, "second", violations[1].ConstraintID)
}

func TestDetectDeterministic(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	assignments := []*domain.Assignment{
		newAssignment("a1", demandFull, 1),
		newAssignment("a2", demandFull, 2),
		newAssignment("a3", demandFull, 2), // 重复排班
		newAssignment("a4", demandNoCapacity, 9999),
	}

	m := NewDefaultManager(40)

	first := m.Detect(assignments, ctx)
	second := m.Detect(assignments, ctx)

	// 同样的输入必须得到内容和顺序都完全一致的结果
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestValidateAndFormat(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.Register(&fakeConstraint{id: "warn_rule", severity: domain.SeverityWarning})

	result := m.ValidateAndFormat(nil, &domain.ValidationContext{})
	require.True(t, result.IsValid)
	require.True(t, result.CanProceed)
	require.Len(t, result.Messages, 1)
	require.Equal(t, "[warning] warn_rule", result.Messages[0])

	// error 级别阻止提交，但允许继续编辑
	m.Register(&fakeConstraint{id: "error_rule", severity: domain.SeverityError})
	result = m.ValidateAndFormat(nil, &domain.ValidationContext{})
	require.False(t, result.IsValid)
	require.True(t, result.CanProceed)

	// critical 级别连继续编辑也不允许
	m.Register(&fakeConstraint{id: "critical_rule", severity: domain.SeverityCritical})
	result = m.ValidateAndFormat(nil, &domain.ValidationContext{})
	require.False(t, result.IsValid)
	require.False(t, result.CanProceed)

	require.Equal(t, []string{"修复 error_rule"}, result.SuggestedFixes["error_rule"])
}

func TestDefaultManagerSummary(t *testing.T) {
	t.Parallel()

	m := NewDefaultManager(40)
	s := m.Summary()

	require.Equal(t, 5, s.Total)
	require.Equal(t, 4, s.Hard)
	require.Equal(t, 1, s.Soft)
	require.Equal(t, []string{
		"station_capacity",
		"duplicate_employee",
		"required_skills",
		"employee_availability",
		"weekly_hour_limit",
	}, s.IDs)
}
