package constraint

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// 2026-08-31 是周一
const testDate = "2026-08-31"

var (
	demandFull       = domain.MakeDemandID(1, 1, testDate) // 容量为 2 的焊接工位
	demandNoCapacity = domain.MakeDemandID(2, 1, testDate) // 没有配置容量的装配工位
	demandLoose      = domain.MakeDemandID(3, 1, testDate) // 容量宽松、没有技能要求的质检工位
)

func int32ptr(v int32) *int32 { return &v }

func newAssignment(id string, demandID string, employeeID int64) *domain.Assignment {
	return &domain.Assignment{
		ID:         id,
		DemandID:   demandID,
		EmployeeID: employeeID,
		Status:     domain.AssignmentProposed,
	}
}

// newTestContext 构建一套固定的领域数据快照：
// 三个工位、两个班次、六名各有特点的员工，外加一周的质检工位需求
func newTestContext() *domain.ValidationContext {
	date, _ := time.Parse("2006-01-02", testDate)
	expired := date.AddDate(0, -3, 0)

	demands := []*domain.Demand{
		{ID: demandFull, StationID: 1, ShiftID: 1, Date: testDate},
		{ID: demandNoCapacity, StationID: 2, ShiftID: 1, Date: testDate},
	}
	// 质检工位连排一周，用于累计工时
	for i := 0; i < 6; i++ {
		d := date.AddDate(0, 0, i).Format("2006-01-02")
		demands = append(demands, &domain.Demand{
			ID:        domain.MakeDemandID(3, 1, d),
			StationID: 3,
			ShiftID:   1,
			Date:      d,
		})
	}

	return &domain.ValidationContext{
		Date: date,
		Shifts: []*domain.Shift{
			{ID: 1, Name: "早班", StartTime: "08:00:00", EndTime: "16:00:00"},
			{ID: 2, Name: "中班", StartTime: "16:00:00", EndTime: "23:30:00"},
		},
		Stations: []*domain.Station{
			{
				ID: 1, Name: "焊接工位", Line: "产线-A", Capacity: int32ptr(2),
				RequiredSkills: []domain.SkillRequirement{
					{SkillID: 1, MinLevel: 3, Count: 1, Mandatory: true},
				},
			},
			{
				ID: 2, Name: "装配工位", Line: "产线-A",
				RequiredSkills: []domain.SkillRequirement{
					{SkillID: 2, MinLevel: 2, Count: 1, Mandatory: false},
				},
			},
			{ID: 3, Name: "质检工位", Line: "产线-B", Capacity: int32ptr(5)},
		},
		Employees: []*domain.Employee{
			{
				ID: 1, Name: "王伟", Active: true,
				Skills: []domain.EmployeeSkill{{SkillID: 1, Level: 3, Certified: true}},
			},
			{ID: 2, Name: "李强", Active: true},
			{ID: 3, Name: "张芳", Active: false},
			{
				ID: 4, Name: "刘敏", Active: true,
				// 证书已过期，技能应视为不满足
				Skills: []domain.EmployeeSkill{{SkillID: 1, Level: 3, Certified: true, CertifiedUntil: &expired}},
			},
			{
				ID: 5, Name: "陈静", Active: true,
				// 只申报了周一中班，周一早班属于未申报时段
				Availability: []domain.AvailabilitySlot{
					{Weekday: time.Monday, ShiftID: 2, Available: true},
				},
			},
			{ID: 6, Name: "杨丽", Active: true},
		},
		Absences: []*domain.Absence{
			{ID: 1, EmployeeID: 6, Date: testDate, Reason: "事假"},
		},
		Demands: demands,
	}
}

func violationsBySeverity(violations []domain.ConstraintViolation, severity domain.Severity) []domain.ConstraintViolation {
	out := []domain.ConstraintViolation{}
	for _, v := range violations {
		if v.Severity == severity {
			out = append(out, v)
		}
	}
	return out
}

func TestCapacityConstraint(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	c := NewCapacityConstraint()

	// 未超容量时没有任何违规
	violations := c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 1),
	}, ctx)
	require.Empty(t, violations)

	// 恰好排满时只给 warning
	violations = c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 1),
		newAssignment("a2", demandFull, 2),
	}, ctx)
	require.Len(t, violations, 1)
	require.Equal(t, domain.SeverityWarning, violations[0].Severity)

	// 超过容量时给 error，并指向槽位内的全部排班
	violations = c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 1),
		newAssignment("a2", demandFull, 2),
		newAssignment("a3", demandFull, 5),
	}, ctx)
	require.Len(t, violations, 1)
	require.Equal(t, domain.SeverityError, violations[0].Severity)
	require.Equal(t, []string{"a1", "a2", "a3"}, violations[0].AffectedAssignments)
}

func TestCapacityConstraintWithoutLimit(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	c := NewCapacityConstraint()

	// 没有配置容量的工位不做容量判断，只给 info 提示
	violations := c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandNoCapacity, 1),
		newAssignment("a2", demandNoCapacity, 2),
		newAssignment("a3", demandNoCapacity, 5),
	}, ctx)
	require.Len(t, violations, 1)
	require.Equal(t, domain.SeverityInfo, violations[0].Severity)
}

func TestDuplicateEmployeeConstraint(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	c := NewDuplicateEmployeeConstraint()

	violations := c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 1),
		newAssignment("a2", demandFull, 2),
		newAssignment("a3", demandFull, 1), // 员工 1 重复
	}, ctx)
	require.Len(t, violations, 1)
	require.Equal(t, domain.SeverityError, violations[0].Severity)
	require.Equal(t, []string{"a1", "a3"}, violations[0].AffectedAssignments)
	require.Contains(t, violations[0].Message, "王伟")

	// 同一员工出现在不同槽位不算重复
	violations = c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 1),
		newAssignment("a2", demandLoose, 1),
	}, ctx)
	require.Empty(t, violations)
}

func TestSkillConstraint(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	c := NewSkillConstraint()

	// 合格的焊工在场，没有违规
	violations := c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 1),
	}, ctx)
	require.Empty(t, violations)

	// 强制性技能缺失是 error
	violations = c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 2),
	}, ctx)
	require.Len(t, violations, 1)
	require.Equal(t, domain.SeverityError, violations[0].Severity)

	// 非强制性技能缺失只是 warning
	violations = c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandNoCapacity, 1),
	}, ctx)
	require.Len(t, violations, 1)
	require.Equal(t, domain.SeverityWarning, violations[0].Severity)
}

func TestSkillConstraintExpiredCertificate(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	c := NewSkillConstraint()

	// 员工 4 技能等级达标但证书已过期，等同于没有该技能
	violations := c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 4),
	}, ctx)
	require.Len(t, violations, 1)
	require.Equal(t, domain.SeverityError, violations[0].Severity)
}

func TestAvailabilityConstraint(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	c := NewAvailabilityConstraint()

	violations := c.Evaluate([]*domain.Assignment{
		newAssignment("a1", demandFull, 9999), // 不存在的员工
		newAssignment("a2", demandFull, 3),    // 已停用
		newAssignment("a3", demandFull, 6),    // 当天请假
		newAssignment("a4", demandFull, 5),    // 未申报该时段
		newAssignment("a5", demandFull, 1),    // 没有申报记录，默认可用
	}, ctx)
	require.Len(t, violations, 4)

	critical := violationsBySeverity(violations, domain.SeverityCritical)
	require.Len(t, critical, 1)
	require.Equal(t, []string{"a1"}, critical[0].AffectedAssignments)

	errors := violationsBySeverity(violations, domain.SeverityError)
	require.Len(t, errors, 2)
	require.Equal(t, []string{"a2"}, errors[0].AffectedAssignments)
	require.Contains(t, errors[0].Message, "已停用")
	require.Equal(t, []string{"a3"}, errors[1].AffectedAssignments)
	require.Contains(t, errors[1].Message, "已请假")

	warnings := violationsBySeverity(violations, domain.SeverityWarning)
	require.Len(t, warnings, 1)
	require.Equal(t, []string{"a4"}, warnings[0].AffectedAssignments)
}

func TestWeeklyHoursConstraint(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	c := NewWeeklyHoursConstraint(40)

	date, _ := time.Parse("2006-01-02", testDate)

	// 连排五天早班正好 40 小时，不触发
	assignments := []*domain.Assignment{}
	for i := 0; i < 5; i++ {
		d := date.AddDate(0, 0, i).Format("2006-01-02")
		assignments = append(assignments, newAssignment(fmt.Sprintf("a%d", i), domain.MakeDemandID(3, 1, d), 1))
	}
	require.Empty(t, c.Evaluate(assignments, ctx))

	// 第六天把累计工时推到 48 小时，触发 warning
	d := date.AddDate(0, 0, 5).Format("2006-01-02")
	assignments = append(assignments, newAssignment("a5", domain.MakeDemandID(3, 1, d), 1))

	violations := c.Evaluate(assignments, ctx)
	require.Len(t, violations, 1)
	require.Equal(t, domain.SeverityWarning, violations[0].Severity)
	require.Len(t, violations[0].AffectedAssignments, 6)
	require.Contains(t, violations[0].Message, "48.0")
}
