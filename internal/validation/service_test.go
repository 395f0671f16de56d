package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

func int32ptr(v int32) *int32 { return &v }

// 2026-08-31 是周一
var testDate = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func weldingStation() *domain.Station {
	return &domain.Station{
		ID: 1, Name: "焊接工位", Capacity: int32ptr(2),
		RequiredSkills: []domain.SkillRequirement{
			{SkillID: 1, MinLevel: 3, Count: 1, Mandatory: true},
		},
	}
}

func qualifiedWelder() *domain.Employee {
	return &domain.Employee{
		ID: 1, Name: "王伟", Active: true,
		Skills: []domain.EmployeeSkill{{SkillID: 1, Level: 3, Certified: true}},
	}
}

func occupant(id string, employeeID int64) *domain.Assignment {
	return &domain.Assignment{ID: id, DemandID: "1:1:2026-08-31", EmployeeID: employeeID}
}

func TestValidateAssignmentAllChecksPass(t *testing.T) {
	t.Parallel()

	s := NewService()
	result := s.ValidateAssignment(Input{
		Station:  weldingStation(),
		Employee: qualifiedWelder(),
		Date:     testDate,
		ShiftID:  1,
	})

	require.True(t, result.IsValid)
	require.Empty(t, result.Errors)
	require.Empty(t, result.Warnings)
	require.Empty(t, result.Suggestions)
}

func TestValidateAssignmentCapacity(t *testing.T) {
	t.Parallel()

	s := NewService()

	// 候选人加入后恰好排满，只提示不拦截
	result := s.ValidateAssignment(Input{
		Station:             weldingStation(),
		Employee:            qualifiedWelder(),
		ExistingAssignments: []*domain.Assignment{occupant("a1", 2)},
		Date:                testDate,
		ShiftID:             1,
	})
	require.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, domain.ErrKindCapacityExceeded, result.Warnings[0].Kind)

	// 超过容量后拦截
	result = s.ValidateAssignment(Input{
		Station:             weldingStation(),
		Employee:            qualifiedWelder(),
		ExistingAssignments: []*domain.Assignment{occupant("a1", 2), occupant("a2", 3)},
		Date:                testDate,
		ShiftID:             1,
	})
	require.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	require.Equal(t, domain.ErrKindCapacityExceeded, result.Errors[0].Kind)
	require.Contains(t, result.Suggestions, "选择其他工位")
}

func TestValidateAssignmentCapacityNotConfigured(t *testing.T) {
	t.Parallel()

	s := NewService()
	station := weldingStation()
	station.Capacity = nil

	// 没有配置容量时不拦截，只提醒配置
	result := s.ValidateAssignment(Input{
		Station:  station,
		Employee: qualifiedWelder(),
		ExistingAssignments: []*domain.Assignment{
			occupant("a1", 2), occupant("a2", 3), occupant("a3", 4),
		},
		Date:    testDate,
		ShiftID: 1,
	})
	require.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Suggestions, "为该工位配置容量上限")
}

func TestValidateAssignmentSkill(t *testing.T) {
	t.Parallel()

	s := NewService()

	// 强制性技能缺失是 error
	unskilled := &domain.Employee{ID: 2, Name: "李强", Active: true}
	result := s.ValidateAssignment(Input{
		Station:  weldingStation(),
		Employee: unskilled,
		Date:     testDate,
		ShiftID:  1,
	})
	require.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	require.Equal(t, domain.ErrKindSkillMismatch, result.Errors[0].Kind)
	require.Contains(t, result.Suggestions, "选择具备所需技能的员工")

	// 非强制性技能缺失只是 warning
	station := weldingStation()
	station.RequiredSkills[0].Mandatory = false
	result = s.ValidateAssignment(Input{
		Station:  station,
		Employee: unskilled,
		Date:     testDate,
		ShiftID:  1,
	})
	require.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, domain.ErrKindSkillMismatch, result.Warnings[0].Kind)
}

func TestValidateAssignmentExpiredCertificate(t *testing.T) {
	t.Parallel()

	s := NewService()
	expired := testDate.AddDate(0, -3, 0)
	employee := &domain.Employee{
		ID: 4, Name: "刘敏", Active: true,
		Skills: []domain.EmployeeSkill{{SkillID: 1, Level: 3, Certified: true, CertifiedUntil: &expired}},
	}

	result := s.ValidateAssignment(Input{
		Station:  weldingStation(),
		Employee: employee,
		Date:     testDate,
		ShiftID:  1,
	})
	require.False(t, result.IsValid)
	require.Equal(t, domain.ErrKindSkillMismatch, result.Errors[0].Kind)
}

func TestValidateAssignmentAvailability(t *testing.T) {
	t.Parallel()

	s := NewService()

	// 已停用的员工直接拦截
	inactive := qualifiedWelder()
	inactive.Active = false
	result := s.ValidateAssignment(Input{
		Station:  weldingStation(),
		Employee: inactive,
		Date:     testDate,
		ShiftID:  1,
	})
	require.False(t, result.IsValid)
	require.Equal(t, domain.ErrKindEmployeeUnavailable, result.Errors[0].Kind)

	// 申报过可用时段但不含目标班次，只提示不拦截
	declared := qualifiedWelder()
	declared.Availability = []domain.AvailabilitySlot{
		{Weekday: time.Monday, ShiftID: 2, Available: true},
	}
	result = s.ValidateAssignment(Input{
		Station:  weldingStation(),
		Employee: declared,
		Date:     testDate,
		ShiftID:  1,
	})
	require.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, domain.ErrKindEmployeeUnavailable, result.Warnings[0].Kind)
}

func TestValidateAssignmentDuplicate(t *testing.T) {
	t.Parallel()

	s := NewService()
	result := s.ValidateAssignment(Input{
		Station:             weldingStation(),
		Employee:            qualifiedWelder(),
		ExistingAssignments: []*domain.Assignment{occupant("a1", 1)},
		Date:                testDate,
		ShiftID:             1,
	})

	require.False(t, result.IsValid)

	kinds := []domain.ValidationErrorKind{}
	for _, issue := range result.Errors {
		kinds = append(kinds, issue.Kind)
	}
	require.Contains(t, kinds, domain.ErrKindDuplicateAssignment)
}

func TestValidateAssignmentReportsAllIssues(t *testing.T) {
	t.Parallel()

	s := NewService()

	// 一个停用、没技能、重复占用的候选人应该一次性暴露所有问题
	employee := &domain.Employee{ID: 2, Name: "李强", Active: false}
	result := s.ValidateAssignment(Input{
		Station:  weldingStation(),
		Employee: employee,
		ExistingAssignments: []*domain.Assignment{
			occupant("a1", 2), occupant("a2", 3),
		},
		Date:    testDate,
		ShiftID: 1,
	})

	require.False(t, result.IsValid)
	require.Len(t, result.Errors, 4) // 容量、技能、停用、重复

	// 建议按问题出现顺序合并去重
	require.Equal(t, []string{
		"选择其他工位",
		"将现有排班移出该槽位",
		"选择具备所需技能的员工",
		"安排技能培训后再排班",
		"选择当天可出勤的员工",
		"该员工已在此槽位，无需重复排班",
	}, result.Suggestions)
}
