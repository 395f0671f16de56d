package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeverityOrdering(t *testing.T) {
	t.Parallel()

	require.False(t, SeverityInfo.Blocking())
	require.False(t, SeverityWarning.Blocking())
	require.True(t, SeverityError.Blocking())
	require.True(t, SeverityCritical.Blocking())

	require.True(t, SeverityCritical.AtLeast(SeverityError))
	require.True(t, SeverityError.AtLeast(SeverityError))
	require.False(t, SeverityWarning.AtLeast(SeverityError))
}

func TestMakeDemandID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "3:1:2026-08-31", MakeDemandID(3, 1, "2026-08-31"))
}

func TestEmployeeAvailableAt(t *testing.T) {
	t.Parallel()

	// 没有申报记录的员工默认全时段可用
	e := &Employee{}
	require.True(t, e.AvailableAt(time.Monday, 1))

	e.Availability = []AvailabilitySlot{
		{Weekday: time.Monday, ShiftID: 1, Available: true},
		{Weekday: time.Tuesday, ShiftID: 1, Available: false},
	}
	require.True(t, e.AvailableAt(time.Monday, 1))
	require.False(t, e.AvailableAt(time.Tuesday, 1))
	// 申报过但未覆盖的时段视为不可用
	require.False(t, e.AvailableAt(time.Wednesday, 1))
}

func TestShiftWorkDuration(t *testing.T) {
	t.Parallel()

	s := &Shift{StartTime: "08:00:00", EndTime: "16:00:00"}
	require.InEpsilon(t, 8.0, s.WorkDuration(), 1e-9)

	s = &Shift{StartTime: "16:00:00", EndTime: "23:30:00"}
	require.InEpsilon(t, 7.5, s.WorkDuration(), 1e-9)

	// 跨夜班次按跨过午夜计算，而不是负数
	s = &Shift{StartTime: "22:00:00", EndTime: "06:00:00"}
	require.InEpsilon(t, 8.0, s.WorkDuration(), 1e-9)

	s = &Shift{StartTime: "bad", EndTime: "16:00:00"}
	require.Zero(t, s.WorkDuration())
}

func TestAssignmentClone(t *testing.T) {
	t.Parallel()

	var nilAssignment *Assignment
	require.Nil(t, nilAssignment.Clone())

	a := &Assignment{ID: "a1", EmployeeID: 1, Version: 2}
	clone := a.Clone()
	clone.EmployeeID = 99
	require.Equal(t, int64(1), a.EmployeeID)
	require.Equal(t, int32(2), clone.Version)
}
