package domain

import (
	"fmt"
	"time"
)

type AssignmentStatus string

const (
	AssignmentProposed  AssignmentStatus = "proposed"
	AssignmentConfirmed AssignmentStatus = "confirmed"
	AssignmentRejected  AssignmentStatus = "rejected"
)

// Assignment 表示某位员工被安排到某个需求槽位（工位+班次+日期）上
type Assignment struct {
	ID          string           `json:"id"` // 客户端生成的 uuid，保证乐观创建时无需等待服务器
	DemandID    string           `json:"demandID"`
	EmployeeID  int64            `json:"employeeID"`
	Status      AssignmentStatus `json:"status"`
	Score       float64          `json:"score"`
	Explanation string           `json:"explanation"`
	CreatedAt   time.Time        `json:"createdAt"`
	CreatedBy   string           `json:"createdBy"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Version     int32            `json:"-"`
}

// Clone 返回深拷贝，防止协调器内部状态被外部观察者修改
func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

type Demand struct {
	ID        string    `json:"id"`
	StationID int64     `json:"stationID"`
	ShiftID   int64     `json:"shiftID"`
	Date      string    `json:"date"` // 格式为 2006-01-02
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

// MakeDemandID 组合出需求槽位的唯一标识，容量和重复检查都以这个分组为单位
func MakeDemandID(stationID int64, shiftID int64, date string) string {
	return fmt.Sprintf("%d:%d:%s", stationID, shiftID, date)
}
