package domain

import "time"

type ContractType string

const (
	ContractRegular    ContractType = "正式工"
	ContractDispatched ContractType = "派遣工"
	ContractIntern     ContractType = "实习生"
)

type EmployeeSkill struct {
	SkillID        int64      `json:"skillID"`
	Level          int32      `json:"level"`
	Certified      bool       `json:"certified"`
	CertifiedUntil *time.Time `json:"certifiedUntil"` // 为 nil 时表示证书长期有效
}

type AvailabilitySlot struct {
	Weekday   time.Weekday `json:"weekday"`
	ShiftID   int64        `json:"shiftID"`
	Available bool         `json:"available"`
}

type Employee struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Code         string             `json:"code"` // 员工工号，由姓名拼音生成
	Active       bool               `json:"active"`
	ContractType ContractType       `json:"contractType"`
	Skills       []EmployeeSkill    `json:"skills"`
	Availability []AvailabilitySlot `json:"availability"` // 为空时默认全部时段可用
	CreatedAt    time.Time          `json:"createdAt"`
	Version      int32              `json:"-"`
}

// AvailableAt 检查员工在某天的某个班次是否可用。
// 没有申报过任何可用时段的员工默认视为可用。
func (e *Employee) AvailableAt(weekday time.Weekday, shiftID int64) bool {
	if len(e.Availability) == 0 {
		return true
	}
	for _, slot := range e.Availability {
		if slot.Weekday == weekday && slot.ShiftID == shiftID {
			return slot.Available
		}
	}
	return false
}

type Absence struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employeeID"`
	Date       string    `json:"date"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
	Version    int32     `json:"-"`
}
