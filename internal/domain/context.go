package domain

import "time"

// ValidationContext 是一次批量校验所依赖的领域数据快照。
// 一轮校验过程中不允许修改快照，从而保证同样的输入一定得到同样的输出。
type ValidationContext struct {
	Employees   []*Employee
	Assignments []*Assignment
	Stations    []*Station
	Shifts      []*Shift
	Demands     []*Demand
	Absences    []*Absence
	Date        time.Time
}

func (ctx *ValidationContext) ShiftByID(id int64) *Shift {
	for _, s := range ctx.Shifts {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (ctx *ValidationContext) EmployeeByID(id int64) *Employee {
	for _, e := range ctx.Employees {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (ctx *ValidationContext) StationByID(id int64) *Station {
	for _, s := range ctx.Stations {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (ctx *ValidationContext) DemandByID(id string) *Demand {
	for _, d := range ctx.Demands {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// AssignmentsByDemand 按传入切片的顺序收集某个需求槽位下的所有排班，
// 保证多次调用返回的顺序一致
func (ctx *ValidationContext) AssignmentsByDemand(demandID string) []*Assignment {
	group := []*Assignment{}
	for _, a := range ctx.Assignments {
		if a.DemandID == demandID {
			group = append(group, a)
		}
	}
	return group
}

func (ctx *ValidationContext) HasAbsence(employeeID int64, date string) bool {
	for _, ab := range ctx.Absences {
		if ab.EmployeeID == employeeID && ab.Date == date {
			return true
		}
	}
	return false
}

// PlanningData 是从远端加载的某一天的完整规划数据
type PlanningData struct {
	Date        string        `json:"date"`
	Assignments []*Assignment `json:"assignments"`
	Stations    []*Station    `json:"stations"`
	Shifts      []*Shift      `json:"shifts"`
	Employees   []*Employee   `json:"employees"`
	Demands     []*Demand     `json:"demands"`
	Absences    []*Absence    `json:"absences"`
}

// Context 从规划数据构建出一个校验快照
func (pd *PlanningData) Context(date time.Time) *ValidationContext {
	return &ValidationContext{
		Employees:   pd.Employees,
		Assignments: pd.Assignments,
		Stations:    pd.Stations,
		Shifts:      pd.Shifts,
		Demands:     pd.Demands,
		Absences:    pd.Absences,
		Date:        date,
	}
}
