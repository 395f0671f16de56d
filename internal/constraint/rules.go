package constraint

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// demandGroup 把排班按需求槽位分组，分组顺序跟随排班切片中首次出现的顺序，
// 保证同样的输入得到同样的输出顺序
type demandGroup struct {
	demandID    string
	assignments []*domain.Assignment
}

func groupByDemand(assignments []*domain.Assignment) []demandGroup {
	groups := []demandGroup{}
	index := map[string]int{}

	for _, a := range assignments {
		i, exists := index[a.DemandID]
		if !exists {
			index[a.DemandID] = len(groups)
			groups = append(groups, demandGroup{demandID: a.DemandID})
			i = len(groups) - 1
		}
		groups[i].assignments = append(groups[i].assignments, a)
	}

	return groups
}

func assignmentIDs(assignments []*domain.Assignment) []string {
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	return ids
}

/**********************************************
 * 工位容量
 **********************************************/

type CapacityConstraint struct{}

func NewCapacityConstraint() *CapacityConstraint { return &CapacityConstraint{} }

func (c *CapacityConstraint) ID() string      { return "station_capacity" }
func (c *CapacityConstraint) Name() string    { return "工位容量" }
func (c *CapacityConstraint) Type() Type      { return TypeHard }
func (c *CapacityConstraint) Priority() int32 { return 100 }

func (c *CapacityConstraint) Evaluate(assignments []*domain.Assignment, ctx *domain.ValidationContext) []domain.ConstraintViolation {
	violations := []domain.ConstraintViolation{}

	for _, group := range groupByDemand(assignments) {
		demand := ctx.DemandByID(group.demandID)
		if demand == nil {
			continue
		}
		station := ctx.StationByID(demand.StationID)
		if station == nil {
			continue
		}

		if station.Capacity == nil {
			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            domain.SeverityInfo,
				Message:             fmt.Sprintf("工位 %s 未配置容量上限，无法进行容量检查", station.Name),
				AffectedAssignments: assignmentIDs(group.assignments),
				SuggestedActions:    []string{"为该工位配置容量上限"},
			})
			continue
		}

		capacity := int(*station.Capacity)
		occupied := len(group.assignments)

		switch {
		case occupied > capacity:
			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            domain.SeverityError,
				Message:             fmt.Sprintf("工位 %s 在 %s 的排班人数 (%d/%d) 超过容量上限", station.Name, demand.Date, occupied, capacity),
				AffectedAssignments: assignmentIDs(group.assignments),
				SuggestedActions:    []string{"将多余的员工改派到同产线的其他工位"},
			})
		case occupied == capacity:
			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            domain.SeverityWarning,
				Message:             fmt.Sprintf("工位 %s 在 %s 已排满 (%d/%d)", station.Name, demand.Date, occupied, capacity),
				AffectedAssignments: assignmentIDs(group.assignments),
				SuggestedActions:    []string{},
			})
		}
	}

	return violations
}

/**********************************************
 * 同一槽位重复排班
 **********************************************/

type DuplicateEmployeeConstraint struct{}

func NewDuplicateEmployeeConstraint() *DuplicateEmployeeConstraint { return &DuplicateEmployeeConstraint{} }

func (c *DuplicateEmployeeConstraint) ID() string      { return "duplicate_employee" }
func (c *DuplicateEmployeeConstraint) Name() string    { return "重复排班" }
func (c *DuplicateEmployeeConstraint) Type() Type      { return TypeHard }
func (c *DuplicateEmployeeConstraint) Priority() int32 { return 90 }

func (c *DuplicateEmployeeConstraint) Evaluate(assignments []*domain.Assignment, ctx *domain.ValidationContext) []domain.ConstraintViolation {
	violations := []domain.ConstraintViolation{}

	for _, group := range groupByDemand(assignments) {
		firstSeen := map[int64]*domain.Assignment{}

		for _, a := range group.assignments {
			first, exists := firstSeen[a.EmployeeID]
			if !exists {
				firstSeen[a.EmployeeID] = a
				continue
			}

			message := fmt.Sprintf("员工 %d 在同一需求槽位中被重复排班", a.EmployeeID)
			if emp := ctx.EmployeeByID(a.EmployeeID); emp != nil {
				message = fmt.Sprintf("员工 %s 在同一需求槽位中被重复排班", emp.Name)
			}

			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            domain.SeverityError,
				Message:             message,
				AffectedAssignments: []string{first.ID, a.ID},
				SuggestedActions:    []string{"删除重复的排班记录"},
			})
		}
	}

	return violations
}

/**********************************************
 * 技能要求
 **********************************************/

type SkillConstraint struct{}

func NewSkillConstraint() *SkillConstraint { return &SkillConstraint{} }

func (c *SkillConstraint) ID() string      { return "required_skills" }
func (c *SkillConstraint) Name() string    { return "技能要求" }
func (c *SkillConstraint) Type() Type      { return TypeHard }
func (c *SkillConstraint) Priority() int32 { return 80 }

// meetsRequirement 检查员工是否满足某条技能要求。
// 证书已过期的技能视为不满足，等同于没有认证。
func meetsRequirement(emp *domain.Employee, req domain.SkillRequirement, date time.Time) bool {
	for _, skill := range emp.Skills {
		if skill.SkillID != req.SkillID || skill.Level < req.MinLevel {
			continue
		}
		if skill.Certified && skill.CertifiedUntil != nil && skill.CertifiedUntil.Before(date) {
			continue
		}
		return true
	}
	return false
}

func (c *SkillConstraint) Evaluate(assignments []*domain.Assignment, ctx *domain.ValidationContext) []domain.ConstraintViolation {
	violations := []domain.ConstraintViolation{}

	for _, group := range groupByDemand(assignments) {
		demand := ctx.DemandByID(group.demandID)
		if demand == nil {
			continue
		}
		station := ctx.StationByID(demand.StationID)
		if station == nil {
			continue
		}

		for _, req := range station.RequiredSkills {
			need := int(req.Count)
			if need < 1 {
				need = 1
			}

			satisfied := 0
			for _, a := range group.assignments {
				emp := ctx.EmployeeByID(a.EmployeeID)
				if emp != nil && meetsRequirement(emp, req, ctx.Date) {
					satisfied++
				}
			}

			if satisfied >= need {
				continue
			}

			severity := domain.SeverityWarning
			if req.Mandatory {
				severity = domain.SeverityError
			}

			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            severity,
				Message:             fmt.Sprintf("工位 %s 在 %s 缺少技能 %d（等级 ≥ %d）：需要 %d 人，当前 %d 人", station.Name, demand.Date, req.SkillID, req.MinLevel, need, satisfied),
				AffectedAssignments: assignmentIDs(group.assignments),
				SuggestedActions:    []string{"安排具备该技能且证书有效的员工"},
			})
		}
	}

	return violations
}

/**********************************************
 * 员工可用性
 **********************************************/

type AvailabilityConstraint struct{}

func NewAvailabilityConstraint() *AvailabilityConstraint { return &AvailabilityConstraint{} }

func (c *AvailabilityConstraint) ID() string      { return "employee_availability" }
func (c *AvailabilityConstraint) Name() string    { return "员工可用性" }
func (c *AvailabilityConstraint) Type() Type      { return TypeHard }
func (c *AvailabilityConstraint) Priority() int32 { return 70 }

func (c *AvailabilityConstraint) Evaluate(assignments []*domain.Assignment, ctx *domain.ValidationContext) []domain.ConstraintViolation {
	violations := []domain.ConstraintViolation{}

	for _, a := range assignments {
		emp := ctx.EmployeeByID(a.EmployeeID)
		if emp == nil {
			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            domain.SeverityCritical,
				Message:             fmt.Sprintf("排班引用了不存在的员工 %d", a.EmployeeID),
				AffectedAssignments: []string{a.ID},
				SuggestedActions:    []string{"删除该排班"},
			})
			continue
		}

		if !emp.Active {
			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            domain.SeverityError,
				Message:             fmt.Sprintf("员工 %s 已停用，不能参与排班", emp.Name),
				AffectedAssignments: []string{a.ID},
				SuggestedActions:    []string{"改派在职员工"},
			})
			continue
		}

		demand := ctx.DemandByID(a.DemandID)
		if demand == nil {
			continue
		}

		if ctx.HasAbsence(emp.ID, demand.Date) {
			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            domain.SeverityError,
				Message:             fmt.Sprintf("员工 %s 在 %s 已请假", emp.Name, demand.Date),
				AffectedAssignments: []string{a.ID},
				SuggestedActions:    []string{"改派当天在岗的员工"},
			})
			continue
		}

		date, err := time.Parse("2006-01-02", demand.Date)
		if err != nil {
			continue
		}
		if !emp.AvailableAt(date.Weekday(), demand.ShiftID) {
			violations = append(violations, domain.ConstraintViolation{
				ConstraintID:        c.ID(),
				Severity:            domain.SeverityWarning,
				Message:             fmt.Sprintf("员工 %s 未申报 %s 该班次的可用时间", emp.Name, demand.Date),
				AffectedAssignments: []string{a.ID},
				SuggestedActions:    []string{"与员工确认该时段是否可以出勤"},
			})
		}
	}

	return violations
}

/**********************************************
 * 周工时上限
 **********************************************/

type WeeklyHoursConstraint struct {
	limit float64
}

func NewWeeklyHoursConstraint(limit float64) *WeeklyHoursConstraint {
	return &WeeklyHoursConstraint{limit: limit}
}

func (c *WeeklyHoursConstraint) ID() string      { return "weekly_hour_limit" }
func (c *WeeklyHoursConstraint) Name() string    { return "周工时上限" }
func (c *WeeklyHoursConstraint) Type() Type      { return TypeSoft }
func (c *WeeklyHoursConstraint) Priority() int32 { return 50 }

func (c *WeeklyHoursConstraint) Evaluate(assignments []*domain.Assignment, ctx *domain.ValidationContext) []domain.ConstraintViolation {
	violations := []domain.ConstraintViolation{}

	// 按首次出现顺序统计每个员工的总工时，保证输出顺序稳定
	order := []int64{}
	hours := map[int64]float64{}
	byEmployee := map[int64][]*domain.Assignment{}

	for _, a := range assignments {
		demand := ctx.DemandByID(a.DemandID)
		if demand == nil {
			continue
		}
		shift := ctx.ShiftByID(demand.ShiftID)
		if shift == nil {
			continue
		}

		if _, exists := hours[a.EmployeeID]; !exists {
			order = append(order, a.EmployeeID)
		}
		hours[a.EmployeeID] += shift.WorkDuration()
		byEmployee[a.EmployeeID] = append(byEmployee[a.EmployeeID], a)
	}

	for _, employeeID := range order {
		if hours[employeeID] <= c.limit {
			continue
		}

		name := fmt.Sprintf("%d", employeeID)
		if emp := ctx.EmployeeByID(employeeID); emp != nil {
			name = emp.Name
		}

		violations = append(violations, domain.ConstraintViolation{
			ConstraintID:        c.ID(),
			Severity:            domain.SeverityWarning,
			Message:             fmt.Sprintf("员工 %s 本周累计工时 %.1f 小时，超过上限 %.1f 小时", name, hours[employeeID], c.limit),
			AffectedAssignments: assignmentIDs(byEmployee[employeeID]),
			SuggestedActions:    []string{"将部分排班调整给工时较少的员工"},
		})
	}

	return violations
}
