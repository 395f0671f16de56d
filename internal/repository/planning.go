package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// LoadPlanningData 加载某一天的完整规划数据，供会话初始化和校验快照使用
func (r *Repository) LoadPlanningData(date string) (*domain.PlanningData, error) {
	assignments, err := r.GetAssignmentsByDate(date)
	if err != nil {
		return nil, err
	}

	stations, err := r.GetAllStations()
	if err != nil {
		return nil, err
	}

	shifts, err := r.GetAllShifts()
	if err != nil {
		return nil, err
	}

	employees, err := r.GetAllEmployees()
	if err != nil {
		return nil, err
	}

	demands, err := r.GetDemandsByDate(date)
	if err != nil {
		return nil, err
	}

	absences, err := r.GetAbsencesByDate(date)
	if err != nil {
		return nil, err
	}

	return &domain.PlanningData{
		Date:        date,
		Assignments: assignments,
		Stations:    stations,
		Shifts:      shifts,
		Employees:   employees,
		Demands:     demands,
		Absences:    absences,
	}, nil
}

func (r *Repository) GetAllStations() ([]*domain.Station, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			s.id,
			s.name,
			s.line,
			s.capacity,
			s.priority,
			s.created_at,
			s.version,
			sr.skill_id,
			sr.min_level,
			sr.count,
			sr.mandatory
		FROM stations s
		LEFT JOIN station_skill_requirements sr ON s.id = sr.station_id
		ORDER BY s.id, sr.skill_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stationsMap := make(map[int64]*domain.Station)
	order := []int64{}

	for rows.Next() {
		var row struct {
			ID        int64
			Name      string
			Line      string
			Capacity  sql.NullInt32
			Priority  int32
			CreatedAt time.Time
			Version   int32

			SkillID   sql.NullInt64
			MinLevel  sql.NullInt32
			Count     sql.NullInt32
			Mandatory sql.NullBool
		}

		dst := []any{
			&row.ID,
			&row.Name,
			&row.Line,
			&row.Capacity,
			&row.Priority,
			&row.CreatedAt,
			&row.Version,
			&row.SkillID,
			&row.MinLevel,
			&row.Count,
			&row.Mandatory,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		station, exists := stationsMap[row.ID]
		if !exists {
			// 说明此时是第一次查到这个工位，需要初始化
			station = &domain.Station{
				ID:             row.ID,
				Name:           row.Name,
				Line:           row.Line,
				Priority:       row.Priority,
				RequiredSkills: make([]domain.SkillRequirement, 0),
				CreatedAt:      row.CreatedAt,
				Version:        row.Version,
			}
			if row.Capacity.Valid {
				capacity := row.Capacity.Int32
				station.Capacity = &capacity
			}
			stationsMap[row.ID] = station
			order = append(order, row.ID)
		}

		// 如果 skill_id 为空，则表示这个工位没有配置技能要求
		if !row.SkillID.Valid {
			continue
		}

		station.RequiredSkills = append(station.RequiredSkills, domain.SkillRequirement{
			SkillID:   row.SkillID.Int64,
			MinLevel:  row.MinLevel.Int32,
			Count:     row.Count.Int32,
			Mandatory: row.Mandatory.Bool,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	stations := make([]*domain.Station, 0, len(order))
	for _, id := range order {
		stations = append(stations, stationsMap[id])
	}

	return stations, nil
}

func (r *Repository) GetAllShifts() ([]*domain.Shift, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT id, name, start_time, end_time, created_at, version
		FROM shifts
		ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := []*domain.Shift{}
	for rows.Next() {
		var s domain.Shift
		if err := rows.Scan(&s.ID, &s.Name, &s.StartTime, &s.EndTime, &s.CreatedAt, &s.Version); err != nil {
			return nil, err
		}
		shifts = append(shifts, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

func (r *Repository) GetAllEmployees() ([]*domain.Employee, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			e.id,
			e.name,
			e.code,
			e.active,
			e.contract_type,
			e.created_at,
			e.version,
			es.skill_id,
			es.level,
			es.certified,
			es.certified_until
		FROM employees e
		LEFT JOIN employee_skills es ON e.id = es.employee_id
		ORDER BY e.id, es.skill_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employeesMap := make(map[int64]*domain.Employee)
	order := []int64{}

	for rows.Next() {
		var row struct {
			ID           int64
			Name         string
			Code         string
			Active       bool
			ContractType string
			CreatedAt    time.Time
			Version      int32

			SkillID        sql.NullInt64
			Level          sql.NullInt32
			Certified      sql.NullBool
			CertifiedUntil sql.NullTime
		}

		dst := []any{
			&row.ID,
			&row.Name,
			&row.Code,
			&row.Active,
			&row.ContractType,
			&row.CreatedAt,
			&row.Version,
			&row.SkillID,
			&row.Level,
			&row.Certified,
			&row.CertifiedUntil,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		employee, exists := employeesMap[row.ID]
		if !exists {
			employee = &domain.Employee{
				ID:           row.ID,
				Name:         row.Name,
				Code:         row.Code,
				Active:       row.Active,
				ContractType: domain.ContractType(row.ContractType),
				Skills:       make([]domain.EmployeeSkill, 0),
				Availability: make([]domain.AvailabilitySlot, 0),
				CreatedAt:    row.CreatedAt,
				Version:      row.Version,
			}
			employeesMap[row.ID] = employee
			order = append(order, row.ID)
		}

		if !row.SkillID.Valid {
			continue
		}

		skill := domain.EmployeeSkill{
			SkillID:   row.SkillID.Int64,
			Level:     row.Level.Int32,
			Certified: row.Certified.Bool,
		}
		if row.CertifiedUntil.Valid {
			certifiedUntil := row.CertifiedUntil.Time
			skill.CertifiedUntil = &certifiedUntil
		}
		employee.Skills = append(employee.Skills, skill)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 可用时段单独查询，避免和技能做笛卡尔积
	availQuery := `
		SELECT employee_id, weekday, shift_id, available
		FROM employee_availability
		ORDER BY employee_id, weekday, shift_id
	`

	availRows, err := r.dbpool.QueryContext(ctx, availQuery)
	if err != nil {
		return nil, err
	}
	defer availRows.Close()

	for availRows.Next() {
		var employeeID int64
		var weekday int32
		slot := domain.AvailabilitySlot{}
		if err := availRows.Scan(&employeeID, &weekday, &slot.ShiftID, &slot.Available); err != nil {
			return nil, err
		}
		slot.Weekday = time.Weekday(weekday)

		if employee, exists := employeesMap[employeeID]; exists {
			employee.Availability = append(employee.Availability, slot)
		}
	}

	if err := availRows.Err(); err != nil {
		return nil, err
	}

	employees := make([]*domain.Employee, 0, len(order))
	for _, id := range order {
		employees = append(employees, employeesMap[id])
	}

	return employees, nil
}

func (r *Repository) GetDemandsByDate(date string) ([]*domain.Demand, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT id, station_id, shift_id, date, created_at, version
		FROM demands
		WHERE date = $1
		ORDER BY station_id, shift_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	demands := []*domain.Demand{}
	for rows.Next() {
		var d domain.Demand
		if err := rows.Scan(&d.ID, &d.StationID, &d.ShiftID, &d.Date, &d.CreatedAt, &d.Version); err != nil {
			return nil, err
		}
		demands = append(demands, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return demands, nil
}

func (r *Repository) GetAbsencesByDate(date string) ([]*domain.Absence, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT id, employee_id, date, reason, created_at, version
		FROM absences
		WHERE date = $1
		ORDER BY employee_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	absences := []*domain.Absence{}
	for rows.Next() {
		var a domain.Absence
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.Date, &a.Reason, &a.CreatedAt, &a.Version); err != nil {
			return nil, err
		}
		absences = append(absences, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return absences, nil
}
