package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

func (r *Repository) CreateStation(station *domain.Station) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO stations (name, line, capacity, priority)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`
	params := []any{station.Name, station.Line, station.Capacity, station.Priority}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&station.ID, &station.CreatedAt, &station.Version); err != nil {
		return err
	}

	for _, req := range station.RequiredSkills {
		query = `
			INSERT INTO station_skill_requirements (station_id, skill_id, min_level, count, mandatory)
			VALUES ($1, $2, $3, $4, $5)
		`
		params = []any{station.ID, req.SkillID, req.MinLevel, req.Count, req.Mandatory}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CreateShift(shift *domain.Shift) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO shifts (name, start_time, end_time)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`

	dst := []any{&shift.ID, &shift.CreatedAt, &shift.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, shift.Name, shift.StartTime, shift.EndTime).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CreateEmployee(employee *domain.Employee) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO employees (name, code, active, contract_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`
	params := []any{employee.Name, employee.Code, employee.Active, employee.ContractType}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&employee.ID, &employee.CreatedAt, &employee.Version); err != nil {
		return err
	}

	for _, skill := range employee.Skills {
		query = `
			INSERT INTO employee_skills (employee_id, skill_id, level, certified, certified_until)
			VALUES ($1, $2, $3, $4, $5)
		`
		params = []any{employee.ID, skill.SkillID, skill.Level, skill.Certified, skill.CertifiedUntil}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	for _, slot := range employee.Availability {
		query = `
			INSERT INTO employee_availability (employee_id, weekday, shift_id, available)
			VALUES ($1, $2, $3, $4)
		`
		params = []any{employee.ID, int32(slot.Weekday), slot.ShiftID, slot.Available}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CreateDemand(demand *domain.Demand) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO demands (id, station_id, shift_id, date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, version
	`

	params := []any{demand.ID, demand.StationID, demand.ShiftID, demand.Date}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&demand.CreatedAt, &demand.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CreateAbsence(absence *domain.Absence) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO absences (employee_id, date, reason)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`

	params := []any{absence.EmployeeID, absence.Date, absence.Reason}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&absence.ID, &absence.CreatedAt, &absence.Version); err != nil {
		return err
	}

	return nil
}
