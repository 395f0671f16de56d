package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

func (r *Repository) GetAssignmentsByDate(date string) ([]*domain.Assignment, error) {
	query := `
		SELECT
			a.id,
			a.demand_id,
			a.employee_id,
			a.status,
			a.score,
			a.explanation,
			a.created_at,
			a.created_by,
			a.updated_at,
			a.version
		FROM assignments a
		JOIN demands d ON a.demand_id = d.id
		WHERE d.date = $1
		ORDER BY a.created_at, a.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []*domain.Assignment{}
	for rows.Next() {
		var a domain.Assignment
		dst := []any{
			&a.ID,
			&a.DemandID,
			&a.EmployeeID,
			&a.Status,
			&a.Score,
			&a.Explanation,
			&a.CreatedAt,
			&a.CreatedBy,
			&a.UpdatedAt,
			&a.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		assignments = append(assignments, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) GetAssignmentByID(id string) (*domain.Assignment, error) {
	query := `
		SELECT
			demand_id,
			employee_id,
			status,
			score,
			explanation,
			created_at,
			created_by,
			updated_at,
			version
		FROM assignments
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	a := &domain.Assignment{
		ID: id,
	}

	dst := []any{
		&a.DemandID,
		&a.EmployeeID,
		&a.Status,
		&a.Score,
		&a.Explanation,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.UpdatedAt,
		&a.Version,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return a, nil
}

// SaveAssignment 保存一条排班。
// 版本为 0 时表示客户端乐观创建的新排班，执行插入；
// 否则执行带版本条件的更新，未命中任何行时返回 ErrVersionMismatch 或 ErrNotFound，
// 由协调器转化为冲突记录。
func (r *Repository) SaveAssignment(a *domain.Assignment) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if a.Version == 0 {
		query := `
			INSERT INTO assignments (id, demand_id, employee_id, status, score, explanation, created_at, created_by, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			RETURNING updated_at, version
		`
		params := []any{a.ID, a.DemandID, a.EmployeeID, a.Status, a.Score, a.Explanation, a.CreatedAt, a.CreatedBy}
		if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&a.UpdatedAt, &a.Version); err != nil {
			return err
		}
		return nil
	}

	query := `
		UPDATE assignments
		SET
			demand_id = $1,
			employee_id = $2,
			status = $3,
			score = $4,
			explanation = $5,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING updated_at, version
	`

	params := []any{a.DemandID, a.EmployeeID, a.Status, a.Score, a.Explanation, a.ID, a.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&a.UpdatedAt, &a.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 区分是版本不一致还是行已经被删除
			if _, getErr := r.GetAssignmentByID(a.ID); errors.Is(getErr, ErrNotFound) {
				return ErrNotFound
			}
			return ErrVersionMismatch
		}
		return err
	}

	return nil
}

// RemoveAssignment 带版本条件地删除一条排班
func (r *Repository) RemoveAssignment(id string, version int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM assignments WHERE id = $1 AND version = $2
	`

	result, err := r.dbpool.ExecContext(ctx, query, id, version)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := r.GetAssignmentByID(id); errors.Is(getErr, ErrNotFound) {
			// 行已经不在了，删除的目的已经达成
			return nil
		}
		return ErrVersionMismatch
	}

	return nil
}

// OverwriteAssignment 无视版本条件覆盖远端，仅用于冲突解决
// （accept_local 和 merge 都是用户显式选择用某个值覆盖远端）
func (r *Repository) OverwriteAssignment(a *domain.Assignment) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO assignments (id, demand_id, employee_id, status, score, explanation, created_at, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE
		SET
			demand_id = EXCLUDED.demand_id,
			employee_id = EXCLUDED.employee_id,
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			explanation = EXCLUDED.explanation,
			updated_at = NOW(),
			version = assignments.version + 1
		RETURNING updated_at, version
	`

	params := []any{a.ID, a.DemandID, a.EmployeeID, a.Status, a.Score, a.Explanation, a.CreatedAt, a.CreatedBy}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&a.UpdatedAt, &a.Version); err != nil {
		return err
	}

	return nil
}

// ForceRemoveAssignment 无视版本条件删除，仅用于冲突解决
func (r *Repository) ForceRemoveAssignment(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM assignments WHERE id = $1
	`

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
