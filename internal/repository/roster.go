// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// PeriodRepository 排班周期仓储
type PeriodRepository struct {
	db DB
}

// NewPeriodRepository 创建排班周期仓储
func NewPeriodRepository(db DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Create 创建排班周期
func (r *PeriodRepository) Create(ctx context.Context, period *model.RosterPeriod) error {
	if period.ID == uuid.Nil {
		period.ID = uuid.New()
	}
	now := time.Now()
	period.CreatedAt = now
	period.UpdatedAt = now
	if period.Status == "" {
		period.Status = "draft"
	}

	query := `
		INSERT INTO roster_periods (id, name, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		period.ID, period.Name, period.StartDate, period.EndDate, period.Status,
		period.CreatedAt, period.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建排班周期失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取排班周期
func (r *PeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RosterPeriod, error) {
	query := `
		SELECT id, name, start_date, end_date, status, created_at, updated_at
		FROM roster_periods
		WHERE id = $1 AND deleted_at IS NULL
	`

	period := &model.RosterPeriod{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&period.ID, &period.Name, &period.StartDate, &period.EndDate, &period.Status,
		&period.CreatedAt, &period.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班周期失败: %w", err)
	}

	return period, nil
}

// UpdateStatus 更新周期状态
func (r *PeriodRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE roster_periods SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新周期状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班周期不存在")
	}

	return nil
}

// List 查询排班周期列表
func (r *PeriodRepository) List(ctx context.Context, filter ListFilter) ([]*model.RosterPeriod, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", argIndex))
		args = append(args, filter.StartDate)
		argIndex++
	}
	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", argIndex))
		args = append(args, filter.EndDate)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM roster_periods WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, start_date, end_date, status, created_at, updated_at
		FROM roster_periods
		WHERE %s
		ORDER BY start_date DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var periods []*model.RosterPeriod
	for rows.Next() {
		period := &model.RosterPeriod{}
		if err := rows.Scan(
			&period.ID, &period.Name, &period.StartDate, &period.EndDate, &period.Status,
			&period.CreatedAt, &period.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("扫描排班周期失败: %w", err)
		}
		periods = append(periods, period)
	}

	return periods, total, nil
}

// AvailabilityRepository 可用性仓储
type AvailabilityRepository struct {
	db DB
}

// NewAvailabilityRepository 创建可用性仓储
func NewAvailabilityRepository(db DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ReplaceForPeriod 覆盖写入某周期的全部可用性记录
// 先删后插，在支持事务的连接上整体原子
func (r *AvailabilityRepository) ReplaceForPeriod(ctx context.Context, periodID uuid.UUID, records []model.AvailabilityRecord) error {
	return withinTx(ctx, r.db, func(db DB) error {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM availability WHERE period_id = $1`, periodID); err != nil {
			return fmt.Errorf("清除旧可用性记录失败: %w", err)
		}

		query := `
			INSERT INTO availability (period_id, doctor_id, date, post, available)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, rec := range records {
			if _, err := db.ExecContext(ctx, query,
				periodID, rec.DoctorID, rec.Date, rec.Post, rec.Available); err != nil {
				return fmt.Errorf("写入可用性记录失败: %w", err)
			}
		}
		return nil
	})
}

// ListForPeriod 获取某周期的全部可用性记录
func (r *AvailabilityRepository) ListForPeriod(ctx context.Context, periodID uuid.UUID) ([]model.AvailabilityRecord, error) {
	query := `
		SELECT doctor_id, date, post, available
		FROM availability
		WHERE period_id = $1
		ORDER BY date, post
	`

	rows, err := r.db.QueryContext(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("查询可用性记录失败: %w", err)
	}
	defer rows.Close()

	var records []model.AvailabilityRecord
	for rows.Next() {
		var rec model.AvailabilityRecord
		if err := rows.Scan(&rec.DoctorID, &rec.Date, &rec.Post, &rec.Available); err != nil {
			return nil, fmt.Errorf("扫描可用性记录失败: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// ScheduleRepository 排班表仓储
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository 创建排班表仓储
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// SaveGenerated 保存生成的排班（覆盖同周期的旧草稿）
// 删旧草稿和写新排班在一个事务内，中途失败不会丢掉原有草稿
func (r *ScheduleRepository) SaveGenerated(ctx context.Context, schedule *model.Schedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	schedule.GeneratedAt = &now
	if schedule.Status == "" {
		schedule.Status = "draft"
	}

	return withinTx(ctx, r.db, func(db DB) error {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM schedules WHERE period_id = $1 AND status = 'draft'`,
			schedule.PeriodID); err != nil {
			return fmt.Errorf("清除旧排班草稿失败: %w", err)
		}

		query := `
			INSERT INTO schedules (id, period_id, status, generated_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := db.ExecContext(ctx, query,
			schedule.ID, schedule.PeriodID, schedule.Status, schedule.GeneratedAt,
			schedule.CreatedAt, schedule.UpdatedAt); err != nil {
			return fmt.Errorf("保存排班表失败: %w", err)
		}

		assignQuery := `
			INSERT INTO assignments (id, schedule_id, doctor_id, date, post)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, a := range schedule.Assignments {
			if _, err := db.ExecContext(ctx, assignQuery,
				a.ID, schedule.ID, a.DoctorID, a.Date, a.Post); err != nil {
				return fmt.Errorf("保存排班分配失败: %w", err)
			}
		}
		return nil
	})
}

// GetByPeriod 获取某周期最新的排班表（含分配）
func (r *ScheduleRepository) GetByPeriod(ctx context.Context, periodID uuid.UUID) (*model.Schedule, error) {
	query := `
		SELECT id, period_id, status, generated_at, created_at, updated_at
		FROM schedules
		WHERE period_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	schedule := &model.Schedule{}
	err := r.db.QueryRowContext(ctx, query, periodID).Scan(
		&schedule.ID, &schedule.PeriodID, &schedule.Status, &schedule.GeneratedAt,
		&schedule.CreatedAt, &schedule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班表失败: %w", err)
	}

	assignments, err := r.listAssignments(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	schedule.Assignments = assignments

	return schedule, nil
}

// UpdateStatus 更新排班表状态
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE schedules SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新排班表状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班表不存在")
	}

	return nil
}

// ReplaceAssignment 替换单个排班分配（人工改班）
func (r *ScheduleRepository) ReplaceAssignment(ctx context.Context, scheduleID uuid.UUID, old uuid.UUID, replacement *model.Assignment) error {
	return withinTx(ctx, r.db, func(db DB) error {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM assignments WHERE schedule_id = $1 AND id = $2`,
			scheduleID, old); err != nil {
			return fmt.Errorf("删除旧排班分配失败: %w", err)
		}

		if _, err := db.ExecContext(ctx,
			`INSERT INTO assignments (id, schedule_id, doctor_id, date, post) VALUES ($1, $2, $3, $4, $5)`,
			replacement.ID, scheduleID, replacement.DoctorID, replacement.Date, replacement.Post); err != nil {
			return fmt.Errorf("写入新排班分配失败: %w", err)
		}
		return nil
	})
}

// ListHistory 获取某日期之前的历史排班分配（用于工作量统计）
func (r *ScheduleRepository) ListHistory(ctx context.Context, before string, months int) ([]*model.Assignment, error) {
	t, err := model.ParseDate(before)
	if err != nil {
		return nil, err
	}
	cutoff := t.AddDate(0, -months, 0).Format(model.DateLayout)

	query := `
		SELECT a.id, a.doctor_id, a.date, a.post
		FROM assignments a
		JOIN schedules s ON s.id = a.schedule_id
		WHERE s.status = 'published' AND a.date >= $1 AND a.date < $2
		ORDER BY a.date, a.post
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff, before)
	if err != nil {
		return nil, fmt.Errorf("查询历史排班失败: %w", err)
	}
	defer rows.Close()

	var assignments []*model.Assignment
	for rows.Next() {
		a := &model.Assignment{}
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.Date, &a.Post); err != nil {
			return nil, fmt.Errorf("扫描排班分配失败: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}

// listAssignments 获取某排班表的全部分配
func (r *ScheduleRepository) listAssignments(ctx context.Context, scheduleID uuid.UUID) ([]*model.Assignment, error) {
	query := `
		SELECT id, doctor_id, date, post
		FROM assignments
		WHERE schedule_id = $1
		ORDER BY date, post
	`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("查询排班分配失败: %w", err)
	}
	defer rows.Close()

	var assignments []*model.Assignment
	for rows.Next() {
		a := &model.Assignment{}
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.Date, &a.Post); err != nil {
			return nil, fmt.Errorf("扫描排班分配失败: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}
