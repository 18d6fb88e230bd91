// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// JobRepository 求解作业仓储
// 作业状态以内存为准，落库用于审计和重启后查询
type JobRepository struct {
	db DB
}

// NewJobRepository 创建求解作业仓储
func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create 创建作业记录
func (r *JobRepository) Create(ctx context.Context, job *model.SolveJob) error {
	query := `
		INSERT INTO solve_jobs (id, period_id, status, message, solver_status, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.PeriodID, job.Status, job.Message, job.SolverState,
		job.CreatedAt, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("创建作业记录失败: %w", err)
	}

	return nil
}

// UpdateStatus 更新作业状态
func (r *JobRepository) UpdateStatus(ctx context.Context, job *model.SolveJob) error {
	query := `
		UPDATE solve_jobs SET
			status = $2, message = $3, solver_status = $4, started_at = $5, finished_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Message, job.SolverState, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("更新作业状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("作业不存在")
	}

	return nil
}

// GetByID 根据ID获取作业
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SolveJob, error) {
	query := `
		SELECT id, period_id, status, message, solver_status, created_at, started_at, finished_at
		FROM solve_jobs
		WHERE id = $1
	`

	job := &model.SolveJob{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.PeriodID, &job.Status, &job.Message, &job.SolverState,
		&job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描作业记录失败: %w", err)
	}

	return job, nil
}

// ListByPeriod 获取某周期的作业记录（新的在前）
func (r *JobRepository) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]*model.SolveJob, error) {
	query := `
		SELECT id, period_id, status, message, solver_status, created_at, started_at, finished_at
		FROM solve_jobs
		WHERE period_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("查询作业记录失败: %w", err)
	}
	defer rows.Close()

	var jobs []*model.SolveJob
	for rows.Next() {
		job := &model.SolveJob{}
		if err := rows.Scan(
			&job.ID, &job.PeriodID, &job.Status, &job.Message, &job.SolverState,
			&job.CreatedAt, &job.StartedAt, &job.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描作业记录失败: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// DeleteFinishedBefore 清理早于给定时间结束的作业
func (r *JobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM solve_jobs WHERE finished_at IS NOT NULL AND finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("清理作业记录失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
