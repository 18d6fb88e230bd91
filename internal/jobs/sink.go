// Package jobs 提供异步求解作业的编排
package jobs

import (
	"context"
	"time"

	"github.com/medschedulr/medschedulr/internal/repository"
	"github.com/medschedulr/medschedulr/pkg/logger"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
)

// RepositorySink 将作业状态与排班结果落库
// 持久化失败只记日志，不影响内存中的作业状态机
type RepositorySink struct {
	jobs      *repository.JobRepository
	schedules *repository.ScheduleRepository
}

// NewRepositorySink 创建数据库持久化Sink
func NewRepositorySink(jobs *repository.JobRepository, schedules *repository.ScheduleRepository) *RepositorySink {
	return &RepositorySink{jobs: jobs, schedules: schedules}
}

// JobCreated 作业创建时写入审计记录
func (s *RepositorySink) JobCreated(ctx context.Context, job *model.SolveJob) {
	if err := s.jobs.Create(ctx, job); err != nil {
		logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("作业落库失败")
	}
}

// JobUpdated 作业状态变更时同步到数据库
func (s *RepositorySink) JobUpdated(ctx context.Context, job *model.SolveJob) {
	if err := s.jobs.UpdateStatus(ctx, job); err != nil {
		logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("作业状态落库失败")
	}
}

// ResultReady 求解完成时将排班结果存为草稿
func (s *RepositorySink) ResultReady(ctx context.Context, job *model.SolveJob, result *solver.Result) {
	now := time.Now()
	schedule := &model.Schedule{
		BaseModel:   model.NewBaseModel(),
		PeriodID:    job.PeriodID,
		Status:      "draft",
		Assignments: result.Assignments,
		GeneratedAt: &now,
	}
	if err := s.schedules.SaveGenerated(ctx, schedule); err != nil {
		logger.Error().Err(err).
			Str("job_id", job.ID.String()).
			Str("period_id", job.PeriodID.String()).
			Msg("排班结果落库失败")
	}
}
