// Package jobs 提供异步求解作业的编排
// 排班生成在后台goroutine中运行，调用方通过作业ID轮询结果
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/internal/metrics"
	"github.com/medschedulr/medschedulr/pkg/errors"
	"github.com/medschedulr/medschedulr/pkg/logger"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
)

// Job 内存中的作业状态
type Job struct {
	*model.SolveJob
	Result *solver.Result `json:"result,omitempty"`
	cancel context.CancelFunc
}

// Solver 求解器接口
type Solver interface {
	Solve(ctx context.Context, p *solver.Problem) (*solver.Result, error)
}

// Sink 作业状态变更的持久化回调
// nil方法调用方可传入NoopSink，作业编排不依赖数据库
type Sink interface {
	JobCreated(ctx context.Context, job *model.SolveJob)
	JobUpdated(ctx context.Context, job *model.SolveJob)
	ResultReady(ctx context.Context, job *model.SolveJob, result *solver.Result)
}

// NoopSink 不做任何持久化
type NoopSink struct{}

func (NoopSink) JobCreated(context.Context, *model.SolveJob)                  {}
func (NoopSink) JobUpdated(context.Context, *model.SolveJob)                  {}
func (NoopSink) ResultReady(context.Context, *model.SolveJob, *solver.Result) {}

// Manager 作业管理器
// 同一排班周期同时最多一个未结束的作业，重复提交返回冲突错误
type Manager struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]*Job
	byPeriod  map[uuid.UUID]uuid.UUID // periodID -> 未结束作业ID
	solver    Solver
	sink      Sink
	retention time.Duration
}

// NewManager 创建作业管理器
func NewManager(s Solver, sink Sink, retention time.Duration) *Manager {
	if sink == nil {
		sink = NoopSink{}
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Manager{
		jobs:      make(map[uuid.UUID]*Job),
		byPeriod:  make(map[uuid.UUID]uuid.UUID),
		solver:    s,
		sink:      sink,
		retention: retention,
	}
}

// Submit 提交求解作业
// 立即返回PENDING状态的作业，求解在后台进行
func (m *Manager) Submit(ctx context.Context, p *solver.Problem) (*model.SolveJob, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existingID, ok := m.byPeriod[p.PeriodID]; ok {
		if existing := m.jobs[existingID]; existing != nil && !existing.Status.IsTerminal() {
			m.mu.Unlock()
			return nil, errors.JobConflict(p.PeriodID.String())
		}
	}

	job := &Job{SolveJob: model.NewSolveJob(p.PeriodID)}
	runCtx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	m.jobs[job.ID] = job
	m.byPeriod[p.PeriodID] = job.ID
	m.mu.Unlock()

	m.sink.JobCreated(ctx, job.SolveJob)
	metrics.SetActiveJobs(m.activeCount())
	logger.Info().
		Str("job_id", job.ID.String()).
		Str("period_id", p.PeriodID.String()).
		Msg("求解作业已提交")

	go m.run(runCtx, job, p)

	return snapshot(job), nil
}

// run 执行求解并更新作业状态
func (m *Manager) run(ctx context.Context, job *Job, p *solver.Problem) {
	now := time.Now()
	started := m.update(job, func(j *Job) {
		j.Status = model.JobRunning
		j.StartedAt = &now
	})
	if !started {
		// goroutine启动前已被取消
		metrics.SetActiveJobs(m.activeCount())
		logger.Info().
			Str("job_id", job.ID.String()).
			Msg("作业在启动前已取消")
		return
	}

	result, err := m.solver.Solve(ctx, p)

	finished := time.Now()
	applied := m.update(job, func(j *Job) {
		j.FinishedAt = &finished
		if err != nil {
			j.Status = model.JobFailed
			j.Message = err.Error()
			if result != nil && result.Statistics != nil {
				j.SolverState = result.Statistics.SolverStatus
			} else {
				j.SolverState = solver.StatusInfeasible
			}
		} else {
			j.Status = model.JobCompleted
			j.Message = result.Message
			j.SolverState = result.Statistics.SolverStatus
			j.Result = result
		}
	})

	m.mu.RLock()
	final := job.Status
	solverState := job.SolverState
	m.mu.RUnlock()

	// 求解期间被取消的作业保持CANCELLED，结果不落库
	if applied && final == model.JobCompleted {
		m.sink.ResultReady(context.Background(), job.SolveJob, result)
	}

	metrics.SetActiveJobs(m.activeCount())
	if applied && result != nil {
		metrics.RecordSolve(string(result.Phase), solverState, finished.Sub(now))
		if result.Statistics != nil {
			metrics.SetObjectiveValue(job.PeriodID.String(), result.Statistics.ObjectiveValue)
		}
	}
	logger.Info().
		Str("job_id", job.ID.String()).
		Str("status", string(final)).
		Dur("duration", finished.Sub(now)).
		Msg("求解作业结束")
}

// Get 获取作业状态
func (m *Manager) Get(id uuid.UUID) (*model.SolveJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.JobNotFound(id.String())
	}
	return snapshot(job), nil
}

// GetResult 获取已完成作业的求解结果
func (m *Manager) GetResult(id uuid.UUID) (*solver.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.JobNotFound(id.String())
	}
	if job.Status != model.JobCompleted {
		return nil, errors.New(errors.CodeJobConflict, "作业尚未完成")
	}
	return job.Result, nil
}

// Cancel 取消未结束的作业
func (m *Manager) Cancel(id uuid.UUID) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return errors.JobNotFound(id.String())
	}
	if job.Status.IsTerminal() {
		m.mu.Unlock()
		return errors.New(errors.CodeJobCancelled, "作业已结束，无法取消")
	}
	now := time.Now()
	job.Status = model.JobCancelled
	job.FinishedAt = &now
	cancel := job.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.sink.JobUpdated(context.Background(), job.SolveJob)
	return nil
}

// ActiveJob 返回某周期当前未结束的作业
func (m *Manager) ActiveJob(periodID uuid.UUID) *model.SolveJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPeriod[periodID]
	if !ok {
		return nil
	}
	job := m.jobs[id]
	if job == nil || job.Status.IsTerminal() {
		return nil
	}
	return snapshot(job)
}

// Sweep 清理结束已久的作业,返回清理数量
func (m *Manager) Sweep() int {
	cutoff := time.Now().Add(-m.retention)
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, job := range m.jobs {
		if !job.Status.IsTerminal() || job.FinishedAt == nil || job.FinishedAt.After(cutoff) {
			continue
		}
		delete(m.jobs, id)
		if m.byPeriod[job.PeriodID] == id {
			delete(m.byPeriod, job.PeriodID)
		}
		removed++
	}
	return removed
}

// activeCount 统计未结束的作业数
func (m *Manager) activeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, job := range m.jobs {
		if !job.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// update 在锁内修改作业并通知持久化回调
// 已结束的作业不再变更，终态不可逆转；返回是否实际修改
func (m *Manager) update(job *Job, fn func(*Job)) bool {
	m.mu.Lock()
	if job.Status.IsTerminal() {
		m.mu.Unlock()
		return false
	}
	fn(job)
	m.mu.Unlock()
	m.sink.JobUpdated(context.Background(), job.SolveJob)
	return true
}

// snapshot 复制作业的对外可见状态
func snapshot(job *Job) *model.SolveJob {
	copied := *job.SolveJob
	return &copied
}
