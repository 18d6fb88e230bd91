package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus 求解作业状态
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// IsTerminal 检查作业是否已结束
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// SolveJob 异步求解作业
// 同一排班周期同时最多一个未结束的作业
type SolveJob struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PeriodID    uuid.UUID  `json:"period_id" db:"period_id"`
	Status      JobStatus  `json:"status" db:"status"`
	Message     string     `json:"message,omitempty" db:"message"`
	SolverState string     `json:"solver_status,omitempty" db:"solver_status"` // optimal/timed_out_non_optimal/infeasible
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// NewSolveJob 创建求解作业
func NewSolveJob(periodID uuid.UUID) *SolveJob {
	return &SolveJob{
		ID:        uuid.New(),
		PeriodID:  periodID,
		Status:    JobPending,
		CreatedAt: time.Now(),
	}
}
