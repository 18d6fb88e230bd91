package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/medschedulr/medschedulr/pkg/errors"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
)

// fakeSolver 可控的求解器测试替身
type fakeSolver struct {
	mu      sync.Mutex
	block   chan struct{} // 非nil时阻塞到通道关闭或ctx取消
	err     error
	started chan struct{}
}

func (f *fakeSolver) Solve(ctx context.Context, p *solver.Problem) (*solver.Result, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &solver.Result{
		Success:    true,
		Statistics: &solver.Statistics{SolverStatus: solver.StatusOptimal},
		Message:    "ok",
	}, nil
}

func testProblem() *solver.Problem {
	unit := &model.Unit{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "内科"}
	return &solver.Problem{
		PeriodID: uuid.New(),
		Period:   model.DateRange{StartDate: "2025-08-04", EndDate: "2025-08-10"},
		Doctors: []*model.Doctor{
			{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "张医生", UnitID: unit.ID, Category: model.CategoryJunior, Active: true},
		},
		Units: []*model.Unit{unit},
		Posts: []*model.Post{
			{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "ED1", Applicability: model.PostBoth},
		},
	}
}

func waitForStatus(t *testing.T, m *Manager, id uuid.UUID, want model.JobStatus) *model.SolveJob {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		job, err := m.Get(id)
		if err != nil {
			t.Fatalf("查询作业失败: %v", err)
		}
		if job.Status == want {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("等待状态 %s 超时，当前 %s", want, job.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// TestSubmit_Lifecycle 正常作业走完 PENDING→RUNNING→COMPLETED
func TestSubmit_Lifecycle(t *testing.T) {
	m := NewManager(&fakeSolver{}, nil, time.Hour)

	job, err := m.Submit(context.Background(), testProblem())
	if err != nil {
		t.Fatalf("提交作业失败: %v", err)
	}
	if job.Status != model.JobPending {
		t.Errorf("初始状态错误: got %s", job.Status)
	}

	done := waitForStatus(t, m, job.ID, model.JobCompleted)
	if done.SolverState != solver.StatusOptimal {
		t.Errorf("求解状态错误: got %s", done.SolverState)
	}
	if done.FinishedAt == nil {
		t.Error("完成作业应有结束时间")
	}

	result, err := m.GetResult(job.ID)
	if err != nil {
		t.Fatalf("获取结果失败: %v", err)
	}
	if !result.Success {
		t.Error("结果应为成功")
	}
}

// TestSubmit_PerPeriodConflict 同周期重复提交应冲突
func TestSubmit_PerPeriodConflict(t *testing.T) {
	block := make(chan struct{})
	m := NewManager(&fakeSolver{block: block}, nil, time.Hour)

	p := testProblem()
	first, err := m.Submit(context.Background(), p)
	if err != nil {
		t.Fatalf("首次提交失败: %v", err)
	}

	_, err = m.Submit(context.Background(), p)
	if err == nil {
		t.Fatal("同周期重复提交应返回冲突")
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok || appErr.Code != apperrors.CodeJobConflict {
		t.Errorf("错误码错误: %v", err)
	}

	// 首个作业结束后可再次提交
	close(block)
	waitForStatus(t, m, first.ID, model.JobCompleted)
	if _, err := m.Submit(context.Background(), p); err != nil {
		t.Errorf("作业结束后重新提交应成功: %v", err)
	}
}

// TestCancel 取消运行中的作业
func TestCancel(t *testing.T) {
	started := make(chan struct{})
	m := NewManager(&fakeSolver{block: make(chan struct{}), started: started}, nil, time.Hour)

	job, err := m.Submit(context.Background(), testProblem())
	if err != nil {
		t.Fatalf("提交作业失败: %v", err)
	}
	<-started

	if err := m.Cancel(job.ID); err != nil {
		t.Fatalf("取消作业失败: %v", err)
	}
	got := waitForStatus(t, m, job.ID, model.JobCancelled)
	if got.FinishedAt == nil {
		t.Error("取消的作业应有结束时间")
	}

	// 再次取消应失败
	if err := m.Cancel(job.ID); err == nil {
		t.Error("重复取消应返回错误")
	}
}

// stubbornSolver 无视取消信号，放行后总是返回成功结果
type stubbornSolver struct {
	release chan struct{}
	started chan struct{}
}

func (s *stubbornSolver) Solve(ctx context.Context, p *solver.Problem) (*solver.Result, error) {
	close(s.started)
	<-s.release
	return &solver.Result{
		Success:    true,
		Statistics: &solver.Statistics{SolverStatus: solver.StatusOptimal},
		Message:    "ok",
	}, nil
}

// recordingSink 记录持久化回调的调用次数
type recordingSink struct {
	mu          sync.Mutex
	resultReady int
}

func (r *recordingSink) JobCreated(context.Context, *model.SolveJob) {}
func (r *recordingSink) JobUpdated(context.Context, *model.SolveJob) {}
func (r *recordingSink) ResultReady(context.Context, *model.SolveJob, *solver.Result) {
	r.mu.Lock()
	r.resultReady++
	r.mu.Unlock()
}

// TestCancel_NotRevivedBySolveFinish 取消后求解器返回成功也不得复活作业
func TestCancel_NotRevivedBySolveFinish(t *testing.T) {
	s := &stubbornSolver{release: make(chan struct{}), started: make(chan struct{})}
	sink := &recordingSink{}
	m := NewManager(s, sink, time.Hour)

	job, err := m.Submit(context.Background(), testProblem())
	if err != nil {
		t.Fatalf("提交作业失败: %v", err)
	}
	<-s.started

	if err := m.Cancel(job.ID); err != nil {
		t.Fatalf("取消作业失败: %v", err)
	}
	close(s.release)

	// 等run goroutine跑过终态更新后检查状态未被改写
	time.Sleep(100 * time.Millisecond)
	got, err := m.Get(job.ID)
	if err != nil {
		t.Fatalf("查询作业失败: %v", err)
	}
	if got.Status != model.JobCancelled {
		t.Errorf("取消后的作业被复活: got %s", got.Status)
	}
	if _, err := m.GetResult(job.ID); err == nil {
		t.Error("取消的作业不应有结果")
	}
	sink.mu.Lock()
	calls := sink.resultReady
	sink.mu.Unlock()
	if calls != 0 {
		t.Errorf("取消的作业不应落库结果，ResultReady被调用 %d 次", calls)
	}
}

// TestCancel_BeforeRunStart 取消先于run goroutine启动时状态不得回到RUNNING
func TestCancel_BeforeRunStart(t *testing.T) {
	m := NewManager(&fakeSolver{}, nil, time.Hour)

	now := time.Now()
	job := &Job{SolveJob: model.NewSolveJob(uuid.New())}
	job.Status = model.JobCancelled
	job.FinishedAt = &now
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.run(context.Background(), job, testProblem())

	got, err := m.Get(job.ID)
	if err != nil {
		t.Fatalf("查询作业失败: %v", err)
	}
	if got.Status != model.JobCancelled {
		t.Errorf("终态作业被改写: got %s", got.Status)
	}
	if got.StartedAt != nil {
		t.Error("取消的作业不应有启动时间")
	}
}

// TestGet_NotFound 未知作业ID返回not found
func TestGet_NotFound(t *testing.T) {
	m := NewManager(&fakeSolver{}, nil, time.Hour)
	_, err := m.Get(uuid.New())
	if err == nil {
		t.Fatal("未知作业应返回错误")
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok || appErr.Code != apperrors.CodeJobNotFound {
		t.Errorf("错误码错误: %v", err)
	}
}

// TestSweep 只清理超过保留期的已结束作业
func TestSweep(t *testing.T) {
	m := NewManager(&fakeSolver{}, nil, time.Hour)
	job, err := m.Submit(context.Background(), testProblem())
	if err != nil {
		t.Fatalf("提交作业失败: %v", err)
	}
	waitForStatus(t, m, job.ID, model.JobCompleted)

	if removed := m.Sweep(); removed != 0 {
		t.Errorf("保留期内不应清理作业，实际清理 %d", removed)
	}

	// 人为把结束时间挪到保留期之外
	m.mu.Lock()
	old := time.Now().Add(-2 * time.Hour)
	m.jobs[job.ID].FinishedAt = &old
	m.mu.Unlock()

	if removed := m.Sweep(); removed != 1 {
		t.Errorf("应清理1个过期作业，实际 %d", removed)
	}
	if _, err := m.Get(job.ID); err == nil {
		t.Error("清理后的作业不应可查")
	}
}

// TestSubmit_FailedSolve 求解失败的作业状态为FAILED
func TestSubmit_FailedSolve(t *testing.T) {
	m := NewManager(&fakeSolver{err: apperrors.NoFeasibleSolution("无可行解")}, nil, time.Hour)

	job, err := m.Submit(context.Background(), testProblem())
	if err != nil {
		t.Fatalf("提交作业失败: %v", err)
	}
	failed := waitForStatus(t, m, job.ID, model.JobFailed)
	if failed.Message == "" {
		t.Error("失败作业应带错误信息")
	}
	if _, err := m.GetResult(job.ID); err == nil {
		t.Error("失败作业不应有结果")
	}
}
