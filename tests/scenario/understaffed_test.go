package scenario

import (
	"context"
	"testing"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint/builtin"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
)

// TestUnderstaffed_RelaxedPlan 测试人手不足时的降级方案
// 全员进入待命冷却期后严格阶段不可行，松弛阶段仍须产出方案
func TestUnderstaffed_RelaxedPlan(t *testing.T) {
	f := newHospitalFixture()
	for _, d := range f.doctors {
		d.Workload.StandbyLong = 1
		d.Workload.DaysSinceStandby = 20
	}

	result, err := solver.NewTwoPhaseSolver().Solve(context.Background(), f.problem())
	if err != nil {
		t.Fatalf("松弛阶段应产出降级方案: %v", err)
	}
	if result.Phase != builtin.PhaseRelaxed {
		t.Errorf("无可待命医生时应进入松弛阶段, phase=%s", result.Phase)
	}
	if len(result.Relaxations) == 0 {
		t.Error("降级方案应上报被松弛的规则")
	}
	for _, r := range result.Relaxations {
		t.Logf("松弛: %s ×%d", r.Name, r.Count)
	}

	// 禁止重复排班在松弛阶段仍是硬规则
	perDay := make(map[string]int)
	for _, a := range result.Assignments {
		if a.IsOncall() {
			perDay[a.DoctorID.String()+"/"+a.Date]++
		}
	}
	for key, n := range perDay {
		if n > 1 {
			t.Errorf("医生日 %s 有 %d 个值班分配", key, n)
		}
	}
}

// TestUnderstaffed_NoDoctors 测试空医生列表快速失败
func TestUnderstaffed_NoDoctors(t *testing.T) {
	f := newHospitalFixture()
	p := f.problem()
	p.Doctors = nil

	if _, err := solver.NewTwoPhaseSolver().Solve(context.Background(), p); err == nil {
		t.Error("没有医生时应返回错误而非空方案")
	}
}

// TestUnderstaffed_PartialAvailability 测试可用性稀疏时的兜底
// 只有半数医生提交了可用性，其余按fail-closed视为不可用
func TestUnderstaffed_PartialAvailability(t *testing.T) {
	f := newHospitalFixture()

	available := make(map[string]bool)
	for i, d := range f.doctors {
		if i < 5 {
			available[d.ID.String()] = true
		}
	}
	var sparse []model.AvailabilityRecord
	for _, rec := range f.availability {
		if available[rec.DoctorID.String()] {
			sparse = append(sparse, rec)
		}
	}

	p := f.problem()
	p.Availability = sparse

	result, err := solver.NewTwoPhaseSolver().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}

	// 严格阶段成功时，未提交可用性的医生绝不能出现在值班表中
	if result.Phase == builtin.PhaseStrict {
		for _, a := range result.Assignments {
			if a.IsOncall() && !available[a.DoctorID.String()] {
				t.Errorf("未提交可用性的医生 %s 被排班", a.DoctorID)
			}
		}
	}
	t.Logf("稀疏可用性: phase=%s, %d条分配", result.Phase, len(result.Assignments))
}
