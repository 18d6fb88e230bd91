package swap

import (
	"testing"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint/builtin"
)

func buildContext(t *testing.T) (*constraint.Context, []*model.Doctor) {
	t.Helper()

	unit := &model.Unit{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "内科"}
	doctors := []*model.Doctor{
		{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "张医生", UnitID: unit.ID, Category: model.CategoryJunior, Active: true},
		{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "李医生", UnitID: unit.ID, Category: model.CategorySenior, Active: true},
		{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "王医生", UnitID: unit.ID, Category: model.CategorySenior, Active: true},
		{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "赵医生", UnitID: unit.ID, Category: model.CategoryJunior, Active: true},
	}
	posts := []*model.Post{
		{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "ED1", Applicability: model.PostBoth},
		{BaseModel: model.BaseModel{ID: uuid.New()}, Name: model.StandbyPostName, Applicability: model.PostWeekend},
	}

	period := model.DateRange{StartDate: "2025-08-04", EndDate: "2025-08-10"}
	ctx := constraint.NewContext(uuid.New(), period)
	ctx.SetDoctors(doctors)
	ctx.SetUnits([]*model.Unit{unit})
	ctx.SetPosts(posts)

	// 所有医生全程全岗位可用
	for _, d := range doctors {
		for _, date := range period.Dates() {
			for _, p := range posts {
				ctx.Availability[model.AvailabilityKey{DoctorID: d.ID, Date: date, Post: p.Name}] = true
			}
		}
	}

	return ctx, doctors
}

// TestEvaluateSwap_TakeOver 正常接管应可行
func TestEvaluateSwap_TakeOver(t *testing.T) {
	ctx, doctors := buildContext(t)
	source := model.NewAssignment(doctors[0].ID, "2025-08-05", "ED1")
	ctx.SetAssignments([]*model.Assignment{source})

	cm := builtin.BuildManager(builtin.PhaseStrict, model.DefaultSolverWeights())
	evaluator := NewSwapEvaluator(cm)

	result := evaluator.EvaluateSwap(ctx, &SwapRequest{
		SourceAssignment: source,
		TargetDoctor:     doctors[3],
	})
	if !result.Feasible {
		t.Fatalf("正常接管应可行: %+v", result.Issues)
	}
	if result.Impact.TargetDoctorImpact.OncallChange != 1 {
		t.Errorf("目标医生值班变化错误: got %d", result.Impact.TargetDoctorImpact.OncallChange)
	}
	if result.Impact.SourceDoctorImpact.OncallChange != -1 {
		t.Errorf("源医生值班变化错误: got %d", result.Impact.SourceDoctorImpact.OncallChange)
	}
}

// TestEvaluateSwap_DoubleBookingRejected 接管造成同日双值班应不可行
func TestEvaluateSwap_DoubleBookingRejected(t *testing.T) {
	ctx, doctors := buildContext(t)
	source := model.NewAssignment(doctors[0].ID, "2025-08-05", "ED1")
	existing := model.NewAssignment(doctors[1].ID, "2025-08-05", "Ward1")
	ctx.SetAssignments([]*model.Assignment{source, existing})

	evaluator := NewSwapEvaluator(builtin.BuildManager(builtin.PhaseStrict, model.DefaultSolverWeights()))
	result := evaluator.EvaluateSwap(ctx, &SwapRequest{
		SourceAssignment: source,
		TargetDoctor:     doctors[1],
	})
	if result.Feasible {
		t.Fatal("造成同日双值班的接管应不可行")
	}
}

// TestEvaluateSwap_StandbyCooldown 冷却期内医生不可接管standby
func TestEvaluateSwap_StandbyCooldown(t *testing.T) {
	ctx, doctors := buildContext(t)
	doctors[2].Workload = &model.WorkloadCounters{StandbyLong: 1, DaysSinceStandby: 60}
	source := model.NewAssignment(doctors[0].ID, "2025-08-09", model.StandbyPostName)
	ctx.SetAssignments([]*model.Assignment{source})

	evaluator := NewSwapEvaluator(builtin.BuildManager(builtin.PhaseStrict, model.DefaultSolverWeights()))
	result := evaluator.EvaluateSwap(ctx, &SwapRequest{
		SourceAssignment: source,
		TargetDoctor:     doctors[2],
	})
	if result.Feasible {
		t.Fatal("冷却期医生接管standby应不可行")
	}
	if len(result.Issues) == 0 || result.Issues[0].Type != "standby_ineligible" {
		t.Errorf("问题类型错误: %+v", result.Issues)
	}
}

// TestEvaluateSwap_InactiveDoctor 不在职医生不可接管
func TestEvaluateSwap_InactiveDoctor(t *testing.T) {
	ctx, doctors := buildContext(t)
	doctors[1].Active = false
	ctx.SetDoctors(doctors)
	source := model.NewAssignment(doctors[0].ID, "2025-08-05", "ED1")
	ctx.SetAssignments([]*model.Assignment{source})

	evaluator := NewSwapEvaluator(nil)
	feasible, reason := evaluator.CanSwap(ctx, &SwapRequest{
		SourceAssignment: source,
		TargetDoctor:     doctors[1],
	})
	if feasible {
		t.Fatal("不在职医生接管应被拒绝")
	}
	if reason == "" {
		t.Error("拒绝时应给出原因")
	}
}

// TestRecommendSwapTargets 推荐应排除源医生并按罚分增量排序
func TestRecommendSwapTargets(t *testing.T) {
	ctx, doctors := buildContext(t)
	source := model.NewAssignment(doctors[0].ID, "2025-08-05", "ED1")
	ctx.SetAssignments([]*model.Assignment{source})

	recommender := NewRecommender(builtin.BuildManager(builtin.PhaseStrict, model.DefaultSolverWeights()))
	recommendations := recommender.RecommendSwapTargets(ctx, source, &RecommendOptions{
		MaxRecommendations: 3,
		MaxPenaltyDelta:    100,
	})

	if len(recommendations) == 0 {
		t.Fatal("应至少有一个推荐")
	}
	for i, rec := range recommendations {
		if rec.TargetDoctor.ID == doctors[0].ID {
			t.Error("推荐不应包含源医生")
		}
		if rec.Rank != i+1 {
			t.Errorf("排名错误: got %d want %d", rec.Rank, i+1)
		}
		if i > 0 && recommendations[i-1].PenaltyDelta > rec.PenaltyDelta {
			t.Error("推荐应按罚分增量升序排列")
		}
	}
}
