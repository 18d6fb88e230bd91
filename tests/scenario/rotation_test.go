package scenario

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/stats"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
)

// TestStandbyRotation 测试待命轮转：上月承担过待命的医生下月被排除
func TestStandbyRotation(t *testing.T) {
	f := newHospitalFixture()

	// 7月的历史排班：前3名医生各承担过一个待命周末
	var history []*model.Assignment
	weekends := [][2]string{
		{"2025-07-05", "2025-07-06"},
		{"2025-07-12", "2025-07-13"},
		{"2025-07-19", "2025-07-20"},
	}
	for i, wk := range weekends {
		d := f.doctors[i]
		history = append(history,
			model.NewAssignment(d.ID, wk[0], model.StandbyPostName),
			model.NewAssignment(d.ID, wk[1], model.StandbyPostName),
		)
	}

	// 以8月周期开始日为参照重算工作量
	opts := stats.DefaultScorerOptions()
	ref, _ := model.ParseDate(f.period.StartDate)
	opts.ReferenceDate = ref
	stats.NewWorkloadScorer(opts).Score(f.doctors, history)

	for i, d := range f.doctors {
		if i < 3 && d.StandbyEligible() {
			t.Errorf("医生 %s 长窗口内有待命记录，不应再可待命", d.Name)
		}
		if i >= 3 && !d.StandbyEligible() {
			t.Errorf("医生 %s 无待命记录，应可待命", d.Name)
		}
	}

	result, err := solver.NewTwoPhaseSolver().Solve(context.Background(), f.problem())
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}

	recent := make(map[uuid.UUID]bool)
	for i := 0; i < 3; i++ {
		recent[f.doctors[i].ID] = true
	}
	for _, a := range result.Assignments {
		if model.IsStandbyPost(a.Post) && recent[a.DoctorID] {
			t.Errorf("冷却期内的医生 %s 被分配8月待命", a.DoctorID)
		}
	}
}

// TestStandbyPriority 测试从未待命的医生优先级最高
func TestStandbyPriority(t *testing.T) {
	f := newHospitalFixture()

	var history []*model.Assignment
	// 医生1上周刚下待命，医生2半年前待命过
	history = append(history,
		model.NewAssignment(f.doctors[0].ID, "2025-07-26", model.StandbyPostName),
		model.NewAssignment(f.doctors[0].ID, "2025-07-27", model.StandbyPostName),
		model.NewAssignment(f.doctors[1].ID, "2025-02-01", model.StandbyPostName),
		model.NewAssignment(f.doctors[1].ID, "2025-02-02", model.StandbyPostName),
	)

	opts := stats.DefaultScorerOptions()
	ref, _ := model.ParseDate(f.period.StartDate)
	opts.ReferenceDate = ref
	stats.NewWorkloadScorer(opts).Score(f.doctors, history)

	s0 := f.doctors[0].Workload.PriorityScore
	s1 := f.doctors[1].Workload.PriorityScore
	s2 := f.doctors[2].Workload.PriorityScore

	// 分数越低优先级越高：从未待命 < 半年前待命 < 上周待命
	if !(s2 < s1 && s1 < s0) {
		t.Errorf("优先级顺序错误: 从未=%.1f 半年前=%.1f 上周=%.1f", s2, s1, s0)
	}
}

// TestFairnessAcrossPeriods 测试多周期累计后的公平性指标
func TestFairnessAcrossPeriods(t *testing.T) {
	f := newHospitalFixture()

	// 历史中前5名医生各值班4次，后5名各2次
	var history []*model.Assignment
	dates := []string{"2025-07-07", "2025-07-10", "2025-07-15", "2025-07-22"}
	for i, d := range f.doctors {
		n := 2
		if i < 5 {
			n = 4
		}
		for j := 0; j < n; j++ {
			history = append(history, model.NewAssignment(d.ID, dates[j%len(dates)], "ED1"))
		}
	}

	opts := stats.DefaultScorerOptions()
	ref, _ := model.ParseDate(f.period.StartDate)
	opts.ReferenceDate = ref
	stats.NewWorkloadScorer(opts).Score(f.doctors, history)

	dist := stats.AnalyzeDistribution(f.doctors)
	if dist.DoctorCount != 10 {
		t.Fatalf("医生数 = %d, want 10", dist.DoctorCount)
	}
	if dist.MaxOncall != 4 || dist.MinOncall != 2 {
		t.Errorf("极值 = [%d, %d], want [2, 4]", dist.MinOncall, dist.MaxOncall)
	}
	if dist.OncallGini <= 0 || dist.OncallGini >= 1 {
		t.Errorf("不均匀分布的基尼系数应在(0,1)内: %.3f", dist.OncallGini)
	}
	t.Logf("公平性: gini=%.3f score=%.1f", dist.OncallGini, dist.FairnessScore)
}
