package stats

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("解析日期失败: %v", err)
	}
	return d
}

func asn(doctorID uuid.UUID, date, post string) *model.Assignment {
	return &model.Assignment{ID: uuid.New(), DoctorID: doctorID, Date: date, Post: post}
}

func TestScoreOne_PriorityScenario(t *testing.T) {
	// 短窗口内6个平日值班+2个周末值班，长窗口内1次待命，距上次待命40天
	// 预期分数 = 8 + 100×1 − min(40/30, 50) ≈ 106.67
	ref := mustDate(t, "2025-08-01")
	scorer := NewWorkloadScorer(ScorerOptions{ReferenceDate: ref})

	docID := uuid.New()
	history := []*model.Assignment{
		asn(docID, "2025-07-07", "ED1"),
		asn(docID, "2025-07-08", "Ward3"),
		asn(docID, "2025-07-09", "Ward3"),
		asn(docID, "2025-07-10", "ED2"),
		asn(docID, "2025-07-11", "Ward1"),
		asn(docID, "2025-07-14", "Ward2"),
		asn(docID, "2025-07-12", "Ward3"),
		asn(docID, "2025-07-13", "Ward3"),
		asn(docID, "2025-06-22", model.StandbyPostName), // 距参考日期40天
	}

	counters, lastStandby := scorer.ScoreOne(history)

	if counters.WeekdayOncall != 6 {
		t.Errorf("WeekdayOncall = %d, want 6", counters.WeekdayOncall)
	}
	if counters.WeekendOncall != 2 {
		t.Errorf("WeekendOncall = %d, want 2", counters.WeekendOncall)
	}
	if counters.EDPosts != 2 {
		t.Errorf("EDPosts = %d, want 2", counters.EDPosts)
	}
	if counters.StandbyLong != 1 {
		t.Errorf("StandbyLong = %d, want 1", counters.StandbyLong)
	}
	if counters.DaysSinceStandby != 40 {
		t.Errorf("DaysSinceStandby = %d, want 40", counters.DaysSinceStandby)
	}
	if lastStandby == nil || *lastStandby != "2025-06-22" {
		t.Errorf("lastStandby = %v, want 2025-06-22", lastStandby)
	}

	wantScore := 8 + 100.0 - 40.0/30.0
	if math.Abs(counters.PriorityScore-wantScore) > 1e-6 {
		t.Errorf("PriorityScore = %.4f, want %.4f", counters.PriorityScore, wantScore)
	}
}

func TestScoreOne_NeverStandby(t *testing.T) {
	// 从未待命的医生应使用哨兵值，并获得最大的近期加成
	ref := mustDate(t, "2025-08-01")
	scorer := NewWorkloadScorer(ScorerOptions{ReferenceDate: ref})

	docID := uuid.New()
	counters, lastStandby := scorer.ScoreOne([]*model.Assignment{
		asn(docID, "2025-07-15", "Ward1"),
	})

	if lastStandby != nil {
		t.Errorf("lastStandby = %v, want nil", lastStandby)
	}
	if counters.DaysSinceStandby != model.NeverStandbyDays {
		t.Errorf("DaysSinceStandby = %d, want %d", counters.DaysSinceStandby, model.NeverStandbyDays)
	}

	// 近期加成封顶50
	wantScore := 1.0 - 50.0
	if math.Abs(counters.PriorityScore-wantScore) > 1e-6 {
		t.Errorf("PriorityScore = %.4f, want %.4f", counters.PriorityScore, wantScore)
	}
}

func TestScoreOne_ClinicExcluded(t *testing.T) {
	// 门诊记录不计入值班计数
	ref := mustDate(t, "2025-08-01")
	scorer := NewWorkloadScorer(ScorerOptions{ReferenceDate: ref})

	docID := uuid.New()
	counters, _ := scorer.ScoreOne([]*model.Assignment{
		asn(docID, "2025-07-15", model.ClinicPostName),
		asn(docID, "2025-07-16", "clinic"),
	})

	if counters.WeekdayOncall != 0 || counters.WeekendOncall != 0 {
		t.Errorf("门诊记录被计入值班: weekday=%d weekend=%d",
			counters.WeekdayOncall, counters.WeekendOncall)
	}
}

func TestScoreOne_WindowBoundaries(t *testing.T) {
	// 窗口外的记录不计数
	ref := mustDate(t, "2025-08-01")
	scorer := NewWorkloadScorer(ScorerOptions{ReferenceDate: ref})

	docID := uuid.New()
	counters, _ := scorer.ScoreOne([]*model.Assignment{
		asn(docID, "2025-04-01", "Ward1"),                 // 短窗口外
		asn(docID, "2024-06-01", model.StandbyPostName),   // 长窗口外
		asn(docID, "2025-09-01", "Ward1"),                 // 参考日期之后
	})

	if counters.WeekdayOncall != 0 {
		t.Errorf("短窗口外的值班被计数: %d", counters.WeekdayOncall)
	}
	if counters.StandbyLong != 0 {
		t.Errorf("长窗口外的待命被计数: %d", counters.StandbyLong)
	}
	// 最近待命日期仍会记录，哨兵值不适用
	if counters.DaysSinceStandby == model.NeverStandbyDays {
		t.Error("历史待命存在时不应使用哨兵值")
	}
}

func TestEligibleForStandby(t *testing.T) {
	d1 := &model.Doctor{BaseModel: model.NewBaseModel(), Active: true,
		Workload: &model.WorkloadCounters{StandbyLong: 0}}
	d2 := &model.Doctor{BaseModel: model.NewBaseModel(), Active: true,
		Workload: &model.WorkloadCounters{StandbyLong: 1}}
	d3 := &model.Doctor{BaseModel: model.NewBaseModel(), Active: false,
		Workload: &model.WorkloadCounters{StandbyLong: 0}}

	eligible := EligibleForStandby([]*model.Doctor{d1, d2, d3})
	if len(eligible) != 1 || eligible[0] != d1 {
		t.Errorf("可待命医生过滤错误, got %d 人", len(eligible))
	}
}

func TestAnalyzeDistribution(t *testing.T) {
	d1 := &model.Doctor{BaseModel: model.NewBaseModel(),
		Workload: &model.WorkloadCounters{WeekdayOncall: 4, WeekendOncall: 2}}
	d2 := &model.Doctor{BaseModel: model.NewBaseModel(),
		Workload: &model.WorkloadCounters{WeekdayOncall: 4, WeekendOncall: 2}}

	dist := AnalyzeDistribution([]*model.Doctor{d1, d2})
	if dist.AvgOncall != 6 {
		t.Errorf("AvgOncall = %.1f, want 6", dist.AvgOncall)
	}
	if dist.OncallGini != 0 {
		t.Errorf("完全均等分布的基尼系数应为0, got %.4f", dist.OncallGini)
	}
	if dist.FairnessScore != 100 {
		t.Errorf("完全均等分布的评分应为100, got %.1f", dist.FairnessScore)
	}
}
