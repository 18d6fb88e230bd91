// Package swap 提供人工改班的评估与推荐
package swap

import (
	"sort"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// Recommender 换班推荐器
type Recommender struct {
	evaluator *SwapEvaluator
}

// NewRecommender 创建换班推荐器
func NewRecommender(cm *constraint.Manager) *Recommender {
	return &Recommender{
		evaluator: NewSwapEvaluator(cm),
	}
}

// Recommendation 换班推荐
type Recommendation struct {
	TargetDoctor  *model.Doctor     `json:"target_doctor"`
	Assignment    *model.Assignment `json:"assignment,omitempty"`
	PenaltyDelta  float64           `json:"penalty_delta"`
	Reason        string            `json:"reason"`
	SwapType      string            `json:"swap_type"` // take_over/exchange
	ImpactSummary string            `json:"impact_summary"`
	Rank          int               `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int         // 最大推荐数量
	PreferredDoctors   []uuid.UUID // 优先考虑的医生
	ExcludeDoctors     []uuid.UUID // 排除的医生
	AllowExchange      bool        // 是否允许互换
	MaxPenaltyDelta    float64     // 允许的最大罚分增量
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 5,
		AllowExchange:      true,
		MaxPenaltyDelta:    50,
	}
}

// RecommendSwapTargets 为某个值班推荐接替医生
// 按换班后罚分增量升序排列，增量为负的排前面
func (r *Recommender) RecommendSwapTargets(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
	options *RecommendOptions,
) []Recommendation {
	if options == nil {
		options = DefaultRecommendOptions()
	}

	excludeSet := make(map[uuid.UUID]bool)
	excludeSet[sourceAssignment.DoctorID] = true
	for _, id := range options.ExcludeDoctors {
		excludeSet[id] = true
	}

	preferredSet := make(map[uuid.UUID]bool)
	for _, id := range options.PreferredDoctors {
		preferredSet[id] = true
	}

	var candidates []Recommendation
	for _, doc := range ctx.Doctors {
		if excludeSet[doc.ID] || !doc.IsActive() {
			continue
		}

		evaluation := r.evaluator.EvaluateSwap(ctx, &SwapRequest{
			SourceAssignment: sourceAssignment,
			TargetDoctor:     doc,
		})
		if !evaluation.Feasible || evaluation.PenaltyDelta > options.MaxPenaltyDelta {
			continue
		}

		candidate := Recommendation{
			TargetDoctor:  doc,
			PenaltyDelta:  evaluation.PenaltyDelta,
			SwapType:      "take_over",
			Reason:        r.generateReason(evaluation),
			ImpactSummary: r.generateImpactSummary(evaluation),
		}
		// 优先医生视为小幅罚分折扣
		if preferredSet[doc.ID] {
			candidate.PenaltyDelta -= 10
		}
		candidates = append(candidates, candidate)

		if options.AllowExchange {
			candidates = append(candidates,
				r.findExchangeCandidates(ctx, sourceAssignment, doc, options)...)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PenaltyDelta != candidates[j].PenaltyDelta {
			return candidates[i].PenaltyDelta < candidates[j].PenaltyDelta
		}
		return candidates[i].TargetDoctor.ID.String() < candidates[j].TargetDoctor.ID.String()
	})

	if len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	return candidates
}

// findExchangeCandidates 查找互换候选
func (r *Recommender) findExchangeCandidates(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
	targetDoc *model.Doctor,
	options *RecommendOptions,
) []Recommendation {
	var candidates []Recommendation

	for _, targetAss := range ctx.GetDoctorAssignments(targetDoc.ID) {
		// 同一天互换没有意义
		if targetAss.Date == sourceAssignment.Date || !targetAss.IsOncall() {
			continue
		}

		evaluation := r.evaluator.EvaluateSwap(ctx, &SwapRequest{
			SourceAssignment: sourceAssignment,
			TargetDoctor:     targetDoc,
			TargetAssignment: targetAss,
		})
		if !evaluation.Feasible || evaluation.PenaltyDelta > options.MaxPenaltyDelta {
			continue
		}

		candidates = append(candidates, Recommendation{
			TargetDoctor:  targetDoc,
			Assignment:    targetAss,
			PenaltyDelta:  evaluation.PenaltyDelta,
			SwapType:      "exchange",
			Reason:        "互换值班，双方负荷更平衡",
			ImpactSummary: r.generateImpactSummary(evaluation),
		})
	}

	return candidates
}

// generateReason 生成推荐原因
func (r *Recommender) generateReason(evaluation *SwapEvaluation) string {
	if len(evaluation.NewViolations) == 0 {
		if evaluation.PenaltyDelta < 0 {
			return "无新增违规且整体罚分下降"
		}
		return "无新增违规"
	}
	warningCount := 0
	for _, issue := range evaluation.Issues {
		if issue.Severity == "warning" {
			warningCount++
		}
	}
	if warningCount > 0 && warningCount <= 2 {
		return "仅有少量软规则提醒"
	}
	return "可以接管此值班"
}

// generateImpactSummary 生成影响摘要
func (r *Recommender) generateImpactSummary(evaluation *SwapEvaluation) string {
	if evaluation.Impact == nil || evaluation.Impact.TargetDoctorImpact == nil {
		return "影响较小"
	}
	impact := evaluation.Impact.TargetDoctorImpact
	switch {
	case impact.NewViolations > 0:
		return "目标医生会新增规则违规"
	case impact.WeekendChange > 0:
		return "目标医生周末负荷增加"
	case impact.OncallChange > 0:
		return "目标医生值班次数增加"
	}
	return "对双方负荷影响均衡"
}

// FindBestSwapMatch 为请假医生找到最佳替换
func (r *Recommender) FindBestSwapMatch(
	ctx *constraint.Context,
	doctorID uuid.UUID,
	date string,
) *Recommendation {
	var sourceAssignment *model.Assignment
	for _, a := range ctx.GetDoctorAssignments(doctorID) {
		if a.Date == date && a.IsOncall() {
			sourceAssignment = a
			break
		}
	}
	if sourceAssignment == nil {
		return nil
	}

	recommendations := r.RecommendSwapTargets(ctx, sourceAssignment, &RecommendOptions{
		MaxRecommendations: 1,
		MaxPenaltyDelta:    100,
	})
	if len(recommendations) == 0 {
		return nil
	}
	return &recommendations[0]
}

// AutoAssignSwap 自动选出最佳接替并生成新分配
// 返回nil表示没有满足条件的候选
func (r *Recommender) AutoAssignSwap(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
) (*model.Assignment, error) {
	recommendations := r.RecommendSwapTargets(ctx, sourceAssignment, &RecommendOptions{
		MaxRecommendations: 1,
		MaxPenaltyDelta:    0, // 自动换班不允许增加罚分
	})
	if len(recommendations) == 0 {
		return nil, nil
	}

	best := recommendations[0]
	replacement := model.NewAssignment(best.TargetDoctor.ID, sourceAssignment.Date, sourceAssignment.Post)
	return replacement, nil
}
