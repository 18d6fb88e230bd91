// Package swap 提供人工改班的评估与推荐
// 排班发布后的人工调整不重新求解，而是对单次改动做规则校验和罚分对比
package swap

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
	"github.com/medschedulr/medschedulr/pkg/validator"
)

// SwapEvaluator 换班评估器
type SwapEvaluator struct {
	constraintManager *constraint.Manager
	verifier          *validator.Verifier
}

// NewSwapEvaluator 创建换班评估器
func NewSwapEvaluator(cm *constraint.Manager) *SwapEvaluator {
	return &SwapEvaluator{
		constraintManager: cm,
		verifier:          validator.NewVerifier(),
	}
}

// SwapRequest 换班请求
// TargetAssignment 非空表示两个值班互换，否则为接管
type SwapRequest struct {
	SourceAssignment *model.Assignment `json:"source_assignment"`
	TargetDoctor     *model.Doctor     `json:"target_doctor"`
	TargetAssignment *model.Assignment `json:"target_assignment,omitempty"`
}

// SwapEvaluation 换班评估结果
type SwapEvaluation struct {
	Feasible       bool                  `json:"feasible"`
	PenaltyDelta   float64               `json:"penalty_delta"` // 换班后总罚分变化，负数表示改善
	Issues         []SwapIssue           `json:"issues"`
	NewViolations  []validator.Violation `json:"new_violations"` // 换班引入的规则违规
	Impact         *SwapImpact           `json:"impact"`
	Recommendation string                `json:"recommendation"`
}

// SwapIssue 换班问题
type SwapIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // error/warning/info
	Message  string `json:"message"`
}

// SwapImpact 换班影响
type SwapImpact struct {
	SourceDoctorImpact *DoctorImpact `json:"source_doctor_impact"`
	TargetDoctorImpact *DoctorImpact `json:"target_doctor_impact"`
}

// DoctorImpact 医生影响
type DoctorImpact struct {
	OncallChange  int `json:"oncall_change"`  // 值班次数变化
	WeekendChange int `json:"weekend_change"` // 周末值班次数变化
	NewViolations int `json:"new_violations"` // 该医生新增的违规数
}

// EvaluateSwap 评估换班可行性
// 模拟换班后的完整排班，对比换班前后的违规集合和软约束罚分
func (e *SwapEvaluator) EvaluateSwap(
	ctx *constraint.Context,
	request *SwapRequest,
) *SwapEvaluation {
	result := &SwapEvaluation{
		Feasible: true,
		Issues:   make([]SwapIssue, 0),
		Impact: &SwapImpact{
			SourceDoctorImpact: &DoctorImpact{},
			TargetDoctorImpact: &DoctorImpact{},
		},
	}

	source := request.SourceAssignment
	target := request.TargetDoctor

	if source == nil || target == nil {
		result.Feasible = false
		result.Issues = append(result.Issues, SwapIssue{
			Type:     "invalid_request",
			Severity: "error",
			Message:  "无效的换班请求",
		})
		return result
	}

	if !target.IsActive() {
		result.Feasible = false
		result.Issues = append(result.Issues, SwapIssue{
			Type:     "doctor_inactive",
			Severity: "error",
			Message:  "目标医生不在职",
		})
		return result
	}

	// standby岗位要求目标医生具备standby资格
	if model.IsStandbyPost(source.Post) && !target.StandbyEligible() {
		result.Feasible = false
		result.Issues = append(result.Issues, SwapIssue{
			Type:     "standby_ineligible",
			Severity: "error",
			Message:  fmt.Sprintf("医生 %s 在冷却期内，不可接管standby", target.Name),
		})
		return result
	}

	// 模拟换班后的排班并做规则校验
	simulated := e.simulateSwap(ctx, request)
	before := e.verify(ctx, ctx.Assignments)
	after := e.verify(ctx, simulated)
	result.NewViolations = diffViolations(before, after)

	for _, v := range result.NewViolations {
		severity := "warning"
		if v.Severity == validator.SeverityHigh {
			severity = "error"
			result.Feasible = false
		}
		result.Issues = append(result.Issues, SwapIssue{
			Type:     string(v.Type),
			Severity: severity,
			Message:  v.Message,
		})
	}

	// 约束管理器的罚分对比
	if e.constraintManager != nil {
		simCtx := e.createSimulatedContext(ctx, request)
		beforeResult := e.constraintManager.Evaluate(ctx)
		afterResult := e.constraintManager.Evaluate(simCtx)
		result.PenaltyDelta = afterResult.TotalPenalty - beforeResult.TotalPenalty

		if !afterResult.IsValid {
			for _, v := range afterResult.HardViolations {
				if v.DoctorID == target.ID {
					result.Feasible = false
					result.Issues = append(result.Issues, SwapIssue{
						Type:     string(v.ConstraintType),
						Severity: "error",
						Message:  v.Message,
					})
				}
			}
		}
	}

	e.calculateImpact(ctx, request, result)
	result.Recommendation = e.generateRecommendation(result)

	return result
}

// simulateSwap 模拟换班后的排班
func (e *SwapEvaluator) simulateSwap(ctx *constraint.Context, request *SwapRequest) []*model.Assignment {
	simulated := make([]*model.Assignment, 0, len(ctx.Assignments))

	for _, a := range ctx.Assignments {
		switch {
		case a.ID == request.SourceAssignment.ID:
			// 源值班交给目标医生
			moved := *a
			moved.DoctorID = request.TargetDoctor.ID
			simulated = append(simulated, &moved)
		case request.TargetAssignment != nil && a.ID == request.TargetAssignment.ID:
			// 互换场景：目标值班交给源医生
			moved := *a
			moved.DoctorID = request.SourceAssignment.DoctorID
			simulated = append(simulated, &moved)
		default:
			simulated = append(simulated, a)
		}
	}

	return simulated
}

// createSimulatedContext 创建模拟上下文
func (e *SwapEvaluator) createSimulatedContext(ctx *constraint.Context, request *SwapRequest) *constraint.Context {
	simCtx := constraint.NewContext(ctx.PeriodID, ctx.Period)
	simCtx.SetDoctors(ctx.Doctors)
	simCtx.SetUnits(ctx.Units)
	simCtx.SetPosts(ctx.Posts)
	simCtx.Availability = ctx.Availability
	simCtx.Weights = ctx.Weights
	simCtx.SetAssignments(e.simulateSwap(ctx, request))
	return simCtx
}

// verify 对一组分配做规则校验
func (e *SwapEvaluator) verify(ctx *constraint.Context, assignments []*model.Assignment) []validator.Violation {
	return e.verifier.Verify(&validator.Input{
		Period:       ctx.Period,
		Doctors:      ctx.Doctors,
		Units:        ctx.Units,
		Posts:        ctx.Posts,
		Availability: ctx.Availability,
		Assignments:  assignments,
	})
}

// calculateImpact 计算换班影响
func (e *SwapEvaluator) calculateImpact(ctx *constraint.Context, request *SwapRequest, result *SwapEvaluation) {
	source := request.SourceAssignment
	target := request.TargetDoctor

	result.Impact.SourceDoctorImpact.OncallChange = -1
	result.Impact.TargetDoctorImpact.OncallChange = 1
	if model.IsWeekendDate(source.Date) {
		result.Impact.SourceDoctorImpact.WeekendChange = -1
		result.Impact.TargetDoctorImpact.WeekendChange = 1
	}
	if request.TargetAssignment != nil {
		result.Impact.SourceDoctorImpact.OncallChange++
		result.Impact.TargetDoctorImpact.OncallChange--
		if model.IsWeekendDate(request.TargetAssignment.Date) {
			result.Impact.SourceDoctorImpact.WeekendChange++
			result.Impact.TargetDoctorImpact.WeekendChange--
		}
	}

	for _, v := range result.NewViolations {
		if v.DoctorID == target.ID {
			result.Impact.TargetDoctorImpact.NewViolations++
		}
		if v.DoctorID == source.DoctorID {
			result.Impact.SourceDoctorImpact.NewViolations++
		}
	}
}

// generateRecommendation 生成换班建议
func (e *SwapEvaluator) generateRecommendation(result *SwapEvaluation) string {
	if !result.Feasible {
		return "不建议进行此换班，存在硬规则冲突"
	}

	switch {
	case result.PenaltyDelta < 0:
		return "推荐，换班后整体排班质量提升"
	case result.PenaltyDelta == 0 && len(result.NewViolations) == 0:
		return "可以进行，对整体排班无影响"
	case len(result.NewViolations) <= 2:
		return "可以进行，但会引入少量软规则提醒"
	default:
		return "谨慎进行，会降低整体排班质量"
	}
}

// CanSwap 快速检查是否可换班
func (e *SwapEvaluator) CanSwap(ctx *constraint.Context, request *SwapRequest) (bool, string) {
	result := e.EvaluateSwap(ctx, request)
	if !result.Feasible {
		if len(result.Issues) > 0 {
			return false, result.Issues[0].Message
		}
		return false, "无法进行换班"
	}
	return true, ""
}

// diffViolations 找出换班后新增的违规
// 按类型+日期+医生匹配，忽略换班前就存在的违规
func diffViolations(before, after []validator.Violation) []validator.Violation {
	type key struct {
		typ    validator.ViolationType
		date   string
		doctor uuid.UUID
	}
	existing := make(map[key]int)
	for _, v := range before {
		existing[key{v.Type, v.Date, v.DoctorID}]++
	}

	var added []validator.Violation
	for _, v := range after {
		k := key{v.Type, v.Date, v.DoctorID}
		if existing[k] > 0 {
			existing[k]--
			continue
		}
		added = append(added, v)
	}
	return added
}
