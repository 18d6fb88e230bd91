// Package builtin 提供内置排班规则实现
package builtin

import (
	"fmt"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// ClinicProximityConstraint 门诊邻近规则
// 值班落在医生所属科室门诊日的当天、前一天或后一天分别计入不同惩罚
type ClinicProximityConstraint struct {
	*BaseConstraint
	beforeWeight float64
	sameWeight   float64
	afterWeight  float64
}

// NewClinicProximityConstraint 创建门诊邻近规则
// 权重取三个惩罚中的最大值，用于管理器排序
func NewClinicProximityConstraint(before, same, after float64) *ClinicProximityConstraint {
	maxW := before
	if same > maxW {
		maxW = same
	}
	if after > maxW {
		maxW = after
	}
	return &ClinicProximityConstraint{
		BaseConstraint: NewBaseConstraint(
			"门诊邻近",
			constraint.TypeClinicProximity,
			constraint.CategorySoft,
			maxW,
			false,
		),
		beforeWeight: before,
		sameWeight:   same,
		afterWeight:  after,
	}
}

// assignmentPenalty 计算单个值班分配的门诊邻近代价
func (c *ClinicProximityConstraint) assignmentPenalty(ctx *constraint.Context, a *model.Assignment) (float64, string) {
	d := ctx.GetDoctor(a.DoctorID)
	if d == nil {
		return 0, ""
	}
	u := ctx.GetUnit(d.UnitID)
	if u == nil || len(u.ClinicWeekdays) == 0 {
		return 0, ""
	}

	// 当天门诊优先级最高，其次前一天，最后后一天
	if u.IsClinicDate(a.Date) {
		return c.sameWeight, "门诊当天"
	}
	if u.IsClinicDate(model.NextDate(a.Date)) {
		return c.beforeWeight, "门诊前一天"
	}
	if u.IsClinicDate(model.PrevDate(a.Date)) {
		return c.afterWeight, "门诊后一天"
	}
	return 0, ""
}

// Evaluate 评估整个排班
func (c *ClinicProximityConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, a := range ctx.Assignments {
		if !a.IsOncall() {
			continue
		}
		penalty, kind := c.assignmentPenalty(ctx, a)
		if penalty == 0 {
			continue
		}

		totalPenalty += penalty
		name := a.DoctorID.String()
		if d := ctx.GetDoctor(a.DoctorID); d != nil {
			name = d.Name
		}
		violations = append(violations, c.CreateViolation(a.DoctorID, a.Date, a.Post,
			fmt.Sprintf("医生 %s 在 %s 的值班落在%s", name, a.Date, kind), penalty))
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *ClinicProximityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !a.IsOncall() {
		return true, 0
	}
	penalty, _ := c.assignmentPenalty(ctx, a)
	return true, penalty
}
