// Package builtin 提供内置排班规则实现
package builtin

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// RestAdjacencyConstraint 休息规则
// 同一医生连续两天值班计入惩罚，周六+周日的待命对除外
type RestAdjacencyConstraint struct {
	*BaseConstraint
}

// NewRestAdjacencyConstraint 创建休息规则
func NewRestAdjacencyConstraint(weight float64) *RestAdjacencyConstraint {
	return &RestAdjacencyConstraint{
		BaseConstraint: NewBaseConstraint(
			"相邻值班休息",
			constraint.TypeRest,
			constraint.CategorySoft,
			weight,
			false,
		),
	}
}

// IsSanctionedStandbyPair 判断相邻值班对是否为获准的周六→周日待命块
func IsSanctionedStandbyPair(a, b *model.Assignment) bool {
	return model.IsStandbyPost(a.Post) && model.IsStandbyPost(b.Post) &&
		model.IsSaturday(a.Date) && model.IsSunday(b.Date)
}

// sortedOncalls 按日期升序返回医生的值班分配
func sortedOncalls(ctx *constraint.Context, docID uuid.UUID) []*model.Assignment {
	var oncalls []*model.Assignment
	for _, a := range ctx.GetDoctorAssignments(docID) {
		if a.IsOncall() {
			oncalls = append(oncalls, a)
		}
	}
	sort.Slice(oncalls, func(i, j int) bool {
		return oncalls[i].Date < oncalls[j].Date
	})
	return oncalls
}

// Evaluate 评估整个排班
func (c *RestAdjacencyConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, d := range ctx.Doctors {
		oncalls := sortedOncalls(ctx, d.ID)
		for i := 0; i < len(oncalls)-1; i++ {
			if model.DaysBetween(oncalls[i].Date, oncalls[i+1].Date) != 1 {
				continue
			}
			if IsSanctionedStandbyPair(oncalls[i], oncalls[i+1]) {
				continue
			}

			totalPenalty += c.Weight()
			violations = append(violations, c.CreateViolation(d.ID, oncalls[i+1].Date, oncalls[i+1].Post,
				fmt.Sprintf("医生 %s 在 %s 和 %s 连续两天值班",
					d.Name, oncalls[i].Date, oncalls[i+1].Date), c.Weight()))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *RestAdjacencyConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !a.IsOncall() {
		return true, 0
	}

	penalty := 0.0
	for _, existing := range ctx.GetDoctorAssignments(a.DoctorID) {
		if !existing.IsOncall() {
			continue
		}
		gap := model.DaysBetween(existing.Date, a.Date)
		if gap == 1 && !IsSanctionedStandbyPair(existing, a) {
			penalty += c.Weight()
		}
		if gap == -1 && !IsSanctionedStandbyPair(a, existing) {
			penalty += c.Weight()
		}
	}
	return true, penalty
}

// GapSpacingConstraint 值班间隔规则
// 鼓励同一医生的两次值班间隔至少3天
type GapSpacingConstraint struct {
	*BaseConstraint
}

// NewGapSpacingConstraint 创建值班间隔规则
func NewGapSpacingConstraint(weight float64) *GapSpacingConstraint {
	return &GapSpacingConstraint{
		BaseConstraint: NewBaseConstraint(
			"值班间隔",
			constraint.TypeGapSpacing,
			constraint.CategorySoft,
			weight,
			false,
		),
	}
}

// Evaluate 评估整个排班
func (c *GapSpacingConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, d := range ctx.Doctors {
		oncalls := sortedOncalls(ctx, d.ID)
		for i := 0; i < len(oncalls)-1; i++ {
			gap := model.DaysBetween(oncalls[i].Date, oncalls[i+1].Date)
			// 相邻（间隔1天）已由休息规则计入
			if gap != 2 {
				continue
			}

			totalPenalty += c.Weight()
			violations = append(violations, c.CreateViolation(d.ID, oncalls[i+1].Date, oncalls[i+1].Post,
				fmt.Sprintf("医生 %s 的值班 %s 与 %s 间隔不足3天",
					d.Name, oncalls[i].Date, oncalls[i+1].Date), c.Weight()))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *GapSpacingConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !a.IsOncall() {
		return true, 0
	}

	penalty := 0.0
	for _, existing := range ctx.GetDoctorAssignments(a.DoctorID) {
		if !existing.IsOncall() {
			continue
		}
		gap := model.DaysBetween(existing.Date, a.Date)
		if gap == 2 || gap == -2 {
			penalty += c.Weight()
		}
	}
	return true, penalty
}
