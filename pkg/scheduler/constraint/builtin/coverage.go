// Package builtin 提供内置排班规则实现
package builtin

import (
	"fmt"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// CoverageConstraint 岗位覆盖规则
// 周期内每个适用的（日期，岗位）槽位必须恰好分配一名医生
type CoverageConstraint struct {
	*BaseConstraint
}

// NewCoverageConstraint 创建岗位覆盖规则
func NewCoverageConstraint(weight float64) *CoverageConstraint {
	return &CoverageConstraint{
		BaseConstraint: NewBaseConstraint(
			"岗位覆盖",
			constraint.TypeCoverage,
			constraint.CategoryHard,
			weight,
			true,
		),
	}
}

// Evaluate 评估整个排班
func (c *CoverageConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0
	isValid := true

	for _, date := range ctx.Period.Dates() {
		// 每日分配按岗位计数
		filled := make(map[string]int)
		for _, a := range ctx.GetDateAssignments(date) {
			if a.IsOncall() {
				filled[a.Post]++
			}
		}

		for _, p := range ctx.Posts {
			if model.IsClinicPost(p.Name) || !p.AppliesOn(date) {
				continue
			}

			count := filled[p.Name]
			if count == 1 {
				continue
			}

			isValid = false
			totalPenalty += c.Weight()
			msg := fmt.Sprintf("%s 的岗位 %s 未分配", date, p.Name)
			if count > 1 {
				msg = fmt.Sprintf("%s 的岗位 %s 被分配了 %d 次", date, p.Name, count)
			}
			v := c.CreateViolation(uuidNil, date, p.Name, msg, c.Weight())
			violations = append(violations, v)
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
// 槽位已被占用时不可再分配
func (c *CoverageConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !a.IsOncall() {
		return true, 0
	}
	if existing := ctx.SlotAssignment(a.Date, a.Post); existing != nil && existing.ID != a.ID {
		return false, c.Weight()
	}
	return true, 0
}

// MinOneCoverageConstraint 最少参与规则
// 非floater的在职医生在周期内至少应有一次值班
type MinOneCoverageConstraint struct {
	*BaseConstraint
}

// NewMinOneCoverageConstraint 创建最少参与规则
func NewMinOneCoverageConstraint(weight float64) *MinOneCoverageConstraint {
	return &MinOneCoverageConstraint{
		BaseConstraint: NewBaseConstraint(
			"最少参与",
			constraint.TypeMinOneCoverage,
			constraint.CategorySoft,
			weight,
			false,
		),
	}
}

// Evaluate 评估整个排班
func (c *MinOneCoverageConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, d := range ctx.Doctors {
		if !d.IsActive() || d.Category == model.CategoryFloater {
			continue
		}
		if len(ctx.OncallDates(d.ID)) > 0 {
			continue
		}

		totalPenalty += c.Weight()
		violations = append(violations, c.CreateViolation(d.ID, "", "",
			fmt.Sprintf("医生 %s 在周期内没有任何值班", d.Name), c.Weight()))
	}

	return len(violations) == 0, totalPenalty, violations
}

// UnitOverCoverageConstraint 科室超额覆盖规则
// 非门诊日，同一科室单日值班人数不应超过 max(1, ceil(0.25×科室人数))
type UnitOverCoverageConstraint struct {
	*BaseConstraint
}

// NewUnitOverCoverageConstraint 创建科室超额覆盖规则
func NewUnitOverCoverageConstraint(weight float64) *UnitOverCoverageConstraint {
	return &UnitOverCoverageConstraint{
		BaseConstraint: NewBaseConstraint(
			"科室超额覆盖",
			constraint.TypeUnitOverCoverage,
			constraint.CategorySoft,
			weight,
			false,
		),
	}
}

// Evaluate 评估整个排班
func (c *UnitOverCoverageConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, date := range ctx.Period.Dates() {
		for _, u := range ctx.Units {
			if u.IsClinicDate(date) {
				continue
			}
			count := ctx.UnitOncallCount(u.ID, date)
			cap := ctx.UnitOverCoverageCap(u.ID)
			if count <= cap {
				continue
			}

			penalty := c.Weight() * float64(count-cap)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(uuidNil, date, "",
				fmt.Sprintf("科室 %s 在 %s 有 %d 人值班，超过上限 %d", u.Name, date, count, cap),
				penalty))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *UnitOverCoverageConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !a.IsOncall() {
		return true, 0
	}
	d := ctx.GetDoctor(a.DoctorID)
	if d == nil {
		return true, 0
	}
	u := ctx.GetUnit(d.UnitID)
	if u == nil || u.IsClinicDate(a.Date) {
		return true, 0
	}

	// 医生当日已有值班时不会增加科室人数
	if ctx.HasOncallOn(a.DoctorID, a.Date) {
		return true, 0
	}

	if ctx.UnitOncallCount(u.ID, a.Date)+1 > ctx.UnitOverCoverageCap(u.ID) {
		return false, c.Weight()
	}
	return true, 0
}
