// Package builtin 提供内置排班规则实现
package builtin

import (
	"fmt"
	"math"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// StandbyExclusivityConstraint 待命排他规则
// 同一医生在单个排班周期内至多承担一个待命周末
type StandbyExclusivityConstraint struct {
	*BaseConstraint
}

// NewStandbyExclusivityConstraint 创建待命排他规则
func NewStandbyExclusivityConstraint(weight float64) *StandbyExclusivityConstraint {
	return &StandbyExclusivityConstraint{
		BaseConstraint: NewBaseConstraint(
			"待命排他",
			constraint.TypeStandbyExclusivity,
			constraint.CategoryHard,
			weight,
			true,
		),
	}
}

// Evaluate 评估整个排班
func (c *StandbyExclusivityConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, d := range ctx.Doctors {
		count := ctx.StandbyWeekendCount(d.ID)
		if count <= 1 {
			continue
		}
		penalty := c.Weight() * float64(count-1)
		totalPenalty += penalty
		violations = append(violations, c.CreateViolation(d.ID, "", model.StandbyPostName,
			fmt.Sprintf("医生 %s 在周期内被分配了 %d 个待命周末", d.Name, count), penalty))
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *StandbyExclusivityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !model.IsStandbyPost(a.Post) {
		return true, 0
	}

	// 已有待命周末且新分配属于另一个周末时违反
	owning := constraint.OwningSaturday(a.Date)
	for _, existing := range ctx.GetDoctorAssignments(a.DoctorID) {
		if !model.IsStandbyPost(existing.Post) {
			continue
		}
		if constraint.OwningSaturday(existing.Date) != owning {
			return false, c.Weight()
		}
	}
	return true, 0
}

// StandbyCooldownConstraint 待命冷却规则
// 长窗口内承担过待命的医生不得再被分配待命
type StandbyCooldownConstraint struct {
	*BaseConstraint
}

// NewStandbyCooldownConstraint 创建待命冷却规则
func NewStandbyCooldownConstraint(weight float64) *StandbyCooldownConstraint {
	return &StandbyCooldownConstraint{
		BaseConstraint: NewBaseConstraint(
			"待命冷却",
			constraint.TypeStandbyCooldown,
			constraint.CategoryHard,
			weight,
			true,
		),
	}
}

// Evaluate 评估整个排班
func (c *StandbyCooldownConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, a := range ctx.Assignments {
		if !model.IsStandbyPost(a.Post) {
			continue
		}
		d := ctx.GetDoctor(a.DoctorID)
		if d == nil || d.StandbyEligible() {
			continue
		}

		totalPenalty += c.Weight()
		violations = append(violations, c.CreateViolation(a.DoctorID, a.Date, a.Post,
			fmt.Sprintf("医生 %s 近12个月内已承担过待命，不可再分配", d.Name), c.Weight()))
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *StandbyCooldownConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !model.IsStandbyPost(a.Post) {
		return true, 0
	}
	d := ctx.GetDoctor(a.DoctorID)
	if d != nil && !d.StandbyEligible() {
		return false, c.Weight()
	}
	return true, 0
}

// StandbyLoadConstraint 待命负载规则
// 待命分配的代价与医生的优先级分数挂钩，近期承担过待命的医生代价更高
type StandbyLoadConstraint struct {
	*BaseConstraint
}

// NewStandbyLoadConstraint 创建待命负载规则
func NewStandbyLoadConstraint(weight float64) *StandbyLoadConstraint {
	return &StandbyLoadConstraint{
		BaseConstraint: NewBaseConstraint(
			"待命负载",
			constraint.TypeStandbyLoad,
			constraint.CategorySoft,
			weight,
			false,
		),
	}
}

// standbyPenalty 计算单个待命周末的代价
// 值班量加上长窗口待命惩罚，再减去距上次待命的时间加成
func (c *StandbyLoadConstraint) standbyPenalty(d *model.Doctor) float64 {
	if d == nil || d.Workload == nil {
		return 0
	}
	w := d.Workload
	score := float64(w.WeekdayOncall+w.WeekendOncall) +
		100.0*float64(w.StandbyLong) -
		math.Min(float64(w.DaysSinceStandby)/30.0, 50.0)
	return c.Weight() * math.Max(0, score)
}

// Evaluate 评估整个排班
func (c *StandbyLoadConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	totalPenalty := 0.0

	// 每个待命周末只计一次
	counted := make(map[string]bool)
	for _, a := range ctx.Assignments {
		if !model.IsStandbyPost(a.Post) {
			continue
		}
		key := a.DoctorID.String() + "/" + constraint.OwningSaturday(a.Date)
		if counted[key] {
			continue
		}
		counted[key] = true
		totalPenalty += c.standbyPenalty(ctx.GetDoctor(a.DoctorID))
	}

	return true, totalPenalty, nil
}

// EvaluateAssignment 评估单个分配
func (c *StandbyLoadConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !model.IsStandbyPost(a.Post) {
		return true, 0
	}
	return true, c.standbyPenalty(ctx.GetDoctor(a.DoctorID))
}
