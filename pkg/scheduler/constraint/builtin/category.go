// Package builtin 提供内置排班规则实现
package builtin

import (
	"fmt"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// RegistrarWeekendConstraint registrar周末规则
// registrar在周六或周日值班计入惩罚
type RegistrarWeekendConstraint struct {
	*BaseConstraint
}

// NewRegistrarWeekendConstraint 创建registrar周末规则
func NewRegistrarWeekendConstraint(weight float64) *RegistrarWeekendConstraint {
	return &RegistrarWeekendConstraint{
		BaseConstraint: NewBaseConstraint(
			"registrar周末值班",
			constraint.TypeRegistrarWeekend,
			constraint.CategorySoft,
			weight,
			false,
		),
	}
}

func (c *RegistrarWeekendConstraint) applies(ctx *constraint.Context, a *model.Assignment) bool {
	if !a.IsOncall() || !model.IsWeekendDate(a.Date) {
		return false
	}
	d := ctx.GetDoctor(a.DoctorID)
	return d != nil && d.Category == model.CategoryRegistrar
}

// Evaluate 评估整个排班
func (c *RegistrarWeekendConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, a := range ctx.Assignments {
		if !c.applies(ctx, a) {
			continue
		}
		totalPenalty += c.Weight()
		d := ctx.GetDoctor(a.DoctorID)
		violations = append(violations, c.CreateViolation(a.DoctorID, a.Date, a.Post,
			fmt.Sprintf("registrar %s 在周末 %s 值班", d.Name, a.Date), c.Weight()))
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *RegistrarWeekendConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if c.applies(ctx, a) {
		return true, c.Weight()
	}
	return true, 0
}

// JuniorWardConstraint junior病房规则
// junior被分配到Ward岗位计入惩罚
type JuniorWardConstraint struct {
	*BaseConstraint
}

// NewJuniorWardConstraint 创建junior病房规则
func NewJuniorWardConstraint(weight float64) *JuniorWardConstraint {
	return &JuniorWardConstraint{
		BaseConstraint: NewBaseConstraint(
			"junior病房值班",
			constraint.TypeJuniorWard,
			constraint.CategorySoft,
			weight,
			false,
		),
	}
}

func (c *JuniorWardConstraint) applies(ctx *constraint.Context, a *model.Assignment) bool {
	if !model.IsWardPost(a.Post) {
		return false
	}
	d := ctx.GetDoctor(a.DoctorID)
	return d != nil && d.Category == model.CategoryJunior
}

// Evaluate 评估整个排班
func (c *JuniorWardConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, a := range ctx.Assignments {
		if !c.applies(ctx, a) {
			continue
		}
		totalPenalty += c.Weight()
		d := ctx.GetDoctor(a.DoctorID)
		violations = append(violations, c.CreateViolation(a.DoctorID, a.Date, a.Post,
			fmt.Sprintf("junior %s 在 %s 被分配到病房岗位 %s", d.Name, a.Date, a.Post), c.Weight()))
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *JuniorWardConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if c.applies(ctx, a) {
		return true, c.Weight()
	}
	return true, 0
}

// EDPreferenceConstraint ED偏好规则
// senior或registrar被分配到ED岗位计入惩罚
type EDPreferenceConstraint struct {
	*BaseConstraint
}

// NewEDPreferenceConstraint 创建ED偏好规则
func NewEDPreferenceConstraint(weight float64) *EDPreferenceConstraint {
	return &EDPreferenceConstraint{
		BaseConstraint: NewBaseConstraint(
			"ED偏好",
			constraint.TypeEDPreference,
			constraint.CategorySoft,
			weight,
			false,
		),
	}
}

func (c *EDPreferenceConstraint) applies(ctx *constraint.Context, a *model.Assignment) bool {
	if !model.IsEDPost(a.Post) {
		return false
	}
	d := ctx.GetDoctor(a.DoctorID)
	return d != nil && (d.Category == model.CategorySenior || d.Category == model.CategoryRegistrar)
}

// Evaluate 评估整个排班
func (c *EDPreferenceConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, a := range ctx.Assignments {
		if !c.applies(ctx, a) {
			continue
		}
		totalPenalty += c.Weight()
		d := ctx.GetDoctor(a.DoctorID)
		violations = append(violations, c.CreateViolation(a.DoctorID, a.Date, a.Post,
			fmt.Sprintf("%s %s 在 %s 被分配到ED岗位 %s", d.Category, d.Name, a.Date, a.Post), c.Weight()))
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *EDPreferenceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if c.applies(ctx, a) {
		return true, c.Weight()
	}
	return true, 0
}
