// Package builtin 提供内置排班规则实现
package builtin

import (
	"fmt"

	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// AvailabilityConstraint 可用性规则
// 缺失的可用性记录视为不可用（fail-closed）
type AvailabilityConstraint struct {
	*BaseConstraint
}

// NewAvailabilityConstraint 创建可用性规则
func NewAvailabilityConstraint(weight float64) *AvailabilityConstraint {
	return &AvailabilityConstraint{
		BaseConstraint: NewBaseConstraint(
			"医生可用性",
			constraint.TypeAvailability,
			constraint.CategoryHard,
			weight,
			true,
		),
	}
}

// Evaluate 评估整个排班
func (c *AvailabilityConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, a := range ctx.Assignments {
		if !a.IsOncall() {
			continue
		}
		if ctx.Availability.IsAvailable(a.DoctorID, a.Date, a.Post) {
			continue
		}

		totalPenalty += c.Weight()
		name := a.DoctorID.String()
		if d := ctx.GetDoctor(a.DoctorID); d != nil {
			name = d.Name
		}
		violations = append(violations, c.CreateViolation(a.DoctorID, a.Date, a.Post,
			fmt.Sprintf("医生 %s 在 %s 对岗位 %s 不可用", name, a.Date, a.Post), c.Weight()))
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *AvailabilityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !a.IsOncall() {
		return true, 0
	}
	if !ctx.Availability.IsAvailable(a.DoctorID, a.Date, a.Post) {
		return false, c.Weight()
	}
	return true, 0
}

// DoubleBookingConstraint 禁止重复排班规则
// 同一医生同一天至多一个值班分配，任何阶段都不可松弛
type DoubleBookingConstraint struct {
	*BaseConstraint
}

// NewDoubleBookingConstraint 创建禁止重复排班规则
func NewDoubleBookingConstraint(weight float64) *DoubleBookingConstraint {
	return &DoubleBookingConstraint{
		BaseConstraint: NewBaseConstraint(
			"禁止重复排班",
			constraint.TypeDoubleBooking,
			constraint.CategoryHard,
			weight,
			false,
		),
	}
}

// Evaluate 评估整个排班
func (c *DoubleBookingConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0.0

	for _, d := range ctx.Doctors {
		byDate := make(map[string]int)
		for _, a := range ctx.GetDoctorAssignments(d.ID) {
			if a.IsOncall() {
				byDate[a.Date]++
			}
		}
		for date, count := range byDate {
			if count <= 1 {
				continue
			}
			penalty := c.Weight() * float64(count-1)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(d.ID, date, "",
				fmt.Sprintf("医生 %s 在 %s 有 %d 个值班分配", d.Name, date, count), penalty))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *DoubleBookingConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	if !a.IsOncall() {
		return true, 0
	}
	if ctx.HasOncallOn(a.DoctorID, a.Date) {
		return false, c.Weight()
	}
	return true, 0
}
