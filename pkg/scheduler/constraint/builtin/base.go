// Package builtin 提供内置排班规则实现
package builtin

import (
	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// 无特定医生的违反详情使用空ID
var uuidNil = uuid.Nil

// BaseConstraint 规则基类
type BaseConstraint struct {
	name      string
	typ       constraint.Type
	category  constraint.Category
	weight    float64
	relaxable bool
}

// NewBaseConstraint 创建基础规则
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, weight float64, relaxable bool) *BaseConstraint {
	return &BaseConstraint{
		name:      name,
		typ:       typ,
		category:  cat,
		weight:    weight,
		relaxable: relaxable,
	}
}

// Name 返回规则名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回规则类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回规则类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Weight 返回规则权重
func (c *BaseConstraint) Weight() float64 { return c.weight }

// Relaxable 松弛阶段是否可降级为软规则
func (c *BaseConstraint) Relaxable() bool { return c.relaxable }

// Relax 降级为软规则并以bigM作为权重
// 松弛阶段由规则构建器调用
func (c *BaseConstraint) Relax(bigM float64) {
	c.category = constraint.CategorySoft
	c.weight = bigM
}

// CreateViolation 创建违反详情
func (c *BaseConstraint) CreateViolation(docID uuid.UUID, date, post, message string, penalty float64) constraint.ViolationDetail {
	severity := "warning"
	if c.category == constraint.CategoryHard {
		severity = "error"
	}

	return constraint.ViolationDetail{
		ConstraintType: c.typ,
		ConstraintName: c.name,
		DoctorID:       docID,
		Date:           date,
		Post:           post,
		Message:        message,
		Severity:       severity,
		Penalty:        penalty,
	}
}

// Evaluate 默认评估实现（子类需覆盖）
func (c *BaseConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	return true, 0, nil
}

// EvaluateAssignment 默认分配评估实现（子类需覆盖）
func (c *BaseConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, float64) {
	return true, 0
}
