// Package builtin 提供内置排班规则实现
package builtin

import (
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// Phase 求解阶段
type Phase string

const (
	PhaseStrict  Phase = "strict"  // 严格阶段：硬规则必须满足
	PhaseRelaxed Phase = "relaxed" // 松弛阶段：可松弛硬规则降级为bigM软规则
)

// Relaxer 可降级为软规则的规则
type Relaxer interface {
	constraint.Constraint
	Relax(bigM float64)
}

// BuildManager 按阶段构建规则管理器
// 严格阶段注册全部硬规则；松弛阶段将可松弛的硬规则降级为
// 以bigM为权重的软规则，禁止重复排班始终保持硬规则
func BuildManager(phase Phase, w model.SolverWeights) *constraint.Manager {
	w = w.Normalize()
	m := constraint.NewManager()

	hard := []Relaxer{
		NewCoverageConstraint(w.BigM),
		NewAvailabilityConstraint(w.BigM),
		NewDoubleBookingConstraint(w.BigM),
		NewStandbyExclusivityConstraint(w.BigM),
		NewStandbyCooldownConstraint(w.BigM),
	}
	for _, c := range hard {
		if phase == PhaseRelaxed && c.Relaxable() {
			c.Relax(w.BigM)
		}
		m.Register(c)
	}

	m.Register(NewRestAdjacencyConstraint(w.LambdaRest))
	m.Register(NewGapSpacingConstraint(w.LambdaGap))
	m.Register(NewEDPreferenceConstraint(w.LambdaED))
	m.Register(NewStandbyLoadConstraint(w.LambdaStandby))
	m.Register(NewMinOneCoverageConstraint(w.LambdaMinOne))
	m.Register(NewRegistrarWeekendConstraint(w.LambdaRegWeekend))
	m.Register(NewUnitOverCoverageConstraint(w.LambdaUnitOver))
	m.Register(NewJuniorWardConstraint(w.LambdaJuniorWard))
	m.Register(NewClinicProximityConstraint(
		w.ClinicPenaltyBefore, w.ClinicPenaltySame, w.ClinicPenaltyAfter))

	return m
}

// RelaxedTypes 松弛阶段被降级的规则类型
// 用于求解结果中按规则类别上报松弛量
func RelaxedTypes() []constraint.Type {
	return []constraint.Type{
		constraint.TypeCoverage,
		constraint.TypeAvailability,
		constraint.TypeStandbyExclusivity,
		constraint.TypeStandbyCooldown,
	}
}
