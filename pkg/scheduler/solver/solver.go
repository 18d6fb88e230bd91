// Package solver 提供两阶段排班求解器
package solver

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/medschedulr/medschedulr/pkg/errors"
	"github.com/medschedulr/medschedulr/pkg/logger"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint/builtin"
)

// 求解状态
const (
	StatusOptimal    = "optimal"
	StatusTimedOut   = "timed_out_non_optimal"
	StatusInfeasible = "infeasible"
)

// Relaxation 松弛阶段的单类规则松弛量
type Relaxation struct {
	Type    constraint.Type `json:"type"`
	Name    string          `json:"name"`
	Count   int             `json:"count"`
	Details []string        `json:"details,omitempty"`
}

// Result 求解结果
type Result struct {
	Assignments      []*model.Assignment `json:"assignments"`
	Statistics       *Statistics         `json:"statistics"`
	Phase            builtin.Phase       `json:"phase"`
	Relaxations      []Relaxation        `json:"relaxations,omitempty"`
	ConstraintResult *constraint.Result  `json:"constraint_result"`
	Duration         time.Duration       `json:"duration"`
	Success          bool                `json:"success"`
	Message          string              `json:"message,omitempty"`
}

// TwoPhaseSolver 两阶段求解器
// 第一阶段在全部硬规则下求解；被证明不可行时进入松弛阶段，
// 可松弛硬规则降级为bigM软约束，总能返回可用方案
type TwoPhaseSolver struct {
	annealCfg *AnnealConfig
	logger    *logger.SolverLogger
}

// NewTwoPhaseSolver 创建两阶段求解器
func NewTwoPhaseSolver() *TwoPhaseSolver {
	return &TwoPhaseSolver{
		annealCfg: DefaultAnnealConfig(),
		logger:    logger.NewSolverLogger(),
	}
}

// SetAnnealConfig 覆盖局部搜索配置
func (s *TwoPhaseSolver) SetAnnealConfig(cfg *AnnealConfig) {
	if cfg != nil {
		s.annealCfg = cfg
	}
}

// Name 返回求解器名称
func (s *TwoPhaseSolver) Name() string {
	return "TwoPhaseSolver"
}

// Solve 生成排班方案
// 在配置的时间预算内必定返回：成功方案、降级方案或显式失败
func (s *TwoPhaseSolver) Solve(goCtx context.Context, p *Problem) (*Result, error) {
	start := time.Now()

	if err := p.Validate(); err != nil {
		return nil, err
	}
	weights := p.Weights.Normalize()

	budget := time.Duration(weights.TimeBudgetSeconds) * time.Second
	deadline := start.Add(budget)
	if d, ok := goCtx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	slots := ExpandSlots(p.Period, p.Posts)
	s.logger.StartSolve(p.PeriodID.String(), len(p.Doctors), len(slots))

	seed := deriveSeed(p)

	// 第一阶段：严格求解
	phase1Start := time.Now()
	strictCtx := s.buildContext(p, weights)
	strictManager := builtin.BuildManager(builtin.PhaseStrict, weights)
	builder := &greedyBuilder{manager: strictManager}
	_, unfilled := builder.Build(strictCtx, slots)

	strictAnnealer := newAnnealer(strictManager, s.annealCfg, seed)
	if len(unfilled) > 0 {
		// 贪心不回溯，留空的槽位先用邻域扰动尝试修复
		unfilled = strictAnnealer.Repair(goCtx, strictCtx, slots, unfilled, deadline)
	}
	if len(unfilled) == 0 {
		penalty := strictAnnealer.Improve(goCtx, strictCtx, slots, deadline)
		// 严格阶段只有在全部硬规则满足时才算成功
		if strictManager.Evaluate(strictCtx).IsValid {
			s.logger.PhaseResult(string(builtin.PhaseStrict), true, penalty, time.Since(phase1Start))
			return s.finish(p, strictCtx, strictManager, builtin.PhaseStrict, nil, penalty, start, deadline)
		}
	}
	s.logger.PhaseResult(string(builtin.PhaseStrict), false, 0, time.Since(phase1Start))

	// 第二阶段：松弛求解
	phase2Start := time.Now()
	relaxedCtx := s.buildContext(p, weights)
	relaxedManager := builtin.BuildManager(builtin.PhaseRelaxed, weights)
	builder = &greedyBuilder{manager: relaxedManager}
	builder.Build(relaxedCtx, slots)

	penalty := newAnnealer(relaxedManager, s.annealCfg, seed).
		Improve(goCtx, relaxedCtx, slots, deadline)
	s.logger.PhaseResult(string(builtin.PhaseRelaxed), true, penalty, time.Since(phase2Start))

	relaxations := collectRelaxations(relaxedManager, relaxedCtx)
	return s.finish(p, relaxedCtx, relaxedManager, builtin.PhaseRelaxed, relaxations, penalty, start, deadline)
}

// buildContext 从问题构建规则上下文
func (s *TwoPhaseSolver) buildContext(p *Problem, weights model.SolverWeights) *constraint.Context {
	ctx := constraint.NewContext(p.PeriodID, p.Period)
	ctx.SetDoctors(p.Doctors)
	ctx.SetUnits(p.Units)
	ctx.SetPosts(p.Posts)
	ctx.Availability = model.BuildAvailabilityIndex(p.Availability)
	ctx.Weights = weights
	return ctx
}

// finish 汇总求解结果
func (s *TwoPhaseSolver) finish(p *Problem, schedCtx *constraint.Context, manager *constraint.Manager,
	phase builtin.Phase, relaxations []Relaxation, penalty float64,
	start time.Time, deadline time.Time) (*Result, error) {

	// 任一阶段都不允许带着硬规则违规上报成功：
	// 严格阶段意味着全部硬规则满足，松弛阶段意味着禁止重复排班满足
	constraintResult := manager.Evaluate(schedCtx)
	if !constraintResult.IsValid {
		s.logger.SolveComplete(p.PeriodID.String(), StatusInfeasible, time.Since(start), penalty)
		if phase == builtin.PhaseStrict {
			return nil, errors.NoFeasibleSolution("严格阶段存在未满足的硬规则")
		}
		return nil, errors.NoFeasibleSolution("松弛阶段仍存在不可满足的硬规则")
	}

	status := StatusOptimal
	if time.Now().After(deadline) {
		status = StatusTimedOut
	}

	// 门诊行由科室门诊日确定性生成，附加在值班结果之后
	assignments := cloneAssignments(schedCtx.Assignments)
	assignments = append(assignments, ExpandClinicAssignments(p.Period, p.Doctors, p.Units)...)

	result := &Result{
		Assignments:      assignments,
		Statistics:       BuildStatistics(assignments, status, penalty),
		Phase:            phase,
		Relaxations:      relaxations,
		ConstraintResult: constraintResult,
		Duration:         time.Since(start),
		Success:          true,
	}

	if phase == builtin.PhaseRelaxed {
		total := 0
		for _, r := range relaxations {
			total += r.Count
		}
		result.Message = fmt.Sprintf("排班已生成，松弛了 %d 处硬规则", total)
	} else {
		result.Message = "排班已生成，全部硬规则满足"
	}

	s.logger.SolveComplete(p.PeriodID.String(), status, result.Duration, penalty)
	return result, nil
}

// collectRelaxations 统计松弛阶段每类被降级规则的松弛量
func collectRelaxations(manager *constraint.Manager, schedCtx *constraint.Context) []Relaxation {
	var relaxations []Relaxation
	for _, t := range builtin.RelaxedTypes() {
		c := manager.GetConstraint(t)
		if c == nil {
			continue
		}
		_, _, details := c.Evaluate(schedCtx)
		if len(details) == 0 {
			continue
		}

		r := Relaxation{Type: t, Name: c.Name(), Count: len(details)}
		for _, d := range details {
			r.Details = append(r.Details, d.Message)
		}
		relaxations = append(relaxations, r)
	}
	return relaxations
}

// deriveSeed 从问题输入派生确定性随机种子
// 相同输入产生相同种子，保证求解结果可复现
func deriveSeed(p *Problem) int64 {
	h := fnv.New64a()
	h.Write(p.PeriodID[:])
	h.Write([]byte(p.Period.StartDate))
	h.Write([]byte(p.Period.EndDate))
	for _, d := range p.Doctors {
		h.Write(d.ID[:])
	}
	return int64(h.Sum64())
}
