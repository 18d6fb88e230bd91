// Package solver 提供两阶段排班求解器
package solver

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/logger"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// AnnealConfig 局部搜索配置
type AnnealConfig struct {
	MaxIterations    int           `json:"max_iterations"`    // 最大迭代次数
	MaxTime          time.Duration `json:"max_time"`          // 最大运行时间
	InitialTemp      float64       `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate      float64       `json:"cooling_rate"`      // 冷却速率
	TabuSize         int           `json:"tabu_size"`         // 禁忌表大小
	PlateauThreshold int           `json:"plateau_threshold"` // 平台期阈值（无改进迭代次数）
}

// DefaultAnnealConfig 默认局部搜索配置
func DefaultAnnealConfig() *AnnealConfig {
	return &AnnealConfig{
		MaxIterations:    2000,
		MaxTime:          30 * time.Second,
		InitialTemp:      100.0,
		CoolingRate:      0.99,
		TabuSize:         50,
		PlateauThreshold: 200,
	}
}

// annealer 模拟退火局部搜索
// 在保持硬规则可行的前提下降低软规则总惩罚
type annealer struct {
	cfg     *AnnealConfig
	manager *constraint.Manager
	builder *greedyBuilder
	tabu    *tabuList
	rng     *rand.Rand
	logger  *logger.SolverLogger
}

// newAnnealer 创建局部搜索器
// 种子由调用方派生，保证相同输入产出相同结果
func newAnnealer(manager *constraint.Manager, cfg *AnnealConfig, seed int64) *annealer {
	if cfg == nil {
		cfg = DefaultAnnealConfig()
	}
	return &annealer{
		cfg:     cfg,
		manager: manager,
		builder: &greedyBuilder{manager: manager},
		tabu:    newTabuList(cfg.TabuSize),
		rng:     rand.New(rand.NewSource(seed)),
		logger:  logger.NewSolverLogger(),
	}
}

// Improve 在当前方案上做局部搜索
// 返回最终方案的总惩罚值，搜索结束后上下文持有最优方案
func (o *annealer) Improve(goCtx context.Context, schedCtx *constraint.Context, slots []*Slot, deadline time.Time) float64 {
	current := o.manager.Evaluate(schedCtx).TotalPenalty
	best := current
	bestAssignments := cloneAssignments(schedCtx.Assignments)

	temperature := o.cfg.InitialTemp
	noImprovement := 0

	for i := 0; i < o.cfg.MaxIterations; i++ {
		select {
		case <-goCtx.Done():
			schedCtx.SetAssignments(bestAssignments)
			return best
		default:
		}
		if time.Now().After(deadline) {
			break
		}

		moved, undo := o.randomMove(schedCtx, slots)
		if !moved {
			noImprovement++
			if noImprovement >= o.cfg.PlateauThreshold {
				break
			}
			continue
		}

		candidate := o.manager.Evaluate(schedCtx).TotalPenalty
		moveKey := hashAssignments(schedCtx.Assignments)

		accept := false
		if candidate < current {
			accept = true
		} else if !o.tabu.Contains(moveKey) {
			delta := candidate - current
			if o.rng.Float64() < boltzmannProbability(delta, temperature) {
				accept = true
			}
		}

		if accept {
			current = candidate
			o.tabu.Add(moveKey)
			if current < best {
				best = current
				bestAssignments = cloneAssignments(schedCtx.Assignments)
				noImprovement = 0
			} else {
				noImprovement++
			}
		} else {
			undo()
			noImprovement++
		}

		if noImprovement >= o.cfg.PlateauThreshold {
			break
		}
		temperature *= o.cfg.CoolingRate
	}

	schedCtx.SetAssignments(bestAssignments)
	return best
}

// randomMove 随机生成一个邻域动作
// 约35%为两槽位医生交换，其余为单槽位重指派
// 返回是否移动成功以及回滚函数
func (o *annealer) randomMove(ctx *constraint.Context, slots []*Slot) (bool, func()) {
	if len(slots) == 0 {
		return false, nil
	}
	if o.rng.Float64() < 0.35 {
		return o.swapMove(ctx, slots)
	}
	return o.reassignMove(ctx, slots)
}

// reassignMove 随机选择一个槽位并换一名可行医生
// 待命块整体迁移，保证周六周日同一医生
func (o *annealer) reassignMove(ctx *constraint.Context, slots []*Slot) (bool, func()) {
	slot := slots[o.rng.Intn(len(slots))]

	existing := slotAssignments(ctx, slot)
	if len(existing) == 0 {
		return false, nil
	}
	currentDoc := existing[0].DoctorID

	candidates := o.builder.candidates(ctx, slot)
	if len(candidates) <= 1 {
		return false, nil
	}

	// 随机挑选一个不同的候选医生
	pick := candidates[o.rng.Intn(len(candidates))]
	if pick.ID == currentDoc {
		return false, nil
	}

	removed := cloneAssignments(existing)
	for _, a := range existing {
		ctx.RemoveAssignment(a.ID)
	}

	var added []*model.Assignment
	ok := true
	for _, date := range slot.Dates {
		a := model.NewAssignment(pick.ID, date, slot.Post)
		if canAssign, _ := o.manager.CanAssign(ctx, a); !canAssign {
			ok = false
			break
		}
		ctx.AddAssignment(a)
		added = append(added, a)
	}

	if !ok {
		for _, a := range added {
			ctx.RemoveAssignment(a.ID)
		}
		for _, a := range removed {
			ctx.AddAssignment(a)
		}
		return false, nil
	}

	undo := func() {
		for _, a := range added {
			ctx.RemoveAssignment(a.ID)
		}
		for _, a := range removed {
			ctx.AddAssignment(a)
		}
	}
	return true, undo
}

// swapMove 交换两个槽位的在岗医生
// 单槽位重指派解不开相互阻塞的一对分配，交换可以
func (o *annealer) swapMove(ctx *constraint.Context, slots []*Slot) (bool, func()) {
	if len(slots) < 2 {
		return false, nil
	}
	si := slots[o.rng.Intn(len(slots))]
	sj := slots[o.rng.Intn(len(slots))]
	if si == sj {
		return false, nil
	}

	ai := slotAssignments(ctx, si)
	aj := slotAssignments(ctx, sj)
	if len(ai) == 0 || len(aj) == 0 {
		return false, nil
	}
	di, dj := ai[0].DoctorID, aj[0].DoctorID
	if di == dj {
		return false, nil
	}

	var removed []*model.Assignment
	removed = append(removed, cloneAssignments(ai)...)
	removed = append(removed, cloneAssignments(aj)...)
	for _, a := range ai {
		ctx.RemoveAssignment(a.ID)
	}
	for _, a := range aj {
		ctx.RemoveAssignment(a.ID)
	}

	var added []*model.Assignment
	ok := true
	place := func(slot *Slot, doc uuid.UUID) {
		for _, date := range slot.Dates {
			a := model.NewAssignment(doc, date, slot.Post)
			if canAssign, _ := o.manager.CanAssign(ctx, a); !canAssign {
				ok = false
				return
			}
			ctx.AddAssignment(a)
			added = append(added, a)
		}
	}
	place(si, dj)
	if ok {
		place(sj, di)
	}

	if !ok {
		for _, a := range added {
			ctx.RemoveAssignment(a.ID)
		}
		for _, a := range removed {
			ctx.AddAssignment(a)
		}
		return false, nil
	}

	undo := func() {
		for _, a := range added {
			ctx.RemoveAssignment(a.ID)
		}
		for _, a := range removed {
			ctx.AddAssignment(a)
		}
	}
	return true, undo
}

// Repair 用邻域扰动尝试填满贪心留空的槽位
// 返回仍未填充的槽位，全部填上意味着严格阶段可行
func (o *annealer) Repair(goCtx context.Context, schedCtx *constraint.Context, slots []*Slot, unfilled []*Slot, deadline time.Time) []*Slot {
	remaining := unfilled
	for i := 0; i < o.cfg.MaxIterations && len(remaining) > 0; i++ {
		select {
		case <-goCtx.Done():
			return remaining
		default:
		}
		if time.Now().After(deadline) {
			return remaining
		}

		var still []*Slot
		for _, slot := range remaining {
			if !o.fillSlot(schedCtx, slot) {
				still = append(still, slot)
			}
		}
		remaining = still
		if len(remaining) == 0 {
			break
		}

		// 扰动当前方案，为空槽位腾出医生
		o.randomMove(schedCtx, slots)
	}
	return remaining
}

// fillSlot 为空槽位寻找可行医生
func (o *annealer) fillSlot(ctx *constraint.Context, slot *Slot) bool {
	for _, d := range o.builder.candidates(ctx, slot) {
		ok := true
		var added []*model.Assignment
		for _, date := range slot.Dates {
			a := model.NewAssignment(d.ID, date, slot.Post)
			if canAssign, _ := o.manager.CanAssign(ctx, a); !canAssign {
				ok = false
				break
			}
			ctx.AddAssignment(a)
			added = append(added, a)
		}
		if ok {
			return true
		}
		for _, a := range added {
			ctx.RemoveAssignment(a.ID)
		}
	}
	return false
}

// slotAssignments 返回槽位当前的分配
func slotAssignments(ctx *constraint.Context, slot *Slot) []*model.Assignment {
	var list []*model.Assignment
	for _, date := range slot.Dates {
		if a := ctx.SlotAssignment(date, slot.Post); a != nil {
			list = append(list, a)
		}
	}
	return list
}

// cloneAssignments 深拷贝分配列表
func cloneAssignments(assignments []*model.Assignment) []*model.Assignment {
	clone := make([]*model.Assignment, len(assignments))
	for i, a := range assignments {
		c := *a
		clone[i] = &c
	}
	return clone
}

// hashAssignments 计算方案哈希 (FNV-1a)
// 先按日期和岗位排序，哈希与分配顺序无关
func hashAssignments(assignments []*model.Assignment) uint64 {
	if len(assignments) == 0 {
		return 0
	}
	sorted := cloneAssignments(assignments)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Post < sorted[j].Post
	})

	h := fnv.New64a()
	for _, a := range sorted {
		h.Write(a.DoctorID[:])
		h.Write([]byte(a.Date))
		h.Write([]byte(a.Post))
	}
	return h.Sum64()
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 能量差 (new - old)
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// tabuList 禁忌表（uint64哈希作键）
type tabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
}

// newTabuList 创建禁忌表
func newTabuList(size int) *tabuList {
	return &tabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *tabuList) Add(key uint64) {
	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *tabuList) Contains(key uint64) bool {
	_, exists := t.items[key]
	return exists
}
