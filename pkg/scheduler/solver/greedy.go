// Package solver 提供两阶段排班求解器
package solver

import (
	"sort"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
)

// greedyBuilder 贪心初始解构造器
// 按槽位稀缺程度依次填充，每个槽位选择当前负担最轻的可行医生
type greedyBuilder struct {
	manager *constraint.Manager
}

// orderSlots 排列槽位的填充顺序
// 待命块最稀缺优先处理，其余按日期和岗位名升序保证确定性
func (g *greedyBuilder) orderSlots(slots []*Slot) []*Slot {
	ordered := make([]*Slot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i], ordered[j]
		if si.IsStandbyBlock() != sj.IsStandbyBlock() {
			return si.IsStandbyBlock()
		}
		if si.Dates[0] != sj.Dates[0] {
			return si.Dates[0] < sj.Dates[0]
		}
		return si.Post < sj.Post
	})
	return ordered
}

// candidates 返回槽位的候选医生
// 按（周期内已有值班数，优先级分数，医生ID）升序，优先选负担最轻的
func (g *greedyBuilder) candidates(ctx *constraint.Context, slot *Slot) []*model.Doctor {
	var list []*model.Doctor
	for _, d := range ctx.Doctors {
		if !d.IsActive() {
			continue
		}
		if slot.IsStandbyBlock() && !d.StandbyEligible() {
			continue
		}
		list = append(list, d)
	}

	inPeriod := make(map[uuid.UUID]int)
	for _, d := range list {
		inPeriod[d.ID] = len(ctx.OncallDates(d.ID))
	}

	sort.SliceStable(list, func(i, j int) bool {
		di, dj := list[i], list[j]
		if inPeriod[di.ID] != inPeriod[dj.ID] {
			return inPeriod[di.ID] < inPeriod[dj.ID]
		}
		si, sj := 0.0, 0.0
		if di.Workload != nil {
			si = di.Workload.PriorityScore
		}
		if dj.Workload != nil {
			sj = dj.Workload.PriorityScore
		}
		if si != sj {
			return si < sj
		}
		return di.ID.String() < dj.ID.String()
	})
	return list
}

// Build 构造初始解
// 返回未能填充的槽位（严格阶段意味着不可行，松弛阶段作为松弛量上报）
func (g *greedyBuilder) Build(ctx *constraint.Context, slots []*Slot) (filled int, unfilled []*Slot) {
	for _, slot := range g.orderSlots(slots) {
		assigned := false
		for _, d := range g.candidates(ctx, slot) {
			proposed := make([]*model.Assignment, 0, len(slot.Dates))
			for _, date := range slot.Dates {
				proposed = append(proposed, model.NewAssignment(d.ID, date, slot.Post))
			}

			// 块内每天都要通过硬规则检查，部分通过时回滚
			ok := true
			var added []*model.Assignment
			for _, a := range proposed {
				if canAssign, _ := g.manager.CanAssign(ctx, a); !canAssign {
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
				continue
			}

			assigned = true
			break
		}

		if assigned {
			filled++
		} else {
			unfilled = append(unfilled, slot)
		}
	}
	return filled, unfilled
}
