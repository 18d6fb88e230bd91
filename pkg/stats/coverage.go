// Package stats 提供排班统计与公平性分析功能
package stats

import (
	"sort"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// SlotKey 排班槽位（日期+岗位）
type SlotKey struct {
	Date string `json:"date"`
	Post string `json:"post"`
}

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalSlots      int     `json:"total_slots"`      // 总槽位数
	AssignedSlots   int     `json:"assigned_slots"`   // 已分配槽位数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage map[string]DayCoverage `json:"daily_coverage"` // 每日覆盖情况
	PostCoverage  map[string]float64     `json:"post_coverage"`  // 按岗位覆盖率

	UncoveredSlots []SlotKey `json:"uncovered_slots"` // 未覆盖槽位
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalSlots   int     `json:"total_slots"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// RequiredSlots 展开排班周期内所有需覆盖的槽位
// 按岗位的平日/周末适用性过滤，门诊岗位不参与覆盖统计
func (c *CoverageAnalyzer) RequiredSlots(period model.DateRange, posts []*model.Post) []SlotKey {
	var slots []SlotKey
	for _, date := range period.Dates() {
		for _, p := range posts {
			if model.IsClinicPost(p.Name) {
				continue
			}
			if p.AppliesOn(date) {
				slots = append(slots, SlotKey{Date: date, Post: p.Name})
			}
		}
	}
	return slots
}

// Analyze 分析排班对槽位集合的覆盖情况
func (c *CoverageAnalyzer) Analyze(slots []SlotKey, assignments []*model.Assignment) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage: make(map[string]DayCoverage),
		PostCoverage:  make(map[string]float64),
	}
	if len(slots) == 0 {
		metrics.OverallCoverage = 100
		return metrics
	}

	assigned := make(map[SlotKey]bool)
	for _, a := range assignments {
		assigned[SlotKey{Date: a.Date, Post: a.Post}] = true
	}

	dailyStats := make(map[string]*DayCoverage)
	postTotals := make(map[string]int)
	postAssigned := make(map[string]int)

	for _, slot := range slots {
		metrics.TotalSlots++
		isAssigned := assigned[slot]
		if isAssigned {
			metrics.AssignedSlots++
		} else {
			metrics.UncoveredSlots = append(metrics.UncoveredSlots, slot)
		}

		day, exists := dailyStats[slot.Date]
		if !exists {
			day = &DayCoverage{Date: slot.Date}
			dailyStats[slot.Date] = day
		}
		day.TotalSlots++
		if isAssigned {
			day.Assigned++
		}

		postTotals[slot.Post]++
		if isAssigned {
			postAssigned[slot.Post]++
		}
	}

	metrics.OverallCoverage = float64(metrics.AssignedSlots) / float64(metrics.TotalSlots) * 100

	for date, day := range dailyStats {
		if day.TotalSlots > 0 {
			day.CoverageRate = float64(day.Assigned) / float64(day.TotalSlots) * 100
		}
		metrics.DailyCoverage[date] = *day
	}

	for post, total := range postTotals {
		if total > 0 {
			metrics.PostCoverage[post] = float64(postAssigned[post]) / float64(total) * 100
		}
	}

	// 未覆盖槽位按日期、岗位排序，保证输出稳定
	sort.Slice(metrics.UncoveredSlots, func(i, j int) bool {
		if metrics.UncoveredSlots[i].Date != metrics.UncoveredSlots[j].Date {
			return metrics.UncoveredSlots[i].Date < metrics.UncoveredSlots[j].Date
		}
		return metrics.UncoveredSlots[i].Post < metrics.UncoveredSlots[j].Post
	})

	return metrics
}
