// Package stats 提供排班统计与公平性分析功能
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// ScorerOptions 工作量评分器配置
type ScorerOptions struct {
	ShortWindowMonths int       `json:"short_window_months"` // 短窗口（月），用于值班/ED计数
	LongWindowMonths  int       `json:"long_window_months"`  // 长窗口（月），用于待命计数
	ReferenceDate     time.Time `json:"reference_date"`      // 参考日期
}

// DefaultScorerOptions 返回默认配置
func DefaultScorerOptions() ScorerOptions {
	return ScorerOptions{
		ShortWindowMonths: 3,
		LongWindowMonths:  12,
		ReferenceDate:     time.Now(),
	}
}

// WorkloadScorer 工作量评分器
// 根据历史排班记录为每位医生计算滚动工作量计数和待命优先级分数
type WorkloadScorer struct {
	opts ScorerOptions
}

// NewWorkloadScorer 创建工作量评分器
func NewWorkloadScorer(opts ScorerOptions) *WorkloadScorer {
	if opts.ShortWindowMonths <= 0 {
		opts.ShortWindowMonths = 3
	}
	if opts.LongWindowMonths <= 0 {
		opts.LongWindowMonths = 12
	}
	if opts.ReferenceDate.IsZero() {
		opts.ReferenceDate = time.Now()
	}
	return &WorkloadScorer{opts: opts}
}

// Score 为所有医生计算工作量计数并写回 Workload 字段
func (s *WorkloadScorer) Score(doctors []*model.Doctor, history []*model.Assignment) {
	byDoctor := make(map[uuid.UUID][]*model.Assignment)
	for _, a := range history {
		byDoctor[a.DoctorID] = append(byDoctor[a.DoctorID], a)
	}

	for _, d := range doctors {
		counters, lastStandby := s.ScoreOne(byDoctor[d.ID])
		d.Workload = counters
		d.LastStandby = lastStandby
	}
}

// ScoreOne 计算单个医生的工作量计数
// 返回计数器和最近一次待命日期（从未待命时为 nil）
func (s *WorkloadScorer) ScoreOne(history []*model.Assignment) (*model.WorkloadCounters, *string) {
	shortCutoff := s.opts.ReferenceDate.AddDate(0, -s.opts.ShortWindowMonths, 0)
	longCutoff := s.opts.ReferenceDate.AddDate(0, -s.opts.LongWindowMonths, 0)

	counters := &model.WorkloadCounters{}
	var lastStandby *string

	for _, a := range history {
		date, err := model.ParseDate(a.Date)
		if err != nil || date.After(s.opts.ReferenceDate) {
			continue
		}

		// 门诊记录不计入任何值班计数
		if model.IsClinicPost(a.Post) {
			continue
		}

		if model.IsStandbyPost(a.Post) {
			if !date.Before(longCutoff) {
				counters.StandbyLong++
			}
			if !date.Before(shortCutoff) {
				counters.StandbyShort++
			}
			if lastStandby == nil || a.Date > *lastStandby {
				d := a.Date
				lastStandby = &d
			}
			continue
		}

		// 短窗口内的值班按平日/周末分别计数
		if !date.Before(shortCutoff) && model.IsOncallName(a.Post) {
			if model.IsWeekendDate(a.Date) {
				counters.WeekendOncall++
			} else {
				counters.WeekdayOncall++
			}
			if model.NameSuggestsED(a.Post) {
				counters.EDPosts++
			}
		}
	}

	if lastStandby != nil {
		if d, err := model.ParseDate(*lastStandby); err == nil {
			counters.DaysSinceStandby = int(s.opts.ReferenceDate.Sub(d).Hours() / 24)
		}
	} else {
		counters.DaysSinceStandby = model.NeverStandbyDays
	}

	counters.PriorityScore = PriorityScore(counters)
	return counters, lastStandby
}

// PriorityScore 计算待命优先级分数
// 分数越低优先级越高，最近承担过待命的医生分数大幅升高
func PriorityScore(c *model.WorkloadCounters) float64 {
	recencyBonus := math.Min(float64(c.DaysSinceStandby)/30.0, 50.0)
	return float64(c.WeekdayOncall+c.WeekendOncall) +
		100.0*float64(c.StandbyLong) -
		recencyBonus
}

// EligibleForStandby 过滤出可被分配待命的医生
// 长窗口内承担过待命的医生不得再被分配
func EligibleForStandby(doctors []*model.Doctor) []*model.Doctor {
	var eligible []*model.Doctor
	for _, d := range doctors {
		if d.IsActive() && d.StandbyEligible() {
			eligible = append(eligible, d)
		}
	}
	return eligible
}

// SortByPriority 按待命优先级排序（分数升序，同分按医生ID升序）
func SortByPriority(doctors []*model.Doctor) {
	sort.SliceStable(doctors, func(i, j int) bool {
		si, sj := 0.0, 0.0
		if doctors[i].Workload != nil {
			si = doctors[i].Workload.PriorityScore
		}
		if doctors[j].Workload != nil {
			sj = doctors[j].Workload.PriorityScore
		}
		if si != sj {
			return si < sj
		}
		return doctors[i].ID.String() < doctors[j].ID.String()
	})
}

// WorkloadDistribution 工作量分布指标
type WorkloadDistribution struct {
	DoctorCount    int     `json:"doctor_count"`
	AvgOncall      float64 `json:"avg_oncall"`       // 人均值班数
	MaxOncall      int     `json:"max_oncall"`       // 最大值班数
	MinOncall      int     `json:"min_oncall"`       // 最小值班数
	OncallVariance float64 `json:"oncall_variance"`  // 值班数方差
	OncallGini     float64 `json:"oncall_gini"`      // 值班分配基尼系数 (0=完全公平)
	FairnessScore  float64 `json:"fairness_score"`   // 综合公平性评分 (0-100)
	ByDoctor       map[string]int `json:"by_doctor"` // 医生ID -> 值班数
}

// AnalyzeDistribution 分析一批医生的值班量分布
func AnalyzeDistribution(doctors []*model.Doctor) *WorkloadDistribution {
	dist := &WorkloadDistribution{
		ByDoctor: make(map[string]int),
	}
	if len(doctors) == 0 {
		dist.FairnessScore = 100
		return dist
	}

	counts := make([]float64, 0, len(doctors))
	for _, d := range doctors {
		total := 0
		if d.Workload != nil {
			total = d.Workload.WeekdayOncall + d.Workload.WeekendOncall
		}
		dist.ByDoctor[d.ID.String()] = total
		counts = append(counts, float64(total))
	}

	dist.DoctorCount = len(doctors)
	dist.AvgOncall = mean(counts)
	maxV, minV := valueRange(counts)
	dist.MaxOncall = int(maxV)
	dist.MinOncall = int(minV)
	dist.OncallVariance = variance(counts, dist.AvgOncall)
	dist.OncallGini = gini(counts)

	// 基尼系数转换为分数，再按变异系数折减
	score := (1 - dist.OncallGini) * 100
	if dist.AvgOncall > 0 {
		cv := math.Sqrt(dist.OncallVariance) / dist.AvgOncall
		score = math.Min(score, math.Max(0, 100-cv*200))
	}
	dist.FairnessScore = math.Max(0, math.Min(100, score))
	return dist
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance 计算方差
func variance(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// valueRange 计算极值
func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
