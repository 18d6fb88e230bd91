// Package solver 提供两阶段排班求解器
package solver

import (
	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/errors"
	"github.com/medschedulr/medschedulr/pkg/model"
)

// Problem 一次求解的完整输入快照
// 医生列表应已由工作量评分器标注过 Workload 字段
type Problem struct {
	PeriodID     uuid.UUID                  `json:"period_id"`
	Period       model.DateRange            `json:"period"`
	Doctors      []*model.Doctor            `json:"doctors"`
	Units        []*model.Unit              `json:"units"`
	Posts        []*model.Post              `json:"posts"`
	Availability []model.AvailabilityRecord `json:"availability"`
	Weights      model.SolverWeights        `json:"weights"`
}

// Validate 校验输入完整性
// 求解前快速失败，不做部分求解
func (p *Problem) Validate() error {
	if err := p.Period.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidTimeRange, "排班周期无效")
	}
	if len(p.Doctors) == 0 {
		return errors.InvalidInput("doctors", "没有可排班的医生")
	}
	if len(p.Posts) == 0 {
		return errors.InvalidInput("posts", "没有需要覆盖的岗位")
	}

	unitIDs := make(map[uuid.UUID]bool)
	for _, u := range p.Units {
		unitIDs[u.ID] = true
	}
	for _, d := range p.Doctors {
		if !model.ValidCategory(d.Category) {
			return errors.InvalidInput("doctors", "医生 "+d.Name+" 的类别无效")
		}
		if !unitIDs[d.UnitID] {
			return errors.InvalidInput("doctors", "医生 "+d.Name+" 引用了不存在的科室")
		}
	}
	for _, a := range p.Availability {
		if _, err := model.ParseDate(a.Date); err != nil {
			return errors.InvalidInput("availability", "日期 "+a.Date+" 格式错误")
		}
	}
	return nil
}

// Slot 单个决策槽位
// 普通岗位按天展开；待命岗位按周末块展开，一个块覆盖周六和周日两天
type Slot struct {
	Dates []string `json:"dates"` // 普通槽位1个日期，待命块2个
	Post  string   `json:"post"`
}

// IsStandbyBlock 是否为待命周末块
func (s *Slot) IsStandbyBlock() bool {
	return model.IsStandbyPost(s.Post) && len(s.Dates) == 2
}

// ExpandSlots 展开周期内的全部决策槽位
// 待命岗位按（周六，周日）块建模，结构上保证两天同一医生
func ExpandSlots(period model.DateRange, posts []*model.Post) []*Slot {
	var slots []*Slot
	dates := period.Dates()
	inPeriod := make(map[string]bool, len(dates))
	for _, d := range dates {
		inPeriod[d] = true
	}

	for _, date := range dates {
		for _, p := range posts {
			if model.IsClinicPost(p.Name) || !p.AppliesOn(date) {
				continue
			}
			if model.IsStandbyPost(p.Name) {
				// 周六锚定一个周末块，周日由所属块覆盖
				if model.IsSaturday(date) {
					block := &Slot{Dates: []string{date}, Post: p.Name}
					if sunday := model.NextDate(date); inPeriod[sunday] {
						block.Dates = append(block.Dates, sunday)
					}
					slots = append(slots, block)
					continue
				}
				// 周期首日恰为周日时所属周六不在周期内，单日成块
				if model.IsSunday(date) && !inPeriod[model.PrevDate(date)] {
					slots = append(slots, &Slot{Dates: []string{date}, Post: p.Name})
				}
				continue
			}
			slots = append(slots, &Slot{Dates: []string{date}, Post: p.Name})
		}
	}
	return slots
}

// ExpandClinicAssignments 生成门诊行
// 科室门诊日内的每位在职医生都会得到一条门诊记录，
// 门诊不参与优化目标，仅随排班结果一并输出
func ExpandClinicAssignments(period model.DateRange, doctors []*model.Doctor, units []*model.Unit) []*model.Assignment {
	unitMap := make(map[uuid.UUID]*model.Unit)
	for _, u := range units {
		unitMap[u.ID] = u
	}

	var clinic []*model.Assignment
	for _, date := range period.Dates() {
		weekday := model.WeekdayIndex(date)
		for _, d := range doctors {
			if !d.IsActive() {
				continue
			}
			u := unitMap[d.UnitID]
			if u == nil || !u.IsClinicWeekday(weekday) {
				continue
			}
			clinic = append(clinic, model.NewAssignment(d.ID, date, model.ClinicPostName))
		}
	}
	return clinic
}

// Statistics 求解统计
// 字段与编排层约定的 JSON 形态保持一致
type Statistics struct {
	TotalAssignments  int            `json:"total_assignments"`
	DoctorsUsed       int            `json:"doctors_used"`
	PostsFilled       int            `json:"posts_filled"`
	AssignmentsByDate map[string]int `json:"assignments_by_date"`
	WorkloadByDoctor  map[string]int `json:"workload_by_doctor"`
	SolverStatus      string         `json:"solver_status"`
	ObjectiveValue    float64        `json:"objective_value"`
}

// BuildStatistics 从排班结果汇总统计
func BuildStatistics(assignments []*model.Assignment, status string, objective float64) *Statistics {
	stats := &Statistics{
		TotalAssignments:  len(assignments),
		AssignmentsByDate: make(map[string]int),
		WorkloadByDoctor:  make(map[string]int),
		SolverStatus:      status,
		ObjectiveValue:    objective,
	}

	doctors := make(map[uuid.UUID]bool)
	slots := make(map[string]bool)
	for _, a := range assignments {
		stats.AssignmentsByDate[a.Date]++
		stats.WorkloadByDoctor[a.DoctorID.String()]++
		doctors[a.DoctorID] = true
		if a.IsOncall() {
			slots[a.Date+"/"+a.Post] = true
		}
	}
	stats.DoctorsUsed = len(doctors)
	stats.PostsFilled = len(slots)
	return stats
}
