// Package model 定义排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// DoctorCategory 医生类别
type DoctorCategory string

const (
	CategoryFloater   DoctorCategory = "floater"   // 机动医生（不排oncall）
	CategoryJunior    DoctorCategory = "junior"    // 初级医生
	CategorySenior    DoctorCategory = "senior"    // 高级医生
	CategoryRegistrar DoctorCategory = "registrar" // 专科住院医生
)

// ValidCategory 检查医生类别是否合法
func ValidCategory(c DoctorCategory) bool {
	switch c {
	case CategoryFloater, CategoryJunior, CategorySenior, CategoryRegistrar:
		return true
	}
	return false
}

// NeverStandbyDays 从未做过standby时 days_since_last_standby 的哨兵值
const NeverStandbyDays = 9999

// WorkloadCounters 滚动工作量计数（由公平性统计在求解前重算并覆盖）
type WorkloadCounters struct {
	WeekdayOncall    int     `json:"weekday" db:"weekday_oncall"`       // 短窗口内工作日oncall次数
	WeekendOncall    int     `json:"weekend" db:"weekend_oncall"`       // 短窗口内周末oncall次数
	EDPosts          int     `json:"ed" db:"ed_posts"`                  // 短窗口内ED岗位次数
	StandbyLong      int     `json:"standby_long" db:"standby_long"`    // 长窗口内standby次数
	StandbyShort     int     `json:"standby_short" db:"standby_short"`  // 短窗口内standby次数
	DaysSinceStandby int     `json:"days_since_standby" db:"days_since_standby"`
	PriorityScore    float64 `json:"priority_score" db:"-"` // 分数越低优先级越高
}

// Doctor 医生
type Doctor struct {
	BaseModel
	Name        string            `json:"name" db:"name"`
	UnitID      uuid.UUID         `json:"unit_id" db:"unit_id"`
	Category    DoctorCategory    `json:"category" db:"category"`
	Active      bool              `json:"active" db:"active"`
	LastStandby *string           `json:"last_standby,omitempty" db:"last_standby"` // YYYY-MM-DD
	Workload    *WorkloadCounters `json:"workload,omitempty" db:"-"`
}

// IsActive 检查医生是否在职
func (d *Doctor) IsActive() bool {
	return d.Active && d.DeletedAt == nil
}

// TotalOncall 返回短窗口内oncall总次数（工作日+周末）
func (d *Doctor) TotalOncall() int {
	if d.Workload == nil {
		return 0
	}
	return d.Workload.WeekdayOncall + d.Workload.WeekendOncall
}

// StandbyEligible 检查医生是否可参与standby排班
// 长窗口内已有standby记录的医生不得再排
func (d *Doctor) StandbyEligible() bool {
	if d.Workload == nil {
		return true
	}
	return d.Workload.StandbyLong == 0
}

// Unit 科室
type Unit struct {
	BaseModel
	Name           string `json:"name" db:"name"`
	ClinicWeekdays []int  `json:"clinic_weekdays" db:"clinic_weekdays"` // 0=周一 ... 6=周日
}

// IsClinicWeekday 检查某星期索引是否为该科室的门诊日
func (u *Unit) IsClinicWeekday(weekday int) bool {
	for _, w := range u.ClinicWeekdays {
		if w == weekday {
			return true
		}
	}
	return false
}

// IsClinicDate 检查某日期是否为该科室的门诊日
func (u *Unit) IsClinicDate(date string) bool {
	return u.IsClinicWeekday(WeekdayIndex(date))
}
