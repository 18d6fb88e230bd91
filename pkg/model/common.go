// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout 日期格式 (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ParseDate 解析 YYYY-MM-DD 日期字符串
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效日期 %q: %w", date, err)
	}
	return t, nil
}

// WeekdayIndex 返回日期的星期索引（0=周一 ... 6=周日）
// 与排班配置中的 clinic_weekdays 编码一致
func WeekdayIndex(date string) int {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return -1
	}
	// time.Weekday 以周日为0，转换为周一为0
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekendDate 检查日期是否为周六或周日
func IsWeekendDate(date string) bool {
	return WeekdayIndex(date) >= 5
}

// IsSaturday 检查日期是否为周六
func IsSaturday(date string) bool {
	return WeekdayIndex(date) == 5
}

// IsSunday 检查日期是否为周日
func IsSunday(date string) bool {
	return WeekdayIndex(date) == 6
}

// NextDate 返回后一天的日期
func NextDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(DateLayout)
}

// PrevDate 返回前一天的日期
func PrevDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateLayout)
}

// DaysBetween 计算两个日期间隔的天数 (date2 - date1)
func DaysBetween(date1, date2 string) int {
	t1, err1 := time.Parse(DateLayout, date1)
	t2, err2 := time.Parse(DateLayout, date2)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(t2.Sub(t1).Hours() / 24)
}

// MonthsBetween 计算两个日期之间的整月数
func MonthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}

// DateRange 日期范围（闭区间）
type DateRange struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

// Validate 检查范围是否合法
func (r DateRange) Validate() error {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("结束日期 %s 早于开始日期 %s", r.EndDate, r.StartDate)
	}
	return nil
}

// Dates 展开范围内的所有日期（升序）
func (r DateRange) Dates() []string {
	start, err1 := time.Parse(DateLayout, r.StartDate)
	end, err2 := time.Parse(DateLayout, r.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return nil
	}
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

// Contains 检查日期是否落在范围内
func (r DateRange) Contains(date string) bool {
	return date >= r.StartDate && date <= r.EndDate
}

// Days 返回范围内的天数
func (r DateRange) Days() int {
	return len(r.Dates())
}
