// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// RosterPeriod 排班周期（闭区间）
type RosterPeriod struct {
	BaseModel
	Name      string `json:"name" db:"name"`
	StartDate string `json:"start_date" db:"start_date"`
	EndDate   string `json:"end_date" db:"end_date"`
	Status    string `json:"status" db:"status"` // draft/generating/published/archived
}

// Range 返回周期的日期范围
func (p *RosterPeriod) Range() DateRange {
	return DateRange{StartDate: p.StartDate, EndDate: p.EndDate}
}

// AvailabilityRecord 可用性记录
// 缺失记录视为不可用（fail-closed），由求解器负责
type AvailabilityRecord struct {
	DoctorID  uuid.UUID `json:"doctor_id" db:"doctor_id"`
	Date      string    `json:"date" db:"date"` // YYYY-MM-DD
	Post      string    `json:"post" db:"post"`
	Available bool      `json:"available" db:"available"`
}

// AvailabilityKey 可用性查询键
type AvailabilityKey struct {
	DoctorID uuid.UUID
	Date     string
	Post     string
}

// AvailabilityIndex 可用性索引
type AvailabilityIndex map[AvailabilityKey]bool

// BuildAvailabilityIndex 将可用性记录列表转为查询索引
func BuildAvailabilityIndex(records []AvailabilityRecord) AvailabilityIndex {
	idx := make(AvailabilityIndex, len(records))
	for _, r := range records {
		idx[AvailabilityKey{DoctorID: r.DoctorID, Date: r.Date, Post: r.Post}] = r.Available
	}
	return idx
}

// IsAvailable 查询医生某日某岗位是否可用，缺失记录返回false
func (idx AvailabilityIndex) IsAvailable(doctorID uuid.UUID, date, post string) bool {
	return idx[AvailabilityKey{DoctorID: doctorID, Date: date, Post: post}]
}

// Assignment 排班分配（排班表元素）
type Assignment struct {
	ID       uuid.UUID `json:"id" db:"id"`
	DoctorID uuid.UUID `json:"doctor_id" db:"doctor_id"`
	Date     string    `json:"date" db:"date"` // YYYY-MM-DD
	Post     string    `json:"post" db:"post"`
}

// NewAssignment 创建排班分配
func NewAssignment(doctorID uuid.UUID, date, post string) *Assignment {
	return &Assignment{
		ID:       uuid.New(),
		DoctorID: doctorID,
		Date:     date,
		Post:     post,
	}
}

// IsOncall 检查分配是否为oncall类岗位
func (a *Assignment) IsOncall() bool {
	return IsOncallName(a.Post)
}

// Schedule 排班表
type Schedule struct {
	BaseModel
	PeriodID    uuid.UUID     `json:"period_id" db:"period_id"`
	Status      string        `json:"status" db:"status"` // draft/published/archived
	Assignments []*Assignment `json:"assignments,omitempty" db:"-"`
	GeneratedAt *time.Time    `json:"generated_at,omitempty" db:"generated_at"`
}

// AssignmentsByDoctor 按医生分组排班分配
func AssignmentsByDoctor(assignments []*Assignment) map[uuid.UUID][]*Assignment {
	result := make(map[uuid.UUID][]*Assignment)
	for _, a := range assignments {
		result[a.DoctorID] = append(result[a.DoctorID], a)
	}
	return result
}

// AssignmentsByDate 按日期分组排班分配
func AssignmentsByDate(assignments []*Assignment) map[string][]*Assignment {
	result := make(map[string][]*Assignment)
	for _, a := range assignments {
		result[a.Date] = append(result[a.Date], a)
	}
	return result
}
