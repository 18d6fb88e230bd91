// Package model 定义排班引擎的核心数据模型
package model

import (
	"strings"
)

// PostApplicability 岗位适用范围
type PostApplicability string

const (
	PostWeekday PostApplicability = "weekday" // 仅工作日
	PostWeekend PostApplicability = "weekend" // 仅周末
	PostBoth    PostApplicability = "both"    // 工作日和周末
)

// 约定的特殊岗位名称
const (
	StandbyPostName = "Standby Oncall" // 周末两天standby岗位
	ClinicPostName  = "clinic"         // 门诊（由排班规则派生，不参与优化）
)

// Post 岗位
type Post struct {
	BaseModel
	Name          string            `json:"name" db:"name"`
	Applicability PostApplicability `json:"applicability" db:"applicability"`
}

// AppliesOn 检查岗位在某日期是否适用
func (p *Post) AppliesOn(date string) bool {
	weekend := IsWeekendDate(date)
	switch p.Applicability {
	case PostWeekday:
		return !weekend
	case PostWeekend:
		return weekend
	case PostBoth:
		return true
	}
	return false
}

// 岗位分类目前按命名约定派生。
// TODO: 迁移到Post上的显式类别字段后仅保留名称匹配作为导入兜底

// IsStandbyPost 检查是否为standby岗位（名称精确匹配）
func IsStandbyPost(name string) bool {
	return name == StandbyPostName
}

// IsClinicPost 检查是否为门诊岗位
func IsClinicPost(name string) bool {
	return strings.Contains(strings.ToLower(name), "clinic")
}

// IsWardPost 检查是否为病房岗位（名称以 Ward 开头）
func IsWardPost(name string) bool {
	return strings.HasPrefix(name, "Ward")
}

// IsEDPost 检查是否为急诊岗位（名称以 ED 开头）
func IsEDPost(name string) bool {
	return strings.HasPrefix(name, "ED")
}

// NameSuggestsED 检查名称是否包含 ed（不区分大小写）
// 用于历史工作量统计中的ED分类
func NameSuggestsED(name string) bool {
	return strings.Contains(strings.ToLower(name), "ed")
}

// IsOncallName 按命名约定检查是否为oncall类岗位
// oncall = ED / Ward / Standby，门诊岗位一律排除
func IsOncallName(name string) bool {
	if IsClinicPost(name) {
		return false
	}
	return IsEDPost(name) || IsWardPost(name) || IsStandbyPost(name)
}
