// Package constraints 提供排班规则目录
// 目录与求解器内置的规则实现一一对应，供前端展示和权重配置
package constraints

// RuleParam 规则参数定义
type RuleParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// RuleDefinition 规则定义
type RuleDefinition struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Type        string      `json:"type"`     // hard 硬规则, soft 软规则
	Category    string      `json:"category"` // 分类
	Relaxable   bool        `json:"relaxable"`
	Description string      `json:"description"`
	Params      []RuleParam `json:"params"`
}

// LibraryResponse 规则库响应
type LibraryResponse struct {
	Library []RuleDefinition `json:"library"`
}

// GetLibrary 获取完整的规则库
func GetLibrary() []RuleDefinition {
	return []RuleDefinition{
		// =====================================================
		// 硬规则
		// =====================================================
		{
			Name:        "coverage",
			DisplayName: "岗位覆盖",
			Type:        "hard",
			Category:    "覆盖保障",
			Relaxable:   true,
			Description: "周期内每个适用的值班岗位每天必须恰好分配一名医生。松弛阶段降级为bigM软约束。",
			Params:      []RuleParam{},
		},
		{
			Name:        "availability",
			DisplayName: "医生可用性",
			Type:        "hard",
			Category:    "时间限制",
			Relaxable:   true,
			Description: "只在医生明确标记为可用的日期和岗位上排班，缺失记录视为不可用。松弛阶段降级为bigM软约束。",
			Params:      []RuleParam{},
		},
		{
			Name:        "double_booking",
			DisplayName: "禁止同日多班",
			Type:        "hard",
			Category:    "休息保障",
			Relaxable:   false,
			Description: "同一医生同一天最多一个值班分配。该规则在任何阶段都不松弛。",
			Params:      []RuleParam{},
		},
		{
			Name:        "standby_exclusivity",
			DisplayName: "待命周末唯一",
			Type:        "hard",
			Category:    "待命管理",
			Relaxable:   true,
			Description: "同一医生在一个排班周期内最多承担一个待命周末（周六+周日整块）。",
			Params:      []RuleParam{},
		},
		{
			Name:        "standby_cooldown",
			DisplayName: "待命冷却期",
			Type:        "hard",
			Category:    "待命管理",
			Relaxable:   true,
			Description: "长窗口内已有待命记录的医生不参与本周期的待命分配。",
			Params:      []RuleParam{},
		},

		// =====================================================
		// 软规则
		// =====================================================
		{
			Name:        "rest",
			DisplayName: "相邻值班休息",
			Type:        "soft",
			Category:    "休息保障",
			Description: "避免同一医生连续两天值班。周六到周日的待命块是唯一的获准例外。",
			Params: []RuleParam{
				{Name: "lambdaRest", Type: "float", Description: "罚分权重", Default: "3", Min: "0"},
			},
		},
		{
			Name:        "gap_spacing",
			DisplayName: "值班间隔",
			Type:        "soft",
			Category:    "休息保障",
			Description: "鼓励值班之间至少间隔两天，隔一天值班记轻度罚分。",
			Params: []RuleParam{
				{Name: "lambdaGap", Type: "float", Description: "罚分权重", Default: "1", Min: "0"},
			},
		},
		{
			Name:        "ed_preference",
			DisplayName: "ED岗位人选",
			Type:        "soft",
			Category:    "岗位匹配",
			Description: "ED岗位优先由初级医生承担,senior和registrar承担时记罚分。",
			Params: []RuleParam{
				{Name: "lambdaED", Type: "float", Description: "罚分权重", Default: "6", Min: "0"},
			},
		},
		{
			Name:        "standby_load",
			DisplayName: "待命负荷",
			Type:        "soft",
			Category:    "待命管理",
			Description: "按医生的历史待命负荷和距上次待命的天数计罚，负荷低且久未待命的医生优先。",
			Params: []RuleParam{
				{Name: "lambdaStandby", Type: "float", Description: "罚分权重", Default: "5", Min: "0"},
			},
		},
		{
			Name:        "min_one_coverage",
			DisplayName: "人人有班",
			Type:        "soft",
			Category:    "公平性",
			Description: "鼓励每位在职医生（机动医生除外）在周期内至少有一次值班。",
			Params: []RuleParam{
				{Name: "lambdaMinOne", Type: "float", Description: "罚分权重", Default: "10", Min: "0"},
			},
		},
		{
			Name:        "registrar_weekend",
			DisplayName: "registrar周末",
			Type:        "soft",
			Category:    "岗位匹配",
			Description: "避免registrar在周末值班。",
			Params: []RuleParam{
				{Name: "lambdaRegWeekend", Type: "float", Description: "罚分权重", Default: "2", Min: "0"},
			},
		},
		{
			Name:        "unit_over_coverage",
			DisplayName: "科室超额覆盖",
			Type:        "soft",
			Category:    "覆盖保障",
			Description: "非门诊日科室单日值班人数不超过 max(1, ceil(0.25×科室人数))，超出部分按人数计罚。",
			Params: []RuleParam{
				{Name: "lambdaUnitOver", Type: "float", Description: "罚分权重", Default: "25", Min: "0"},
			},
		},
		{
			Name:        "junior_ward",
			DisplayName: "junior病房限制",
			Type:        "soft",
			Category:    "岗位匹配",
			Description: "避免junior医生承担病房岗位。",
			Params: []RuleParam{
				{Name: "lambdaJuniorWard", Type: "float", Description: "罚分权重", Default: "6", Min: "0"},
			},
		},
		{
			Name:        "clinic_proximity",
			DisplayName: "门诊邻近冲突",
			Type:        "soft",
			Category:    "门诊保障",
			Description: "值班与科室门诊日冲突时按远近计罚：门诊当天最重，前一天次之，后一天最轻。",
			Params: []RuleParam{
				{Name: "clinicPenaltySame", Type: "float", Description: "门诊当天罚分", Default: "50", Min: "0"},
				{Name: "clinicPenaltyBefore", Type: "float", Description: "门诊前一天罚分", Default: "10", Min: "0"},
				{Name: "clinicPenaltyAfter", Type: "float", Description: "门诊后一天罚分", Default: "5", Min: "0"},
			},
		},
	}
}
