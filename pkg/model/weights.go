// Package model 定义排班引擎的核心数据模型
package model

// SolverWeights 求解器权重配置
// 字段名与前端/存储的 solver_config JSON 键保持一致，
// 引擎将其视为不透明配置，仅在缺省时使用文档化的兜底值
type SolverWeights struct {
	LambdaRest          float64 `json:"lambdaRest"`          // 相邻oncall休息违规惩罚
	LambdaGap           float64 `json:"lambdaGap"`           // 3天间隔奖励
	LambdaED            float64 `json:"lambdaED"`            // senior/registrar排ED惩罚
	LambdaStandby       float64 `json:"lambdaStandby"`       // standby近期度奖励系数
	LambdaMinOne        float64 `json:"lambdaMinOne"`        // 非floater零排班惩罚
	LambdaRegWeekend    float64 `json:"lambdaRegWeekend"`    // registrar周末oncall惩罚
	LambdaUnitOver      float64 `json:"lambdaUnitOver"`      // 科室超额覆盖惩罚
	LambdaJuniorWard    float64 `json:"lambdaJuniorWard"`    // junior排病房惩罚
	ClinicPenaltyBefore float64 `json:"clinicPenaltyBefore"` // 门诊前一天oncall惩罚
	ClinicPenaltySame   float64 `json:"clinicPenaltySame"`   // 门诊当天oncall惩罚
	ClinicPenaltyAfter  float64 `json:"clinicPenaltyAfter"`  // 门诊后一天oncall惩罚
	BigM                float64 `json:"bigM"`                // 松弛阶段的大惩罚常数
	TimeBudgetSeconds   int     `json:"solverTimeoutSeconds"`
}

// DefaultSolverWeights 返回兜底权重
// 与原始solver_config缺省值保持一致
func DefaultSolverWeights() SolverWeights {
	return SolverWeights{
		LambdaRest:          3,
		LambdaGap:           1,
		LambdaED:            6,
		LambdaStandby:       5,
		LambdaMinOne:        10,
		LambdaRegWeekend:    2,
		LambdaUnitOver:      25,
		LambdaJuniorWard:    6,
		ClinicPenaltyBefore: 10,
		ClinicPenaltySame:   50,
		ClinicPenaltyAfter:  5,
		BigM:                10000,
		TimeBudgetSeconds:   600,
	}
}

// Normalize 填充未设置（零值）的权重为兜底值
// 返回新副本，不修改原值
// 零值等同于未配置：显式传0也会回退到兜底值，
// 想弱化某项惩罚应传一个接近0的正数而不是0
func (w SolverWeights) Normalize() SolverWeights {
	def := DefaultSolverWeights()
	if w.LambdaRest == 0 {
		w.LambdaRest = def.LambdaRest
	}
	if w.LambdaGap == 0 {
		w.LambdaGap = def.LambdaGap
	}
	if w.LambdaED == 0 {
		w.LambdaED = def.LambdaED
	}
	if w.LambdaStandby == 0 {
		w.LambdaStandby = def.LambdaStandby
	}
	if w.LambdaMinOne == 0 {
		w.LambdaMinOne = def.LambdaMinOne
	}
	if w.LambdaRegWeekend == 0 {
		w.LambdaRegWeekend = def.LambdaRegWeekend
	}
	if w.LambdaUnitOver == 0 {
		w.LambdaUnitOver = def.LambdaUnitOver
	}
	if w.LambdaJuniorWard == 0 {
		w.LambdaJuniorWard = def.LambdaJuniorWard
	}
	if w.ClinicPenaltyBefore == 0 {
		w.ClinicPenaltyBefore = def.ClinicPenaltyBefore
	}
	if w.ClinicPenaltySame == 0 {
		w.ClinicPenaltySame = def.ClinicPenaltySame
	}
	if w.ClinicPenaltyAfter == 0 {
		w.ClinicPenaltyAfter = def.ClinicPenaltyAfter
	}
	if w.BigM == 0 {
		w.BigM = def.BigM
	}
	if w.TimeBudgetSeconds == 0 {
		w.TimeBudgetSeconds = def.TimeBudgetSeconds
	}
	return w
}
