package model

import "testing"

// TestNormalize_ZeroMeansUnset 零值权重回退为兜底值，传0不等于停用
func TestNormalize_ZeroMeansUnset(t *testing.T) {
	w := SolverWeights{LambdaGap: 0, LambdaRest: 7}
	n := w.Normalize()

	def := DefaultSolverWeights()
	if n.LambdaGap != def.LambdaGap {
		t.Errorf("零值应回退兜底值: LambdaGap = %v, want %v", n.LambdaGap, def.LambdaGap)
	}
	if n.LambdaRest != 7 {
		t.Errorf("显式非零值应保留: LambdaRest = %v, want 7", n.LambdaRest)
	}
	if n.BigM != def.BigM || n.TimeBudgetSeconds != def.TimeBudgetSeconds {
		t.Error("未设置的大惩罚常数和时间预算应回退兜底值")
	}

	// 原值不被修改
	if w.LambdaGap != 0 {
		t.Error("Normalize不应修改原配置")
	}
}
