package constraint

import (
	"testing"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// fakeConstraint 测试用规则
type fakeConstraint struct {
	name     string
	typ      Type
	category Category
	weight   float64
	valid    bool
	penalty  float64
}

func (f *fakeConstraint) Name() string       { return f.name }
func (f *fakeConstraint) Type() Type         { return f.typ }
func (f *fakeConstraint) Category() Category { return f.category }
func (f *fakeConstraint) Weight() float64    { return f.weight }
func (f *fakeConstraint) Relaxable() bool    { return false }

func (f *fakeConstraint) Evaluate(ctx *Context) (bool, float64, []ViolationDetail) {
	if f.valid {
		return true, 0, nil
	}
	return false, f.penalty, []ViolationDetail{{
		ConstraintType: f.typ,
		ConstraintName: f.name,
		Message:        "测试违反",
		Penalty:        f.penalty,
	}}
}

func (f *fakeConstraint) EvaluateAssignment(ctx *Context, a *model.Assignment) (bool, float64) {
	if f.valid {
		return true, 0
	}
	return false, f.penalty
}

func newTestContext() *Context {
	period := model.DateRange{StartDate: "2025-08-04", EndDate: "2025-08-17"}
	return NewContext(uuid.New(), period)
}

func TestManager_RegisterReplacesSameType(t *testing.T) {
	m := NewManager()
	m.Register(&fakeConstraint{name: "规则A", typ: TypeRest, category: CategorySoft, weight: 3, valid: true})
	m.Register(&fakeConstraint{name: "规则B", typ: TypeRest, category: CategorySoft, weight: 5, valid: true})

	if m.Count() != 1 {
		t.Errorf("同类型规则应替换, count = %d", m.Count())
	}
	if got := m.GetConstraint(TypeRest); got.Name() != "规则B" {
		t.Errorf("替换后的规则应为规则B, got %s", got.Name())
	}
}

func TestManager_HardSortsFirst(t *testing.T) {
	m := NewManager()
	m.Register(&fakeConstraint{name: "软规则", typ: TypeRest, category: CategorySoft, weight: 99, valid: true})
	m.Register(&fakeConstraint{name: "硬规则", typ: TypeDoubleBooking, category: CategoryHard, weight: 1, valid: true})

	all := m.GetAll()
	if all[0].Category() != CategoryHard {
		t.Error("硬规则应排在软规则之前")
	}
}

func TestManager_EvaluateSeparatesCategories(t *testing.T) {
	m := NewManager()
	m.Register(&fakeConstraint{name: "硬违反", typ: TypeDoubleBooking, category: CategoryHard, weight: 100, valid: false, penalty: 100})
	m.Register(&fakeConstraint{name: "软违反", typ: TypeRest, category: CategorySoft, weight: 3, valid: false, penalty: 3})

	result := m.Evaluate(newTestContext())
	if result.IsValid {
		t.Error("存在硬违反时方案应无效")
	}
	if len(result.HardViolations) != 1 || len(result.SoftViolations) != 1 {
		t.Errorf("违反分类错误: hard=%d soft=%d",
			len(result.HardViolations), len(result.SoftViolations))
	}
	if result.TotalPenalty != 103 {
		t.Errorf("TotalPenalty = %.1f, want 103", result.TotalPenalty)
	}
}

func TestManager_CanAssignChecksHardOnly(t *testing.T) {
	m := NewManager()
	m.Register(&fakeConstraint{name: "软违反", typ: TypeRest, category: CategorySoft, weight: 3, valid: false, penalty: 3})

	a := model.NewAssignment(uuid.New(), "2025-08-04", "Ward1")
	ok, _ := m.CanAssign(newTestContext(), a)
	if !ok {
		t.Error("仅违反软规则时应允许分配")
	}

	m.Register(&fakeConstraint{name: "硬违反", typ: TypeDoubleBooking, category: CategoryHard, weight: 100, valid: false, penalty: 100})
	ok, reason := m.CanAssign(newTestContext(), a)
	if ok {
		t.Error("违反硬规则时应拒绝分配")
	}
	if reason == "" {
		t.Error("拒绝分配应给出原因")
	}
}

func TestContext_SlotAndIndexes(t *testing.T) {
	ctx := newTestContext()
	docID := uuid.New()
	a := model.NewAssignment(docID, "2025-08-04", "Ward1")
	ctx.AddAssignment(a)

	if got := ctx.SlotAssignment("2025-08-04", "Ward1"); got == nil || got.ID != a.ID {
		t.Error("槽位索引未更新")
	}
	if !ctx.HasOncallOn(docID, "2025-08-04") {
		t.Error("医生值班索引未更新")
	}

	ctx.RemoveAssignment(a.ID)
	if ctx.SlotAssignment("2025-08-04", "Ward1") != nil {
		t.Error("移除分配后槽位应为空")
	}
}

func TestOwningSaturday(t *testing.T) {
	// 2025-08-09 周六, 2025-08-10 周日
	if got := OwningSaturday("2025-08-10"); got != "2025-08-09" {
		t.Errorf("周日应归属前一天的周六, got %s", got)
	}
	if got := OwningSaturday("2025-08-09"); got != "2025-08-09" {
		t.Errorf("周六应归属自身, got %s", got)
	}
}

func TestContext_UnitOverCoverageCap(t *testing.T) {
	ctx := newTestContext()
	unitID := uuid.New()

	// 4人科室上限为 max(1, ceil(0.25×4)) = 1
	doctors := make([]*model.Doctor, 0, 4)
	for i := 0; i < 4; i++ {
		doctors = append(doctors, &model.Doctor{
			BaseModel: model.NewBaseModel(), UnitID: unitID, Active: true,
		})
	}
	ctx.SetDoctors(doctors)

	if cap := ctx.UnitOverCoverageCap(unitID); cap != 1 {
		t.Errorf("4人科室上限 = %d, want 1", cap)
	}

	// 5人科室上限为 ceil(1.25) = 2
	doctors = append(doctors, &model.Doctor{
		BaseModel: model.NewBaseModel(), UnitID: unitID, Active: true,
	})
	ctx.SetDoctors(doctors)
	if cap := ctx.UnitOverCoverageCap(unitID); cap != 2 {
		t.Errorf("5人科室上限 = %d, want 2", cap)
	}
}
