// Package validator 提供独立的排班规则校验
// 校验器与求解器共享同一套规则语义，但从零重新计算，
// 既用于审计求解器输出，也用于人工改班后的实时反馈
package validator

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// ViolationType 违规类型
type ViolationType string

const (
	ViolationRest             ViolationType = "rest"               // 相邻值班缺休息
	ViolationClinicConflict   ViolationType = "clinic_conflict"    // 值班与门诊冲突
	ViolationRegistrarWeekend ViolationType = "registrar_weekend"  // registrar周末值班
	ViolationJuniorWard       ViolationType = "junior_ward"        // junior排病房
	ViolationEDAssignment     ViolationType = "ed_assignment"      // senior/registrar排ED
	ViolationUnitOverCoverage ViolationType = "unit_over_coverage" // 科室超额覆盖
	ViolationStandbyPairing   ViolationType = "standby_pairing"    // 待命周末配对不一致
	ViolationCoverage         ViolationType = "coverage"           // 岗位未覆盖或重复覆盖
	ViolationAvailability     ViolationType = "availability"       // 医生不可用
	ViolationDoubleBooking    ViolationType = "double_booking"     // 同日多个值班
)

// Severity 违规严重度
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Violation 违规记录
type Violation struct {
	Type         ViolationType `json:"type"`
	Severity     Severity      `json:"severity"`
	Message      string        `json:"message"`
	DoctorID     uuid.UUID     `json:"doctor_id,omitempty"`
	Date         string        `json:"date,omitempty"`
	AssignmentID uuid.UUID     `json:"assignment_id,omitempty"`
	Related      []uuid.UUID   `json:"related,omitempty"` // 相关的排班ID
}

// Input 校验输入快照
// Availability 为 nil 时跳过可用性检查（人工改班场景常无可用性表）
type Input struct {
	Period       model.DateRange
	Doctors      []*model.Doctor
	Units        []*model.Unit
	Posts        []*model.Post
	Availability model.AvailabilityIndex
	Assignments  []*model.Assignment
}

// Verifier 规则校验器
// 无状态纯函数：相同输入必产出相同（不计顺序）的违规集合
type Verifier struct{}

// NewVerifier 创建规则校验器
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify 对完整排班做全量规则检查
// 返回空列表表示排班完全合规
func (v *Verifier) Verify(in *Input) []Violation {
	var violations []Violation

	doctorMap := make(map[uuid.UUID]*model.Doctor)
	for _, d := range in.Doctors {
		doctorMap[d.ID] = d
	}
	unitMap := make(map[uuid.UUID]*model.Unit)
	for _, u := range in.Units {
		unitMap[u.ID] = u
	}

	byDoctor := model.AssignmentsByDoctor(in.Assignments)

	// 按医生的检查以日期升序进行，遍历顺序按医生ID固定
	docIDs := make([]uuid.UUID, 0, len(byDoctor))
	for id := range byDoctor {
		docIDs = append(docIDs, id)
	}
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i].String() < docIDs[j].String() })

	for _, docID := range docIDs {
		doctor := doctorMap[docID]
		if doctor == nil {
			continue
		}
		oncalls := sortedOncalls(byDoctor[docID])

		violations = append(violations, v.checkRest(doctor, oncalls)...)
		violations = append(violations, v.checkClinic(doctor, unitMap[doctor.UnitID], oncalls)...)
		violations = append(violations, v.checkCategory(doctor, oncalls)...)
		violations = append(violations, v.checkDoubleBooking(doctor, oncalls)...)
		if in.Availability != nil {
			violations = append(violations, v.checkAvailability(doctor, oncalls, in.Availability)...)
		}
	}

	violations = append(violations, v.checkUnitOverCoverage(in, doctorMap)...)
	violations = append(violations, v.checkStandbyPairing(in)...)
	if len(in.Posts) > 0 {
		violations = append(violations, v.checkCoverage(in)...)
	}

	return violations
}

// checkRest 相邻值班休息检查
// 周六→周日且两天均为待命的配对是获准的2天待命块，不计违规
func (v *Verifier) checkRest(doctor *model.Doctor, oncalls []*model.Assignment) []Violation {
	var violations []Violation
	for i := 0; i < len(oncalls)-1; i++ {
		a, b := oncalls[i], oncalls[i+1]
		if model.DaysBetween(a.Date, b.Date) != 1 {
			continue
		}
		if model.IsStandbyPost(a.Post) && model.IsStandbyPost(b.Post) &&
			model.IsSaturday(a.Date) && model.IsSunday(b.Date) {
			continue
		}

		violations = append(violations, Violation{
			Type:         ViolationRest,
			Severity:     SeverityHigh,
			Message:      fmt.Sprintf("医生 %s 在 %s 和 %s 连续两天值班", doctor.Name, a.Date, b.Date),
			DoctorID:     doctor.ID,
			Date:         b.Date,
			AssignmentID: b.ID,
			Related:      []uuid.UUID{a.ID},
		})
	}
	return violations
}

// checkClinic 门诊冲突检查
// 门诊当天high，前一天medium，后一天low
func (v *Verifier) checkClinic(doctor *model.Doctor, unit *model.Unit, oncalls []*model.Assignment) []Violation {
	if unit == nil || len(unit.ClinicWeekdays) == 0 {
		return nil
	}

	var violations []Violation
	for _, a := range oncalls {
		switch {
		case unit.IsClinicDate(a.Date):
			violations = append(violations, Violation{
				Type:         ViolationClinicConflict,
				Severity:     SeverityHigh,
				Message:      fmt.Sprintf("医生 %s 在门诊日 %s 值班", doctor.Name, a.Date),
				DoctorID:     doctor.ID,
				Date:         a.Date,
				AssignmentID: a.ID,
			})
		case unit.IsClinicDate(model.NextDate(a.Date)):
			violations = append(violations, Violation{
				Type:         ViolationClinicConflict,
				Severity:     SeverityMedium,
				Message:      fmt.Sprintf("医生 %s 在门诊前一天 %s 值班", doctor.Name, a.Date),
				DoctorID:     doctor.ID,
				Date:         a.Date,
				AssignmentID: a.ID,
			})
		case unit.IsClinicDate(model.PrevDate(a.Date)):
			violations = append(violations, Violation{
				Type:         ViolationClinicConflict,
				Severity:     SeverityLow,
				Message:      fmt.Sprintf("医生 %s 在门诊后一天 %s 值班", doctor.Name, a.Date),
				DoctorID:     doctor.ID,
				Date:         a.Date,
				AssignmentID: a.ID,
			})
		}
	}
	return violations
}

// checkCategory 类别相关检查
// registrar周末medium、junior病房medium、senior/registrar排ED low
func (v *Verifier) checkCategory(doctor *model.Doctor, oncalls []*model.Assignment) []Violation {
	var violations []Violation
	for _, a := range oncalls {
		if doctor.Category == model.CategoryRegistrar && model.IsWeekendDate(a.Date) {
			violations = append(violations, Violation{
				Type:         ViolationRegistrarWeekend,
				Severity:     SeverityMedium,
				Message:      fmt.Sprintf("registrar %s 在周末 %s 值班", doctor.Name, a.Date),
				DoctorID:     doctor.ID,
				Date:         a.Date,
				AssignmentID: a.ID,
			})
		}
		if doctor.Category == model.CategoryJunior && model.IsWardPost(a.Post) {
			violations = append(violations, Violation{
				Type:         ViolationJuniorWard,
				Severity:     SeverityMedium,
				Message:      fmt.Sprintf("junior %s 在 %s 被分配到病房岗位 %s", doctor.Name, a.Date, a.Post),
				DoctorID:     doctor.ID,
				Date:         a.Date,
				AssignmentID: a.ID,
			})
		}
		if (doctor.Category == model.CategorySenior || doctor.Category == model.CategoryRegistrar) &&
			model.IsEDPost(a.Post) {
			violations = append(violations, Violation{
				Type:         ViolationEDAssignment,
				Severity:     SeverityLow,
				Message:      fmt.Sprintf("%s %s 在 %s 被分配到ED岗位 %s", doctor.Category, doctor.Name, a.Date, a.Post),
				DoctorID:     doctor.ID,
				Date:         a.Date,
				AssignmentID: a.ID,
			})
		}
	}
	return violations
}

// checkDoubleBooking 同日重复值班检查
func (v *Verifier) checkDoubleBooking(doctor *model.Doctor, oncalls []*model.Assignment) []Violation {
	byDate := make(map[string][]*model.Assignment)
	for _, a := range oncalls {
		byDate[a.Date] = append(byDate[a.Date], a)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var violations []Violation
	for _, date := range dates {
		group := byDate[date]
		if len(group) <= 1 {
			continue
		}
		related := make([]uuid.UUID, 0, len(group)-1)
		for _, a := range group[1:] {
			related = append(related, a.ID)
		}
		violations = append(violations, Violation{
			Type:         ViolationDoubleBooking,
			Severity:     SeverityHigh,
			Message:      fmt.Sprintf("医生 %s 在 %s 有 %d 个值班分配", doctor.Name, date, len(group)),
			DoctorID:     doctor.ID,
			Date:         date,
			AssignmentID: group[0].ID,
			Related:      related,
		})
	}
	return violations
}

// checkAvailability 可用性检查（fail-closed）
func (v *Verifier) checkAvailability(doctor *model.Doctor, oncalls []*model.Assignment, idx model.AvailabilityIndex) []Violation {
	var violations []Violation
	for _, a := range oncalls {
		if idx.IsAvailable(doctor.ID, a.Date, a.Post) {
			continue
		}
		violations = append(violations, Violation{
			Type:         ViolationAvailability,
			Severity:     SeverityHigh,
			Message:      fmt.Sprintf("医生 %s 在 %s 对岗位 %s 不可用", doctor.Name, a.Date, a.Post),
			DoctorID:     doctor.ID,
			Date:         a.Date,
			AssignmentID: a.ID,
		})
	}
	return violations
}

// checkUnitOverCoverage 科室超额覆盖检查
// 非门诊日，科室单日值班人数超过 max(1, ceil(0.25×科室人数)) 时
// 产出一条引用全部相关排班ID的违规
func (v *Verifier) checkUnitOverCoverage(in *Input, doctorMap map[uuid.UUID]*model.Doctor) []Violation {
	unitSize := make(map[uuid.UUID]int)
	for _, d := range in.Doctors {
		if d.IsActive() {
			unitSize[d.UnitID]++
		}
	}

	byDate := model.AssignmentsByDate(in.Assignments)

	var violations []Violation
	for _, date := range in.Period.Dates() {
		perUnit := make(map[uuid.UUID][]*model.Assignment)
		seen := make(map[uuid.UUID]bool)
		for _, a := range byDate[date] {
			if !a.IsOncall() || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			d := doctorMap[a.DoctorID]
			if d == nil {
				continue
			}
			perUnit[d.UnitID] = append(perUnit[d.UnitID], a)
		}

		for _, u := range in.Units {
			if u.IsClinicDate(date) {
				continue
			}
			group := perUnit[u.ID]
			cap := int(math.Ceil(0.25 * float64(unitSize[u.ID])))
			if cap < 1 {
				cap = 1
			}

			// 按医生去重后计数
			doctors := make(map[uuid.UUID]bool)
			for _, a := range group {
				doctors[a.DoctorID] = true
			}
			if len(doctors) <= cap {
				continue
			}

			related := make([]uuid.UUID, 0, len(group))
			for _, a := range group {
				related = append(related, a.ID)
			}
			sort.Slice(related, func(i, j int) bool { return related[i].String() < related[j].String() })

			violations = append(violations, Violation{
				Type:     ViolationUnitOverCoverage,
				Severity: SeverityLow,
				Message: fmt.Sprintf("科室 %s 在 %s 有 %d 人值班，超过上限 %d",
					u.Name, date, len(doctors), cap),
				Date:    date,
				Related: related,
			})
		}
	}
	return violations
}

// checkStandbyPairing 待命周末配对检查
// 按所属周六分组，周六与周日的待命医生不一致时产出medium违规
func (v *Verifier) checkStandbyPairing(in *Input) []Violation {
	type weekend struct {
		saturday *model.Assignment
		sunday   *model.Assignment
	}
	weekends := make(map[string]*weekend)

	for _, a := range in.Assignments {
		if !model.IsStandbyPost(a.Post) {
			continue
		}
		var key string
		switch {
		case model.IsSaturday(a.Date):
			key = a.Date
		case model.IsSunday(a.Date):
			key = model.PrevDate(a.Date)
		default:
			continue
		}
		w := weekends[key]
		if w == nil {
			w = &weekend{}
			weekends[key] = w
		}
		if model.IsSaturday(a.Date) {
			w.saturday = a
		} else {
			w.sunday = a
		}
	}

	keys := make([]string, 0, len(weekends))
	for k := range weekends {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var violations []Violation
	for _, k := range keys {
		w := weekends[k]
		if w.saturday == nil || w.sunday == nil {
			continue
		}
		if w.saturday.DoctorID == w.sunday.DoctorID {
			continue
		}
		violations = append(violations, Violation{
			Type:         ViolationStandbyPairing,
			Severity:     SeverityMedium,
			Message:      fmt.Sprintf("周末 %s 的待命两天医生不一致", k),
			Date:         k,
			AssignmentID: w.saturday.ID,
			Related:      []uuid.UUID{w.sunday.ID},
		})
	}
	return violations
}

// checkCoverage 覆盖检查
// 周期内每个适用的非门诊岗位每天恰好一次分配
func (v *Verifier) checkCoverage(in *Input) []Violation {
	filled := make(map[string]int)
	for _, a := range in.Assignments {
		if a.IsOncall() {
			filled[a.Date+"/"+a.Post]++
		}
	}

	var violations []Violation
	for _, date := range in.Period.Dates() {
		for _, p := range in.Posts {
			if model.IsClinicPost(p.Name) || !p.AppliesOn(date) {
				continue
			}
			count := filled[date+"/"+p.Name]
			if count == 1 {
				continue
			}

			msg := fmt.Sprintf("%s 的岗位 %s 未分配", date, p.Name)
			if count > 1 {
				msg = fmt.Sprintf("%s 的岗位 %s 被分配了 %d 次", date, p.Name, count)
			}
			violations = append(violations, Violation{
				Type:     ViolationCoverage,
				Severity: SeverityHigh,
				Message:  msg,
				Date:     date,
			})
		}
	}
	return violations
}

// sortedOncalls 过滤出值班分配并按日期升序排列
func sortedOncalls(assignments []*model.Assignment) []*model.Assignment {
	var oncalls []*model.Assignment
	for _, a := range assignments {
		if a.IsOncall() {
			oncalls = append(oncalls, a)
		}
	}
	sort.Slice(oncalls, func(i, j int) bool {
		if oncalls[i].Date != oncalls[j].Date {
			return oncalls[i].Date < oncalls[j].Date
		}
		return oncalls[i].Post < oncalls[j].Post
	})
	return oncalls
}
