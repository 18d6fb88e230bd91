// Package constraint 定义排班规则接口和管理器
package constraint

import (
	"math"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/pkg/model"
)

// Type 规则类型标识
type Type string

const (
	// 硬规则类型
	TypeCoverage           Type = "coverage"
	TypeAvailability       Type = "availability"
	TypeDoubleBooking      Type = "double_booking"
	TypeStandbyExclusivity Type = "standby_exclusivity"
	TypeStandbyCooldown    Type = "standby_cooldown"

	// 软规则类型
	TypeRest             Type = "rest"
	TypeGapSpacing       Type = "gap_spacing"
	TypeEDPreference     Type = "ed_preference"
	TypeStandbyLoad      Type = "standby_load"
	TypeMinOneCoverage   Type = "min_one_coverage"
	TypeRegistrarWeekend Type = "registrar_weekend"
	TypeUnitOverCoverage Type = "unit_over_coverage"
	TypeJuniorWard       Type = "junior_ward"
	TypeClinicProximity  Type = "clinic_proximity"
)

// Category 规则类别
type Category string

const (
	CategoryHard Category = "hard" // 硬规则（必须满足）
	CategorySoft Category = "soft" // 软规则（计入目标函数）
)

// Constraint 规则接口
type Constraint interface {
	// Name 返回规则名称
	Name() string

	// Type 返回规则类型
	Type() Type

	// Category 返回规则类别
	Category() Category

	// Weight 返回规则权重
	Weight() float64

	// Relaxable 松弛阶段是否可降级为软规则
	Relaxable() bool

	// Evaluate 评估整个排班方案
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty float64, details []ViolationDetail)

	// EvaluateAssignment 评估单个分配（在当前方案上追加该分配的可行性/代价）
	EvaluateAssignment(ctx *Context, assignment *model.Assignment) (valid bool, penalty float64)
}

// ViolationDetail 规则违反详情
type ViolationDetail struct {
	ConstraintType Type      `json:"constraint_type"`
	ConstraintName string    `json:"constraint_name"`
	DoctorID       uuid.UUID `json:"doctor_id,omitempty"`
	Date           string    `json:"date,omitempty"`
	Post           string    `json:"post,omitempty"`
	Message        string    `json:"message"`
	Severity       string    `json:"severity"` // error/warning
	Penalty        float64   `json:"penalty"`
}

// Context 排班上下文
// 承载一次求解的全部输入快照和当前方案的索引缓存
type Context struct {
	PeriodID uuid.UUID       `json:"period_id"`
	Period   model.DateRange `json:"period"`

	Doctors      []*model.Doctor         `json:"doctors"`
	Units        []*model.Unit           `json:"units"`
	Posts        []*model.Post           `json:"posts"`
	Availability model.AvailabilityIndex `json:"-"`
	Weights      model.SolverWeights     `json:"weights"`

	// 当前排班结果
	Assignments []*model.Assignment `json:"assignments"`

	// 索引缓存
	doctorMap         map[uuid.UUID]*model.Doctor
	unitMap           map[uuid.UUID]*model.Unit
	postMap           map[string]*model.Post
	unitDoctorCount   map[uuid.UUID]int
	assignmentsByDoc  map[uuid.UUID][]*model.Assignment
	assignmentsByDate map[string][]*model.Assignment
	slotOccupied      map[slotKey]*model.Assignment
}

type slotKey struct {
	date string
	post string
}

// NewContext 创建排班上下文
func NewContext(periodID uuid.UUID, period model.DateRange) *Context {
	c := &Context{
		PeriodID:     periodID,
		Period:       period,
		Availability: make(model.AvailabilityIndex),
		Weights:      model.DefaultSolverWeights(),
	}
	c.doctorMap = make(map[uuid.UUID]*model.Doctor)
	c.unitMap = make(map[uuid.UUID]*model.Unit)
	c.postMap = make(map[string]*model.Post)
	c.unitDoctorCount = make(map[uuid.UUID]int)
	c.rebuildAssignmentIndexes()
	return c
}

// SetDoctors 设置医生列表
func (c *Context) SetDoctors(doctors []*model.Doctor) {
	c.Doctors = doctors
	c.doctorMap = make(map[uuid.UUID]*model.Doctor)
	c.unitDoctorCount = make(map[uuid.UUID]int)
	for _, d := range doctors {
		c.doctorMap[d.ID] = d
		if d.IsActive() {
			c.unitDoctorCount[d.UnitID]++
		}
	}
}

// SetUnits 设置科室列表
func (c *Context) SetUnits(units []*model.Unit) {
	c.Units = units
	c.unitMap = make(map[uuid.UUID]*model.Unit)
	for _, u := range units {
		c.unitMap[u.ID] = u
	}
}

// SetPosts 设置岗位列表
func (c *Context) SetPosts(posts []*model.Post) {
	c.Posts = posts
	c.postMap = make(map[string]*model.Post)
	for _, p := range posts {
		c.postMap[p.Name] = p
	}
}

// SetAssignments 设置排班分配
func (c *Context) SetAssignments(assignments []*model.Assignment) {
	c.Assignments = assignments
	c.rebuildAssignmentIndexes()
}

// AddAssignment 添加排班分配
func (c *Context) AddAssignment(a *model.Assignment) {
	c.Assignments = append(c.Assignments, a)
	c.assignmentsByDoc[a.DoctorID] = append(c.assignmentsByDoc[a.DoctorID], a)
	c.assignmentsByDate[a.Date] = append(c.assignmentsByDate[a.Date], a)
	if a.IsOncall() {
		c.slotOccupied[slotKey{date: a.Date, post: a.Post}] = a
	}
}

// RemoveAssignment 移除排班分配
func (c *Context) RemoveAssignment(id uuid.UUID) {
	for i, a := range c.Assignments {
		if a.ID == id {
			c.Assignments = append(c.Assignments[:i], c.Assignments[i+1:]...)
			break
		}
	}
	c.rebuildAssignmentIndexes()
}

// rebuildAssignmentIndexes 重建分配索引
func (c *Context) rebuildAssignmentIndexes() {
	c.assignmentsByDoc = make(map[uuid.UUID][]*model.Assignment)
	c.assignmentsByDate = make(map[string][]*model.Assignment)
	c.slotOccupied = make(map[slotKey]*model.Assignment)
	for _, a := range c.Assignments {
		c.assignmentsByDoc[a.DoctorID] = append(c.assignmentsByDoc[a.DoctorID], a)
		c.assignmentsByDate[a.Date] = append(c.assignmentsByDate[a.Date], a)
		if a.IsOncall() {
			c.slotOccupied[slotKey{date: a.Date, post: a.Post}] = a
		}
	}
}

// GetDoctor 获取医生
func (c *Context) GetDoctor(id uuid.UUID) *model.Doctor {
	return c.doctorMap[id]
}

// GetUnit 获取科室
func (c *Context) GetUnit(id uuid.UUID) *model.Unit {
	return c.unitMap[id]
}

// GetPost 按名称获取岗位
func (c *Context) GetPost(name string) *model.Post {
	return c.postMap[name]
}

// UnitDoctorCount 获取科室的在职医生数
func (c *Context) UnitDoctorCount(unitID uuid.UUID) int {
	return c.unitDoctorCount[unitID]
}

// UnitOverCoverageCap 科室单日值班上限
// cap = max(1, ceil(0.25 × 科室医生数))
func (c *Context) UnitOverCoverageCap(unitID uuid.UUID) int {
	n := c.unitDoctorCount[unitID]
	cap := int(math.Ceil(0.25 * float64(n)))
	if cap < 1 {
		cap = 1
	}
	return cap
}

// GetDoctorAssignments 获取医生的所有排班
func (c *Context) GetDoctorAssignments(docID uuid.UUID) []*model.Assignment {
	return c.assignmentsByDoc[docID]
}

// GetDateAssignments 获取某日期的所有排班
func (c *Context) GetDateAssignments(date string) []*model.Assignment {
	return c.assignmentsByDate[date]
}

// SlotAssignment 获取某槽位（日期+岗位）的当前分配
func (c *Context) SlotAssignment(date, post string) *model.Assignment {
	return c.slotOccupied[slotKey{date: date, post: post}]
}

// HasOncallOn 医生在某日是否已有值班分配
func (c *Context) HasOncallOn(docID uuid.UUID, date string) bool {
	for _, a := range c.assignmentsByDoc[docID] {
		if a.Date == date && a.IsOncall() {
			return true
		}
	}
	return false
}

// OncallDates 医生在当前方案中的值班日期集合
func (c *Context) OncallDates(docID uuid.UUID) map[string]bool {
	dates := make(map[string]bool)
	for _, a := range c.assignmentsByDoc[docID] {
		if a.IsOncall() {
			dates[a.Date] = true
		}
	}
	return dates
}

// StandbyWeekendCount 医生在当前方案中被分配的待命周末数
// 按所属周六日期去重
func (c *Context) StandbyWeekendCount(docID uuid.UUID) int {
	weekends := make(map[string]bool)
	for _, a := range c.assignmentsByDoc[docID] {
		if !model.IsStandbyPost(a.Post) {
			continue
		}
		weekends[OwningSaturday(a.Date)] = true
	}
	return len(weekends)
}

// UnitOncallCount 某科室在某日的值班医生数
func (c *Context) UnitOncallCount(unitID uuid.UUID, date string) int {
	count := 0
	seen := make(map[uuid.UUID]bool)
	for _, a := range c.assignmentsByDate[date] {
		if !a.IsOncall() || seen[a.DoctorID] {
			continue
		}
		d := c.doctorMap[a.DoctorID]
		if d != nil && d.UnitID == unitID {
			count++
			seen[a.DoctorID] = true
		}
	}
	return count
}

// OwningSaturday 返回某周末日期所属的周六
// 周日归属前一天的周六，其他日期原样返回
func OwningSaturday(date string) string {
	if model.IsSunday(date) {
		return model.PrevDate(date)
	}
	return date
}

// Result 规则评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   float64           `json:"total_penalty"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
}
