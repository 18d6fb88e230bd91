package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/internal/jobs"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
)

// stubSolver 返回固定结果的求解器
type stubSolver struct{}

func (stubSolver) Solve(ctx context.Context, p *solver.Problem) (*solver.Result, error) {
	assignments := []*model.Assignment{
		model.NewAssignment(p.Doctors[0].ID, p.Period.StartDate, "ED1"),
	}
	return &solver.Result{
		Assignments: assignments,
		Statistics:  solver.BuildStatistics(assignments, solver.StatusOptimal, 0),
		Success:     true,
	}, nil
}

// newTestHandler 构造使用stub求解器的处理器
func newTestHandler() *RosterHandler {
	return NewRosterHandler(jobs.NewManager(stubSolver{}, jobs.NoopSink{}, time.Hour))
}

// postJSON 构造JSON POST请求并执行处理函数
func postJSON(t *testing.T, fn http.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

// newRequestFixture 构造最小可用的排班生成请求
func newRequestFixture() GenerateRequest {
	unit := &model.Unit{BaseModel: model.NewBaseModel(), Name: "内科"}
	doctor := &model.Doctor{
		BaseModel: model.NewBaseModel(),
		Name:      "张三",
		UnitID:    unit.ID,
		Category:  model.CategoryJunior,
		Active:    true,
	}
	post := &model.Post{BaseModel: model.NewBaseModel(), Name: "ED1", Applicability: model.PostBoth}

	req := GenerateRequest{
		PeriodID:  uuid.New().String(),
		StartDate: "2025-08-04",
		EndDate:   "2025-08-05",
		Doctors:   []*model.Doctor{doctor},
		Units:     []*model.Unit{unit},
		Posts:     []*model.Post{post},
	}
	for _, date := range []string{"2025-08-04", "2025-08-05"} {
		req.Availability = append(req.Availability, model.AvailabilityRecord{
			DoctorID: doctor.ID, Date: date, Post: post.Name, Available: true,
		})
	}
	return req
}

// TestGenerate_AsyncLifecycle 测试提交作业后可轮询到完成结果
func TestGenerate_AsyncLifecycle(t *testing.T) {
	h := newTestHandler()

	rec := postJSON(t, h.Generate, "/api/v1/roster/generate", newRequestFixture())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected job_id in response")
	}
	if resp.Status != string(model.JobPending) && resp.Status != string(model.JobRunning) {
		t.Errorf("unexpected initial status %q", resp.Status)
	}

	// 轮询状态直到作业完成
	deadline := time.Now().Add(3 * time.Second)
	var status JobStatusResponse
	for {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/roster/jobs?job_id="+resp.JobID, nil)
		poll := httptest.NewRecorder()
		h.JobStatus(poll, req)
		if poll.Code != http.StatusOK {
			t.Fatalf("status query failed: %d", poll.Code)
		}
		if err := json.Unmarshal(poll.Body.Bytes(), &status); err != nil {
			t.Fatalf("unmarshal status: %v", err)
		}
		if status.Status == string(model.JobCompleted) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete, status %q", status.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if status.Result == nil {
		t.Fatal("completed job should carry result")
	}
	if len(status.Result.Assignments) != 1 {
		t.Errorf("expected 1 assignment, got %d", len(status.Result.Assignments))
	}
}

// TestGenerate_ValidationFailure 测试缺失字段的请求被拒绝
func TestGenerate_ValidationFailure(t *testing.T) {
	h := newTestHandler()

	rec := postJSON(t, h.Generate, "/api/v1/roster/generate", GenerateRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body["code"] != "VALIDATION_FAILED" {
		t.Errorf("expected VALIDATION_FAILED, got %v", body["code"])
	}
}

// TestGenerate_MethodNotAllowed 测试非POST请求被拒绝
func TestGenerate_MethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster/generate", nil)
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for GET, got %d", rec.Code)
	}
}

// TestJobStatus_NotFound 测试查询不存在的作业
func TestJobStatus_NotFound(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster/jobs?job_id="+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	h.JobStatus(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// TestVerify_ReportsRestViolation 测试连续两天值班被校验端点标记
func TestVerify_ReportsRestViolation(t *testing.T) {
	h := newTestHandler()

	unit := &model.Unit{BaseModel: model.NewBaseModel(), Name: "外科"}
	doctor := &model.Doctor{
		BaseModel: model.NewBaseModel(),
		Name:      "李四",
		UnitID:    unit.ID,
		Category:  model.CategorySenior,
		Active:    true,
	}

	req := VerifyRequest{
		StartDate: "2025-08-04",
		EndDate:   "2025-08-06",
		Doctors:   []*model.Doctor{doctor},
		Units:     []*model.Unit{unit},
		Assignments: []*model.Assignment{
			model.NewAssignment(doctor.ID, "2025-08-04", "Ward3"),
			model.NewAssignment(doctor.ID, "2025-08-05", "Ward3"),
		},
	}

	rec := postJSON(t, h.Verify, "/api/v1/roster/verify", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp VerifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Valid {
		t.Error("schedule with back-to-back oncall should not be valid")
	}
	if resp.BySeverity["high"] == 0 {
		t.Error("expected at least one high severity violation")
	}
}

// TestVerify_CleanRoster 测试无违规排班返回valid
func TestVerify_CleanRoster(t *testing.T) {
	h := newTestHandler()

	unit := &model.Unit{BaseModel: model.NewBaseModel(), Name: "外科"}
	doctor := &model.Doctor{
		BaseModel: model.NewBaseModel(),
		Name:      "王五",
		UnitID:    unit.ID,
		Category:  model.CategoryJunior,
		Active:    true,
	}

	req := VerifyRequest{
		StartDate: "2025-08-04",
		EndDate:   "2025-08-06",
		Doctors:   []*model.Doctor{doctor},
		Units:     []*model.Unit{unit},
		Assignments: []*model.Assignment{
			model.NewAssignment(doctor.ID, "2025-08-04", "ED1"),
			model.NewAssignment(doctor.ID, "2025-08-06", "ED1"),
		},
	}

	rec := postJSON(t, h.Verify, "/api/v1/roster/verify", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp VerifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Valid {
		t.Errorf("expected valid schedule, got violations: %+v", resp.Violations)
	}
	if resp.Violations == nil {
		t.Error("violations should be an empty array, not null")
	}
}

// TestRulesLibrary 测试规则库端点返回完整规则目录
func TestRulesLibrary(t *testing.T) {
	h := NewRulesHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules/library", nil)
	rec := httptest.NewRecorder()
	h.Library(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Library []struct {
			Name      string `json:"name"`
			Type      string `json:"type"`
			Relaxable bool   `json:"relaxable"`
		} `json:"library"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Library) == 0 {
		t.Fatal("library should not be empty")
	}

	byName := make(map[string]struct {
		Type      string
		Relaxable bool
	})
	for _, rule := range resp.Library {
		byName[rule.Name] = struct {
			Type      string
			Relaxable bool
		}{rule.Type, rule.Relaxable}
	}
	if r, ok := byName["coverage"]; !ok || r.Type != "hard" || !r.Relaxable {
		t.Errorf("coverage rule should be relaxable hard, got %+v", r)
	}
	if r, ok := byName["double_booking"]; !ok || r.Type != "hard" || r.Relaxable {
		t.Errorf("double_booking rule should be non-relaxable hard, got %+v", r)
	}
}

// TestStatsWorkload 测试工作量统计端点
func TestStatsWorkload(t *testing.T) {
	h := NewStatsHandler()

	unit := &model.Unit{BaseModel: model.NewBaseModel(), Name: "内科"}
	busy := &model.Doctor{BaseModel: model.NewBaseModel(), Name: "忙碌", UnitID: unit.ID, Category: model.CategoryJunior, Active: true}
	idle := &model.Doctor{BaseModel: model.NewBaseModel(), Name: "空闲", UnitID: unit.ID, Category: model.CategoryJunior, Active: true}

	req := WorkloadRequest{
		ReferenceDate: "2025-08-01",
		Doctors:       []*model.Doctor{busy, idle},
		History: []*model.Assignment{
			model.NewAssignment(busy.ID, "2025-07-07", "ED1"),
			model.NewAssignment(busy.ID, "2025-07-14", "ED1"),
		},
	}

	rec := postJSON(t, h.Workload, "/api/v1/stats/workload", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp WorkloadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Doctors) != 2 {
		t.Fatalf("expected 2 doctors, got %d", len(resp.Doctors))
	}
	counts := make(map[string]int)
	for _, d := range resp.Doctors {
		if d.Workload == nil {
			t.Fatalf("doctor %s missing workload", d.Name)
		}
		counts[d.Name] = d.Workload.WeekdayOncall
	}
	if counts["忙碌"] != 2 || counts["空闲"] != 0 {
		t.Errorf("unexpected weekday oncall counts: %v", counts)
	}
	if resp.Distribution == nil || resp.Distribution.DoctorCount != 2 {
		t.Errorf("distribution should cover 2 doctors: %+v", resp.Distribution)
	}
}

// TestStatsCoverage 测试覆盖率统计端点
func TestStatsCoverage(t *testing.T) {
	h := NewStatsHandler()

	doctorID := uuid.New()
	post := &model.Post{BaseModel: model.NewBaseModel(), Name: "ED1", Applicability: model.PostBoth}

	req := CoverageRequest{
		StartDate: "2025-08-04",
		EndDate:   "2025-08-05",
		Posts:     []*model.Post{post},
		Assignments: []*model.Assignment{
			model.NewAssignment(doctorID, "2025-08-04", "ED1"),
		},
	}

	rec := postJSON(t, h.Coverage, "/api/v1/stats/coverage", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TotalSlots      int     `json:"total_slots"`
		AssignedSlots   int     `json:"assigned_slots"`
		OverallCoverage float64 `json:"overall_coverage"`
		UncoveredSlots  []struct {
			Date string `json:"date"`
			Post string `json:"post"`
		} `json:"uncovered_slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.TotalSlots != 2 || resp.AssignedSlots != 1 {
		t.Errorf("expected 1/2 slots assigned, got %d/%d", resp.AssignedSlots, resp.TotalSlots)
	}
	if resp.OverallCoverage != 50 {
		t.Errorf("expected 50%% coverage, got %v", resp.OverallCoverage)
	}
	if len(resp.UncoveredSlots) != 1 || resp.UncoveredSlots[0].Date != "2025-08-05" {
		t.Errorf("unexpected uncovered slots: %+v", resp.UncoveredSlots)
	}
}
