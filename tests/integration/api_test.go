// Package integration 提供API集成测试
package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/internal/handler"
	"github.com/medschedulr/medschedulr/internal/jobs"
	"github.com/medschedulr/medschedulr/internal/middleware"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
)

// newMux 搭建与生产一致的路由与中间件链
func newMux() http.Handler {
	jobManager := jobs.NewManager(solver.NewTwoPhaseSolver(), jobs.NoopSink{}, time.Hour)
	rosterHandler := handler.NewRosterHandler(jobManager)
	statsHandler := handler.NewStatsHandler()
	rulesHandler := handler.NewRulesHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"medschedulr"}`))
	})
	mux.HandleFunc("/api/v1/roster/generate", rosterHandler.Generate)
	mux.HandleFunc("/api/v1/roster/jobs", rosterHandler.JobStatus)
	mux.HandleFunc("/api/v1/roster/jobs/cancel", rosterHandler.CancelJob)
	mux.HandleFunc("/api/v1/roster/verify", rosterHandler.Verify)
	mux.HandleFunc("/api/v1/roster/swap", rosterHandler.EvaluateSwap)
	mux.HandleFunc("/api/v1/rules/library", rulesHandler.Library)
	mux.HandleFunc("/api/v1/stats/workload", statsHandler.Workload)
	mux.HandleFunc("/api/v1/stats/coverage", statsHandler.Coverage)

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recovery,
	)
}

// TestRouting 测试各端点的方法与参数约束
func TestRouting(t *testing.T) {
	h := newMux()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"健康检查", "GET", "/health", "", http.StatusOK},
		{"规则库", "GET", "/api/v1/rules/library", "", http.StatusOK},
		{"规则库拒绝POST", "POST", "/api/v1/rules/library", "", http.StatusBadRequest},
		{"生成拒绝GET", "GET", "/api/v1/roster/generate", "", http.StatusBadRequest},
		{"生成空请求体", "POST", "/api/v1/roster/generate", "{}", http.StatusBadRequest},
		{"作业查询缺少参数", "GET", "/api/v1/roster/jobs", "", http.StatusBadRequest},
		{"作业查询无效ID", "GET", "/api/v1/roster/jobs?job_id=not-a-uuid", "", http.StatusBadRequest},
		{"校验空请求体", "POST", "/api/v1/roster/verify", "{}", http.StatusBadRequest},
		{"工作量缺少医生", "POST", "/api/v1/stats/workload", "{}", http.StatusBadRequest},
		{"覆盖率缺少周期", "POST", "/api/v1/stats/coverage", "{}", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Errorf("%s %s: 期望%d, 实际%d: %s",
					tc.method, tc.path, tc.status, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("响应应携带X-Request-ID")
			}
		})
	}
}

// TestErrorResponseFormat 测试错误响应的统一格式
func TestErrorResponseFormat(t *testing.T) {
	h := newMux()

	req := httptest.NewRequest("GET", "/api/v1/roster/jobs?job_id="+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("期望404, 实际%d", rec.Code)
	}
	var body struct {
		Error   bool   `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析错误响应失败: %v", err)
	}
	if !body.Error || body.Code != "JOB_NOT_FOUND" || body.Message == "" {
		t.Errorf("错误响应格式不符: %+v", body)
	}
}

// TestVerifyEndpoint_RoundTrip 测试校验端点的请求响应闭环
func TestVerifyEndpoint_RoundTrip(t *testing.T) {
	h := newMux()

	unit := &model.Unit{BaseModel: model.NewBaseModel(), Name: "内科"}
	doctor := &model.Doctor{
		BaseModel: model.NewBaseModel(),
		Name:      "张三",
		UnitID:    unit.ID,
		Category:  model.CategoryJunior,
		Active:    true,
	}
	payload := map[string]interface{}{
		"start_date": "2025-08-04",
		"end_date":   "2025-08-06",
		"doctors":    []*model.Doctor{doctor},
		"units":      []*model.Unit{unit},
		"assignments": []*model.Assignment{
			model.NewAssignment(doctor.ID, "2025-08-04", "ED1"),
			model.NewAssignment(doctor.ID, "2025-08-05", "ED1"),
		},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/v1/roster/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("期望200, 实际%d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Valid      bool           `json:"valid"`
		Total      int            `json:"total"`
		BySeverity map[string]int `json:"by_severity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	// 连续两天值班违反休息规则
	if resp.Valid {
		t.Error("连续值班的排班不应通过校验")
	}
	if resp.BySeverity["high"] == 0 {
		t.Error("应报告high级别的休息违规")
	}
}
