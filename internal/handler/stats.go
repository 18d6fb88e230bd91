// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/medschedulr/medschedulr/internal/metrics"
	"github.com/medschedulr/medschedulr/pkg/errors"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/stats"
)

// StatsHandler 统计分析处理器
type StatsHandler struct {
	coverage *stats.CoverageAnalyzer
}

// NewStatsHandler 创建统计分析处理器
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{
		coverage: stats.NewCoverageAnalyzer(),
	}
}

// WorkloadRequest 工作量统计请求
// ReferenceDate为空时默认取当前日期
type WorkloadRequest struct {
	PeriodID      string              `json:"period_id,omitempty"`
	ReferenceDate string              `json:"reference_date,omitempty"`
	Doctors       []*model.Doctor     `json:"doctors"`
	History       []*model.Assignment `json:"history"`
}

// DoctorWorkload 单个医生的工作量统计
type DoctorWorkload struct {
	DoctorID    string                  `json:"doctor_id"`
	Name        string                  `json:"name"`
	Category    string                  `json:"category"`
	Workload    *model.WorkloadCounters `json:"workload"`
	LastStandby *string                 `json:"last_standby,omitempty"`
}

// WorkloadResponse 工作量统计响应
type WorkloadResponse struct {
	Doctors      []DoctorWorkload            `json:"doctors"`
	Distribution *stats.WorkloadDistribution `json:"distribution"`
}

// Workload 计算医生工作量计数与公平性分布
func (h *StatsHandler) Workload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req WorkloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Doctors) == 0 {
		respondError(w, errors.InvalidInput("doctors", "医生列表不能为空"))
		return
	}

	opts := stats.DefaultScorerOptions()
	if req.ReferenceDate != "" {
		ref, err := model.ParseDate(req.ReferenceDate)
		if err != nil {
			respondError(w, errors.InvalidInput("reference_date", "日期格式无效，应为YYYY-MM-DD"))
			return
		}
		opts.ReferenceDate = ref
	}

	stats.NewWorkloadScorer(opts).Score(req.Doctors, req.History)
	dist := stats.AnalyzeDistribution(req.Doctors)

	resp := WorkloadResponse{
		Doctors:      make([]DoctorWorkload, 0, len(req.Doctors)),
		Distribution: dist,
	}
	for _, d := range req.Doctors {
		resp.Doctors = append(resp.Doctors, DoctorWorkload{
			DoctorID:    d.ID.String(),
			Name:        d.Name,
			Category:    string(d.Category),
			Workload:    d.Workload,
			LastStandby: d.LastStandby,
		})
	}

	if req.PeriodID != "" {
		metrics.SetFairnessGini(req.PeriodID, "oncall", dist.OncallGini)
	}

	respondJSON(w, http.StatusOK, resp)
}

// CoverageRequest 覆盖率统计请求
type CoverageRequest struct {
	PeriodID    string              `json:"period_id,omitempty"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Posts       []*model.Post       `json:"posts"`
	Assignments []*model.Assignment `json:"assignments"`
}

// Coverage 分析排班周期内的槽位覆盖情况
func (h *StatsHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req CoverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	period := model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate}
	if err := period.Validate(); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidTimeRange, "排班周期无效"))
		return
	}
	if len(req.Posts) == 0 {
		respondError(w, errors.InvalidInput("posts", "岗位列表不能为空"))
		return
	}

	slots := h.coverage.RequiredSlots(period, req.Posts)
	result := h.coverage.Analyze(slots, req.Assignments)

	if req.PeriodID != "" {
		metrics.SetCoverageRate(req.PeriodID, result.OverallCoverage)
	}

	respondJSON(w, http.StatusOK, result)
}
