// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/medschedulr/medschedulr/internal/jobs"
	"github.com/medschedulr/medschedulr/internal/metrics"
	"github.com/medschedulr/medschedulr/pkg/errors"
	"github.com/medschedulr/medschedulr/pkg/model"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint"
	"github.com/medschedulr/medschedulr/pkg/scheduler/constraint/builtin"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
	"github.com/medschedulr/medschedulr/pkg/stats"
	"github.com/medschedulr/medschedulr/pkg/swap"
	"github.com/medschedulr/medschedulr/pkg/validator"
)

// RosterHandler 排班处理器
type RosterHandler struct {
	jobs     *jobs.Manager
	verifier *validator.Verifier
}

// NewRosterHandler 创建排班处理器
func NewRosterHandler(jobManager *jobs.Manager) *RosterHandler {
	return &RosterHandler{
		jobs:     jobManager,
		verifier: validator.NewVerifier(),
	}
}

// GenerateRequest 排班生成请求
// History为已发布的历史排班分配，用于求解前重算工作量计数
type GenerateRequest struct {
	PeriodID     string                     `json:"period_id"`
	StartDate    string                     `json:"start_date"`
	EndDate      string                     `json:"end_date"`
	Doctors      []*model.Doctor            `json:"doctors"`
	Units        []*model.Unit              `json:"units"`
	Posts        []*model.Post              `json:"posts"`
	Availability []model.AvailabilityRecord `json:"availability"`
	History      []*model.Assignment        `json:"history,omitempty"`
	Weights      *model.SolverWeights       `json:"weights,omitempty"`
}

// GenerateResponse 排班生成响应
// 求解异步进行，调用方用job_id轮询状态
type GenerateResponse struct {
	JobID    string `json:"job_id"`
	PeriodID string `json:"period_id"`
	Status   string `json:"status"`
}

// Generate 提交排班生成作业
func (h *RosterHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	if appErr := validateGenerateRequest(&req); appErr != nil {
		respondError(w, appErr)
		return
	}

	periodID, err := uuid.Parse(req.PeriodID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的周期ID格式"))
		return
	}

	// 求解前重算工作量计数，历史记录以周期开始日为参照
	if len(req.History) > 0 {
		opts := stats.DefaultScorerOptions()
		if ref, err := model.ParseDate(req.StartDate); err == nil {
			opts.ReferenceDate = ref
		}
		stats.NewWorkloadScorer(opts).Score(req.Doctors, req.History)
	}

	// 权重里的零值会被Normalize回退为兜底值，传0无法停用某项惩罚
	weights := model.DefaultSolverWeights()
	if req.Weights != nil {
		weights = *req.Weights
	}

	problem := &solver.Problem{
		PeriodID:     periodID,
		Period:       model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate},
		Doctors:      req.Doctors,
		Units:        req.Units,
		Posts:        req.Posts,
		Availability: req.Availability,
		Weights:      weights,
	}

	job, err := h.jobs.Submit(r.Context(), problem)
	if err != nil {
		respondAnyError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, GenerateResponse{
		JobID:    job.ID.String(),
		PeriodID: job.PeriodID.String(),
		Status:   string(job.Status),
	})
}

// JobStatusResponse 作业状态响应
type JobStatusResponse struct {
	JobID        string         `json:"job_id"`
	PeriodID     string         `json:"period_id"`
	Status       string         `json:"status"`
	Message      string         `json:"message,omitempty"`
	SolverStatus string         `json:"solver_status,omitempty"`
	Result       *solver.Result `json:"result,omitempty"`
}

// JobStatus 查询作业状态
// 已完成的作业同时返回求解结果
func (h *RosterHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	jobID, appErr := parseJobID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	job, err := h.jobs.Get(jobID)
	if err != nil {
		respondAnyError(w, err)
		return
	}

	resp := JobStatusResponse{
		JobID:        job.ID.String(),
		PeriodID:     job.PeriodID.String(),
		Status:       string(job.Status),
		Message:      job.Message,
		SolverStatus: job.SolverState,
	}
	if job.Status == model.JobCompleted {
		if result, err := h.jobs.GetResult(jobID); err == nil {
			resp.Result = result
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// CancelJob 取消作业
func (h *RosterHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	jobID, appErr := parseJobID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	if err := h.jobs.Cancel(jobID); err != nil {
		respondAnyError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID.String(),
		"status": string(model.JobCancelled),
	})
}

// VerifyRequest 规则校验请求
type VerifyRequest struct {
	PeriodID     string                     `json:"period_id,omitempty"`
	StartDate    string                     `json:"start_date"`
	EndDate      string                     `json:"end_date"`
	Doctors      []*model.Doctor            `json:"doctors"`
	Units        []*model.Unit              `json:"units"`
	Posts        []*model.Post              `json:"posts,omitempty"`
	Availability []model.AvailabilityRecord `json:"availability,omitempty"`
	Assignments  []*model.Assignment        `json:"assignments"`
}

// VerifyResponse 规则校验响应
type VerifyResponse struct {
	Valid      bool                  `json:"valid"` // 无high违规
	Total      int                   `json:"total"`
	BySeverity map[string]int        `json:"by_severity"`
	Violations []validator.Violation `json:"violations"`
}

// Verify 对排班做独立规则校验
func (h *RosterHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	period := model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate}
	if err := period.Validate(); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidTimeRange, "排班周期无效"))
		return
	}

	in := &validator.Input{
		Period:      period,
		Doctors:     req.Doctors,
		Units:       req.Units,
		Posts:       req.Posts,
		Assignments: req.Assignments,
	}
	if len(req.Availability) > 0 {
		in.Availability = model.BuildAvailabilityIndex(req.Availability)
	}

	violations := h.verifier.Verify(in)
	if violations == nil {
		violations = []validator.Violation{}
	}

	bySeverity := make(map[string]int)
	for _, v := range violations {
		bySeverity[string(v.Severity)]++
	}
	if req.PeriodID != "" {
		for _, sev := range []string{"high", "medium", "low"} {
			metrics.SetVerificationViolations(req.PeriodID, sev, bySeverity[sev])
		}
	}

	respondJSON(w, http.StatusOK, VerifyResponse{
		Valid:      bySeverity["high"] == 0,
		Total:      len(violations),
		BySeverity: bySeverity,
		Violations: violations,
	})
}

// SwapRequest 换班评估请求
type SwapRequest struct {
	StartDate        string                     `json:"start_date"`
	EndDate          string                     `json:"end_date"`
	Doctors          []*model.Doctor            `json:"doctors"`
	Units            []*model.Unit              `json:"units"`
	Posts            []*model.Post              `json:"posts,omitempty"`
	Availability     []model.AvailabilityRecord `json:"availability,omitempty"`
	Assignments      []*model.Assignment        `json:"assignments"`
	SourceAssignment string                     `json:"source_assignment"` // 待替换的排班ID
	TargetDoctor     string                     `json:"target_doctor"`
	TargetAssignment string                     `json:"target_assignment,omitempty"` // 互换时的目标排班ID
}

// EvaluateSwap 评估一次人工改班
func (h *RosterHandler) EvaluateSwap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	ctx := constraint.NewContext(uuid.New(), model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate})
	ctx.SetDoctors(req.Doctors)
	ctx.SetUnits(req.Units)
	ctx.SetPosts(req.Posts)
	if len(req.Availability) > 0 {
		ctx.Availability = model.BuildAvailabilityIndex(req.Availability)
	}
	ctx.SetAssignments(req.Assignments)

	var source, target *model.Assignment
	for _, a := range req.Assignments {
		if a.ID.String() == req.SourceAssignment {
			source = a
		}
		if req.TargetAssignment != "" && a.ID.String() == req.TargetAssignment {
			target = a
		}
	}
	if source == nil {
		respondError(w, errors.InvalidInput("source_assignment", "排班分配不存在"))
		return
	}

	var targetDoc *model.Doctor
	for _, d := range req.Doctors {
		if d.ID.String() == req.TargetDoctor {
			targetDoc = d
		}
	}
	if targetDoc == nil {
		respondError(w, errors.InvalidInput("target_doctor", "医生不存在"))
		return
	}

	cm := builtin.BuildManager(builtin.PhaseStrict, ctx.Weights)
	evaluator := swap.NewSwapEvaluator(cm)
	evaluation := evaluator.EvaluateSwap(ctx, &swap.SwapRequest{
		SourceAssignment: source,
		TargetDoctor:     targetDoc,
		TargetAssignment: target,
	})

	respondJSON(w, http.StatusOK, evaluation)
}

// validateGenerateRequest 验证生成请求
func validateGenerateRequest(req *GenerateRequest) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if req.PeriodID == "" {
		ve.Add("period_id", "周期ID不能为空")
	}
	if req.StartDate == "" {
		ve.Add("start_date", "开始日期不能为空")
	}
	if req.EndDate == "" {
		ve.Add("end_date", "结束日期不能为空")
	}
	if len(req.Doctors) == 0 {
		ve.Add("doctors", "医生列表不能为空")
	}
	if len(req.Posts) == 0 {
		ve.Add("posts", "岗位列表不能为空")
	}

	if req.StartDate != "" {
		if _, err := model.ParseDate(req.StartDate); err != nil {
			ve.Add("start_date", "日期格式无效，应为YYYY-MM-DD")
		}
	}
	if req.EndDate != "" {
		if _, err := model.ParseDate(req.EndDate); err != nil {
			ve.Add("end_date", "日期格式无效，应为YYYY-MM-DD")
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// parseJobID 从查询参数解析作业ID
func parseJobID(r *http.Request) (uuid.UUID, *errors.AppError) {
	raw := r.URL.Query().Get("job_id")
	if raw == "" {
		return uuid.Nil, errors.New(errors.CodeInvalidInput, "缺少job_id参数")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的作业ID格式")
	}
	return id, nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// respondAnyError 返回任意错误，AppError保留其错误码
func respondAnyError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		respondError(w, appErr)
		return
	}
	respondError(w, errors.Wrap(err, errors.CodeInternal, "内部错误"))
}
