// MedSchedulr 医生排班引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/medschedulr/medschedulr/internal/config"
	"github.com/medschedulr/medschedulr/internal/database"
	"github.com/medschedulr/medschedulr/internal/handler"
	"github.com/medschedulr/medschedulr/internal/jobs"
	"github.com/medschedulr/medschedulr/internal/metrics"
	"github.com/medschedulr/medschedulr/internal/middleware"
	"github.com/medschedulr/medschedulr/internal/repository"
	"github.com/medschedulr/medschedulr/pkg/logger"
	"github.com/medschedulr/medschedulr/pkg/scheduler/solver"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logFormat := "json"
	if cfg.IsDevelopment() {
		logFormat = "console"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: logFormat,
	})

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("MedSchedulr 排班引擎启动")

	// 数据库连接可选：连不上时作业仍在内存中编排，仅丢失审计与结果落库
	var sink jobs.Sink = jobs.NoopSink{}
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，作业状态仅保留在内存中")
	} else {
		defer db.Close()
		sink = jobs.NewRepositorySink(
			repository.NewJobRepository(db),
			repository.NewScheduleRepository(db),
		)
	}

	// 求解器与作业管理器
	twoPhase := solver.NewTwoPhaseSolver()
	annealCfg := solver.DefaultAnnealConfig()
	annealCfg.MaxIterations = cfg.Solver.MaxIterations
	twoPhase.SetAnnealConfig(annealCfg)

	jobManager := jobs.NewManager(twoPhase, sink, cfg.Solver.JobRetention)

	// 定期清理已完成的过期作业
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := jobManager.Sweep(); n > 0 {
					logger.Info().Int("swept", n).Msg("清理过期作业")
				}
			}
		}
	}()

	// 创建处理器
	rosterHandler := handler.NewRosterHandler(jobManager)
	statsHandler := handler.NewStatsHandler()
	rulesHandler := handler.NewRulesHandler()

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"medschedulr"}`))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "MedSchedulr 排班引擎 API v1",
			"endpoints": {
				"roster": {
					"generate": "POST /api/v1/roster/generate",
					"job_status": "GET /api/v1/roster/jobs?job_id=",
					"cancel": "POST /api/v1/roster/jobs/cancel?job_id=",
					"verify": "POST /api/v1/roster/verify",
					"swap": "POST /api/v1/roster/swap"
				},
				"rules": {
					"library": "GET /api/v1/rules/library"
				},
				"stats": {
					"workload": "POST /api/v1/stats/workload",
					"coverage": "POST /api/v1/stats/coverage"
				}
			}
		}`))
	})

	// 排班 API
	mux.HandleFunc("/api/v1/roster/generate", rosterHandler.Generate)
	mux.HandleFunc("/api/v1/roster/jobs", rosterHandler.JobStatus)
	mux.HandleFunc("/api/v1/roster/jobs/cancel", rosterHandler.CancelJob)
	mux.HandleFunc("/api/v1/roster/verify", rosterHandler.Verify)
	mux.HandleFunc("/api/v1/roster/swap", rosterHandler.EvaluateSwap)

	// 规则库 API
	mux.HandleFunc("/api/v1/rules/library", rulesHandler.Library)

	// 统计分析 API
	mux.HandleFunc("/api/v1/stats/workload", statsHandler.Workload)
	mux.HandleFunc("/api/v1/stats/coverage", statsHandler.Coverage)

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// 中间件执行顺序：requestID -> recovery -> rateLimit -> cors -> logging -> metrics -> handler
	rootHandler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recovery,
		rateLimitMiddleware(float64(cfg.API.RateLimit)),
		corsMiddleware(cfg.API.CORS),
		middleware.Logging,
		middleware.Metrics,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rootHandler,
		ReadTimeout:  cfg.API.Timeout,
		WriteTimeout: 2 * cfg.API.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// rateLimiter 简单的令牌桶限流器
type rateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(requestsPerSecond float64) *rateLimiter {
	return &rateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *rateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(requestsPerSecond float64) func(http.Handler) http.Handler {
	limiter := newRateLimiter(requestsPerSecond)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":   true,
					"code":    "RATE_LIMITED",
					"message": "请求过于频繁，请稍后重试",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware CORS中间件
func corsMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origin := "*"
	if len(cfg.Origins) > 0 {
		origin = cfg.Origins[0]
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
