package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"prudentia/internal/assessment"
	"prudentia/internal/basel"
	"prudentia/internal/book"
	"prudentia/internal/config"
	"prudentia/internal/scenario"
)

// Server 提供监管资本评估与压力测试的 HTTP 接口。
type Server struct {
	cfg     config.ServerConfig
	stress  config.StressConfig
	svc     *assessment.Service
	book    *book.Repository
	metrics *metrics
	logger  *zap.Logger
}

// NewServer 创建 HTTP 服务，repo 为空时不注册组合簿接口。
func NewServer(cfg config.ServerConfig, stressCfg config.StressConfig, svc *assessment.Service, repo *book.Repository, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		stress:  stressCfg,
		svc:     svc,
		book:    repo,
		metrics: newMetrics(),
		logger:  logger,
	}
}

// Handler 返回路由。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.metrics.instrument(pattern, h))
	}

	handle("GET /{$}", s.handleHealth)
	handle("GET /scenarios", s.handleScenarios)
	handle("POST /assess/regulatory", s.handleRegulatory)
	handle("POST /assess/stress-test", s.handleStressTest)
	handle("POST /assess/stress-test/all", s.handleStressTestAll)

	if s.book != nil {
		handle("POST /portfolios", s.handleSavePortfolio)
		handle("GET /portfolios", s.handleListPortfolios)
		handle("GET /portfolios/{id}", s.handleGetPortfolio)
		handle("DELETE /portfolios/{id}", s.handleDeletePortfolio)
		handle("POST /portfolios/{id}/assess", s.handleAssessStored)
		handle("POST /portfolios/{id}/stress-test", s.handleStressStored)
	}

	mux.Handle("GET /metrics", s.metrics.handler())
	return mux
}

// Start 启动 HTTP 服务，ctx 结束后优雅关闭。返回的 channel 在服务退出后关闭。
func (s *Server) Start(ctx context.Context) <-chan error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	done := make(chan error, 1)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(s.cfg))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("关闭 HTTP 服务失败", zap.Error(err))
		}
	}()

	go func() {
		defer close(done)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP 服务异常", zap.Error(err))
			done <- err
		}
	}()

	s.logger.Info("HTTP 接口已启动", zap.String("addr", s.cfg.Addr))
	return done
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "active",
		"system": "Prudentia Risk Engine",
	})
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	catalog := s.svc.Catalog()
	s.writeJSON(w, http.StatusOK, scenariosResponse{
		Default:   s.stress.DefaultScenario,
		Fallback:  scenario.FallbackName,
		Scenarios: catalog.Scenarios(),
	})
}

func (s *Server) handleRegulatory(w http.ResponseWriter, r *http.Request) {
	portfolio, ok := s.decodePortfolio(w, r)
	if !ok {
		return
	}
	s.assess(w, portfolio)
}

func (s *Server) handleStressTest(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.serviceFor(w, r)
	if !ok {
		return
	}
	portfolio, ok := s.decodePortfolio(w, r)
	if !ok {
		return
	}
	s.stressTest(w, r, svc, portfolio)
}

func (s *Server) handleStressTestAll(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.serviceFor(w, r)
	if !ok {
		return
	}
	portfolio, ok := s.decodePortfolio(w, r)
	if !ok {
		return
	}

	all, err := svc.CompareAll(r.Context(), portfolio)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]stressTestResponse, 0, len(all))
	for _, cmp := range all {
		s.metrics.observeStress(cmp.Resolution.Scenario.Name, cmp.Resolution.Fallback, cmp.CapitalImpact)
		out = append(out, newStressTestResponse(cmp, svc.Sensitivity()))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSavePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	portfolio, err := req.toPortfolio()
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "unnamed"
	}

	entry, err := s.book.Save(r.Context(), name, portfolio)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, savedPortfolioResponse{
		ID:        entry.ID,
		Name:      entry.Name,
		LoanCount: entry.Portfolio.Len(),
	})
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if qs := r.URL.Query().Get("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			if v > 1000 {
				v = 1000
			}
			limit = v
		}
	}

	list, err := s.book.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	entry, err := s.book.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.book.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssessStored(w http.ResponseWriter, r *http.Request) {
	entry, err := s.book.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.assess(w, entry.Portfolio)
}

func (s *Server) handleStressStored(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.serviceFor(w, r)
	if !ok {
		return
	}
	entry, err := s.book.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.stressTest(w, r, svc, entry.Portfolio)
}

func (s *Server) assess(w http.ResponseWriter, portfolio basel.Portfolio) {
	result, err := s.svc.Assess(portfolio)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newAssessmentResponse(result))
}

func (s *Server) stressTest(w http.ResponseWriter, r *http.Request, svc *assessment.Service, portfolio basel.Portfolio) {
	name := strings.TrimSpace(r.URL.Query().Get("scenario"))
	if name == "" {
		name = s.stress.DefaultScenario
	}

	cmp, err := svc.CompareScenarios(r.Context(), portfolio, name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.observeStress(cmp.Resolution.Scenario.Name, cmp.Resolution.Fallback, cmp.CapitalImpact)
	s.logger.Debug("压力测试完成",
		zap.String("scenario", name),
		zap.String("resolved", cmp.Resolution.Scenario.Name),
		zap.Int("loans", portfolio.Len()),
		zap.Float64("capital_impact", cmp.CapitalImpact),
	)
	s.writeJSON(w, http.StatusOK, newStressTestResponse(cmp, svc.Sensitivity()))
}

// serviceFor 解析可选的 sensitivity 查询参数。
func (s *Server) serviceFor(w http.ResponseWriter, r *http.Request) (*assessment.Service, bool) {
	svc := s.svc
	if qs := r.URL.Query().Get("sensitivity"); qs != "" {
		v, err := strconv.ParseFloat(qs, 64)
		if err != nil || !(v > 0) || v > 100 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("sensitivity 无效: %q", qs)})
			return nil, false
		}
		svc = svc.WithSensitivity(v)
	}
	return svc, true
}

func (s *Server) decodePortfolio(w http.ResponseWriter, r *http.Request) (basel.Portfolio, bool) {
	var req portfolioRequest
	if !s.decodeBody(w, r, &req) {
		return basel.Portfolio{}, false
	}
	portfolio, err := req.toPortfolio()
	if err != nil {
		s.writeValidationError(w, err)
		return basel.Portfolio{}, false
	}
	return portfolio, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("请求体超过 %d 字节上限", tooLarge.Limit)})
			return false
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("请求体解析失败: %v", err)})
		return false
	}
	return true
}

func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	details := make([]string, 0)
	for _, e := range multierr.Errors(err) {
		details = append(details, e.Error())
	}
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "贷款数据校验失败", Details: details})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, basel.ErrMaturitySingularity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, book.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("请求处理失败", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("写入响应失败", zap.Error(err))
	}
}

func shutdownTimeout(cfg config.ServerConfig) time.Duration {
	if cfg.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return cfg.ShutdownTimeout
}
