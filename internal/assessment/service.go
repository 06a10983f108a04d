package assessment

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prudentia/internal/basel"
	"prudentia/internal/scenario"
	"prudentia/internal/stress"
)

// Comparison 为基准与压力情景下的指标对比。
type Comparison struct {
	Scenario      string              `json:"scenario"`
	Resolution    scenario.Resolution `json:"resolution"`
	Baseline      Result              `json:"baseline_metrics"`
	Stressed      Result              `json:"stressed_metrics"`
	CapitalImpact float64             `json:"capital_impact"` // 正值表示压力下需额外补充资本
}

// Options 控制压力对比行为。
type Options struct {
	Sensitivity float64
	Workers     int
}

// Service 串联压力转换与组合汇总。
type Service struct {
	transformer *stress.Transformer
	opts        Options
	logger      *zap.Logger
}

// NewService 创建评估服务。
func NewService(transformer *stress.Transformer, opts Options, logger *zap.Logger) *Service {
	if transformer == nil {
		transformer = stress.NewTransformer(nil)
	}
	if opts.Sensitivity <= 0 {
		opts.Sensitivity = stress.DefaultSensitivity
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{transformer: transformer, opts: opts, logger: logger}
}

// WithSensitivity 返回使用指定敏感度的服务副本，非正值保持原设置。
func (s *Service) WithSensitivity(sensitivity float64) *Service {
	if sensitivity <= 0 || sensitivity == s.opts.Sensitivity {
		return s
	}
	cp := *s
	cp.opts.Sensitivity = sensitivity
	return &cp
}

// Sensitivity 返回当前使用的冲击敏感度。
func (s *Service) Sensitivity() float64 {
	return s.opts.Sensitivity
}

// Catalog 返回服务使用的情景目录。
func (s *Service) Catalog() *scenario.Catalog {
	return s.transformer.Catalog()
}

// Assess 计算组合当前的监管指标。
func (s *Service) Assess(portfolio basel.Portfolio) (Result, error) {
	return Aggregate(portfolio)
}

// CompareScenarios 计算基准与指定情景下的资本要求差额。
func (s *Service) CompareScenarios(ctx context.Context, portfolio basel.Portfolio, scenarioName string) (Comparison, error) {
	if err := ctx.Err(); err != nil {
		return Comparison{}, err
	}

	baseline, err := Aggregate(portfolio)
	if err != nil {
		return Comparison{}, fmt.Errorf("assessment: 基准指标计算失败: %w", err)
	}

	return s.compareWithBaseline(portfolio, baseline, scenarioName)
}

// CompareAll 对目录中的每个情景并行执行压力对比，结果按情景名称排序。
func (s *Service) CompareAll(ctx context.Context, portfolio basel.Portfolio) ([]Comparison, error) {
	baseline, err := Aggregate(portfolio)
	if err != nil {
		return nil, fmt.Errorf("assessment: 基准指标计算失败: %w", err)
	}

	names := s.Catalog().Names()
	results := make([]Comparison, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cmp, err := s.compareWithBaseline(portfolio, baseline, name)
			if err != nil {
				return err
			}
			results[i] = cmp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) compareWithBaseline(portfolio basel.Portfolio, baseline Result, scenarioName string) (Comparison, error) {
	stressedPortfolio, res := s.transformer.Apply(portfolio, scenarioName, s.opts.Sensitivity)
	if res.Fallback {
		s.logger.Debug("未知情景，回退到默认情景",
			zap.String("requested", scenarioName),
			zap.String("resolved", res.Scenario.Name),
		)
	}

	stressed, err := Aggregate(stressedPortfolio)
	if err != nil {
		return Comparison{}, fmt.Errorf("assessment: 情景 %q 压力指标计算失败: %w", res.Scenario.Name, err)
	}

	return Comparison{
		Scenario:      scenarioName,
		Resolution:    res,
		Baseline:      baseline,
		Stressed:      stressed,
		CapitalImpact: stressed.CapitalRequirement - baseline.CapitalRequirement,
	}, nil
}
