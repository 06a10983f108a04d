package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"prudentia/internal/assessment"
	"prudentia/internal/book"
	"prudentia/internal/config"
	"prudentia/internal/scenario"
	"prudentia/internal/store"
	"prudentia/internal/stress"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Build 装配评估服务与 HTTP 服务。情景目录只在此处读取一次。
func (a *App) Build() (*Server, error) {
	catalog := scenario.LoadCatalog(a.cfg.Stress.ScenariosPath, a.logger)
	if _, ok := catalog.Lookup(a.cfg.Stress.DefaultScenario); !ok {
		a.logger.Warn("默认情景不存在，将按回退规则解析",
			zap.String("default_scenario", a.cfg.Stress.DefaultScenario),
			zap.String("fallback", scenario.FallbackName),
		)
	}

	svc := assessment.NewService(
		stress.NewTransformer(catalog),
		assessment.Options{
			Sensitivity: a.cfg.Stress.DefaultSensitivity,
			Workers:     a.cfg.Stress.CompareWorkers,
		},
		a.logger.Named("assessment"),
	)

	var repo *book.Repository
	if a.store != nil {
		r, err := book.NewRepository(a.store, a.logger.Named("book"))
		if err != nil {
			return nil, fmt.Errorf("初始化组合簿失败: %w", err)
		}
		repo = r
	}

	return NewServer(a.cfg.Server, a.cfg.Stress, svc, repo, a.logger.Named("http")), nil
}

// Run 启动 HTTP 服务并阻塞直至收到退出信号。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("风险引擎已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("addr", a.cfg.Server.Addr),
		zap.String("default_scenario", a.cfg.Stress.DefaultScenario),
		zap.Float64("sensitivity", a.cfg.Stress.DefaultSensitivity),
	)

	srv, err := a.Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := srv.Start(ctx)

	select {
	case <-ctx.Done():
		<-done
		if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("系统异常退出: %w", err)
		}
		a.logger.Info("系统收到退出信号，正在停止")
		return nil
	case err, ok := <-done:
		if ok && err != nil {
			return fmt.Errorf("HTTP 服务异常退出: %w", err)
		}
		return nil
	}
}
