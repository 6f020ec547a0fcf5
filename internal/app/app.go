package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tradesync/internal/broadcast"
	"tradesync/internal/config"
	"tradesync/internal/logger"
	"tradesync/internal/store"
	"tradesync/internal/store/alertlog"
	httpserver "tradesync/internal/transport/http"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与广播循环。
type App struct {
	cfg    *config.Config
	store  store.AlertStore
	audit  *alertlog.AuditLog
	hub    *broadcast.Hub
	server *httpserver.Server
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	return NewAppBuilder(cfg, opts...).Build()
}

// Run 启动 HTTP 服务与广播循环，ctx 取消时优雅退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.store.Close()
	if a.audit != nil {
		defer a.audit.Close()
	}
	logger.Infof("tradesync starting env=%s addr=%s db=%s",
		a.cfg.App.Env, a.server.Addr(), a.cfg.Store.Path)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("broadcast hub error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := a.server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Server 暴露底层 HTTP server（测试用）
func (a *App) Server() *httpserver.Server {
	if a == nil {
		return nil
	}
	return a.server
}
