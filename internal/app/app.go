package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ltpbot/internal/config"
	"ltpbot/internal/logger"
	"ltpbot/internal/session"
	livehttp "ltpbot/internal/transport/http/live"
)

// App 负责应用级编排：HTTP 服务、配置热加载、可选的自动启动会话。
type App struct {
	cfg        *config.Config
	configPath string
	session    *session.Controller
	http       *livehttp.Server
	Summary    *StartupSummary

	cleanup   func()
	closeOnce sync.Once
}

func newApp(cfg *config.Config, ctrl *session.Controller, srv *livehttp.Server) *App {
	return &App{cfg: cfg, session: ctrl, http: srv, Summary: newStartupSummary(cfg)}
}

// NewApp 根据配置构建应用对象（不启动）。configPath 为空时不启用热加载。
func NewApp(cfg *config.Config, configPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	a, cleanup, err := buildApp(cfg)
	if err != nil {
		return nil, err
	}
	a.configPath = strings.TrimSpace(configPath)
	a.cleanup = cleanup
	return a, nil
}

// Run 启动所有组件，直到 ctx 取消或 HTTP 服务出错；返回前停止会话并关闭存储。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.session == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	a.Summary.Print()

	group, ctx := errgroup.WithContext(ctx)

	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	if a.configPath != "" {
		group.Go(func() error {
			err := config.Watch(ctx, a.configPath, func(next *config.Config) {
				if next.App.LogLevel != logger.Level() {
					logger.Infof("log level %s -> %s", logger.Level(), next.App.LogLevel)
					logger.SetLevel(next.App.LogLevel)
				}
			})
			if err != nil {
				logger.Warnf("config hot reload disabled: %v", err)
			}
			return nil
		})
	}

	if a.cfg.Session.AutoStart {
		if err := a.session.Start(ctx, a.cfg.Session.SessionConfig); err != nil {
			logger.Errorf("auto-start session failed: %v", err)
		}
	}

	group.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Loop.StopTimeout()+time.Second)
		defer cancel()
		return a.session.Close(stopCtx)
	})

	return group.Wait()
}

// Close 释放存储资源，可重复调用。
func (a *App) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(func() {
		if a.cleanup != nil {
			a.cleanup()
		}
	})
}

// Session exposes the controller (for tests and embedding).
func (a *App) Session() *session.Controller {
	if a == nil {
		return nil
	}
	return a.session
}
