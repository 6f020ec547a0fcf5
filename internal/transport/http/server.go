package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradesync/internal/logger"
)

// 中文说明：
// HTTP 服务：webhook 入口 + 仪表盘查询接口 + WebSocket 升级。
// gin.New + Recovery，请求日志走 debug 级别。

// Server 封装 gin 引擎与监听地址
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖
type ServerConfig struct {
	Addr   string
	Router *Router
}

// NewServer 构建 HTTP server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Router == nil {
		return nil, errors.New("http server requires a router")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	cfg.Router.Register(engine)
	return &Server{addr: cfg.Addr, router: engine}, nil
}

// Addr 返回监听地址
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Engine 暴露底层引擎（测试用）
func (s *Server) Engine() *gin.Engine {
	return s.router
}

// Run 启动监听并在 ctx 取消时优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestLogger 记录接口调用，便于追踪刷新与回放
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), client, time.Since(start))
	}
}
