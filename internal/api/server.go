// Package api 提供报告阅读与后台管理的 HTTP 接口。
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iabetor/newsroom/internal/logger"
	"go.uber.org/zap"
)

// NewServer 创建注册好全部路由的 gin 引擎。
// adminPassword 为空时不注册管理接口。
func NewServer(svc Newsroom, adminPassword string) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	h := NewHandler(svc)
	r.GET("/health", h.Health)

	reader := r.Group("/api")
	{
		reader.GET("/reports", h.ListReports)
		reader.GET("/reports/latest", h.LatestReport)
		reader.GET("/report", h.GetReport)
	}

	if adminPassword != "" {
		admin := r.Group("/api/admin")
		admin.Use(adminAuth(adminPassword))
		{
			admin.GET("/feeds", h.ListFeeds)
			admin.POST("/feeds", h.AddFeed)
			admin.DELETE("/feeds", h.RemoveFeed)
			admin.POST("/runs", h.Run)
			admin.GET("/stats", h.Stats)
			admin.GET("/history", h.History)
		}
		logger.Infof("[api] 管理接口已启用")
	} else {
		logger.Warnf("[api] 未设置管理密码，管理接口已禁用")
	}

	return r
}

// requestLogger 用全局 zap 记录每个请求。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, "errors", errs)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Errorw("[api] 请求失败", fields...)
		default:
			logger.Debugw("[api] 请求", fields...)
		}
	}
}

// adminAuth 校验 X-Admin-Password 或 Authorization: Bearer 中的密码。
func adminAuth(password string) gin.HandlerFunc {
	want := []byte(password)
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Admin-Password")
		if provided == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要管理密码"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
			logger.Warnw("[api] 管理密码错误", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "管理密码错误"})
			return
		}
		c.Next()
	}
}

// Serve 启动 HTTP 服务，ctx 取消后在 shutdownTimeout 内优雅关闭。
func Serve(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[api] 监听 %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof("[api] 正在关闭 HTTP 服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
