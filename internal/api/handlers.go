package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iabetor/newsroom/internal/logger"
	"github.com/iabetor/newsroom/internal/newsroom"
	"github.com/iabetor/newsroom/internal/store"
)

// Newsroom 是处理器依赖的服务操作，由 *newsroom.Service 实现。
type Newsroom interface {
	Feeds(ctx context.Context) ([]string, error)
	AddFeed(ctx context.Context, url string, validate bool) (string, error)
	RemoveFeed(ctx context.Context, url string) error
	Archive(ctx context.Context) ([]newsroom.Entry, error)
	Report(ctx context.Context, key string) (string, error)
	Latest(ctx context.Context) (newsroom.Entry, error)
	RecordView(ctx context.Context) (int, error)
	Stats(ctx context.Context) (newsroom.Stats, error)
	History(ctx context.Context, path string) ([]store.Revision, error)
	Run(ctx context.Context) (newsroom.RunResult, error)
}

var _ Newsroom = (*newsroom.Service)(nil)

// Handler 实现各路由。
type Handler struct {
	svc Newsroom
}

func NewHandler(svc Newsroom) *Handler {
	return &Handler{svc: svc}
}

type reportsResponse struct {
	Reports    []string `json:"reports"`
	TotalViews int      `json:"total_views"`
}

type addFeedRequest struct {
	URL      string `json:"url" binding:"required"`
	Validate *bool  `json:"validate"`
}

type runResponse struct {
	ID            string   `json:"id"`
	Key           string   `json:"key"`
	Status        string   `json:"status"`
	Model         string   `json:"model,omitempty"`
	Items         int      `json:"items"`
	FailedSources []string `json:"failed_sources"`
	Duration      string   `json:"duration"`
	Report        string   `json:"report"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ListReports 返回归档键（最新在前）并记录一次访问。
func (h *Handler) ListReports(c *gin.Context) {
	ctx := c.Request.Context()

	views, err := h.svc.RecordView(ctx)
	if err != nil {
		// 计数失败不影响阅读
		logger.Warnf("[api] 记录访问失败: %v", err)
		if stats, serr := h.svc.Stats(ctx); serr == nil {
			views = stats.TotalViews
		}
	}

	entries, err := h.svc.Archive(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	c.JSON(http.StatusOK, reportsResponse{Reports: keys, TotalViews: views})
}

func (h *Handler) LatestReport(c *gin.Context) {
	entry, err := h.svc.Latest(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) GetReport(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 key 参数"})
		return
	}
	text, err := h.svc.Report(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newsroom.Entry{Key: key, Report: text})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.svc.Feeds(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feeds": feeds, "total": len(feeds)})
}

// AddFeed 默认先校验订阅源可以解析，validate=false 时跳过。
func (h *Handler) AddFeed(c *gin.Context) {
	var req addFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体应为 {\"url\": \"...\"}"})
		return
	}
	validate := req.Validate == nil || *req.Validate

	title, err := h.svc.AddFeed(c.Request.Context(), req.URL, validate)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": strings.TrimSpace(req.URL), "title": title})
}

func (h *Handler) RemoveFeed(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 url 参数"})
		return
	}
	if err := h.svc.RemoveFeed(c.Request.Context(), url); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Run 同步执行一次分析。客户端断开不会中断已开始的运行。
func (h *Handler) Run(c *gin.Context) {
	res, err := h.svc.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, runResponse{
		ID:            res.ID,
		Key:           res.Key,
		Status:        string(res.Status),
		Model:         res.Model,
		Items:         res.Items,
		FailedSources: res.FailedSources(),
		Duration:      res.Duration.Round(time.Millisecond).String(),
		Report:        res.Report,
	})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// History 返回文档修订记录，path 缺省为归档文档。
func (h *Handler) History(c *gin.Context) {
	path := c.DefaultQuery("path", newsroom.ArchivePath)
	revs, err := h.svc.History(c.Request.Context(), path)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "revisions": revs})
}

// fail 把服务错误映射为 HTTP 状态码。
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, newsroom.ErrReportNotFound), errors.Is(err, newsroom.ErrFeedNotFound):
		status = http.StatusNotFound
	case errors.Is(err, newsroom.ErrDuplicateFeed), errors.Is(err, newsroom.ErrRunInProgress):
		status = http.StatusConflict
	case errors.Is(err, newsroom.ErrInvalidFeed), errors.Is(err, newsroom.ErrNoFeeds):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNoHistory):
		status = http.StatusNotImplemented
	}

	if status == http.StatusInternalServerError {
		c.Error(err)
		c.JSON(status, gin.H{"error": "内部错误"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
