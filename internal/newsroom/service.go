// Package newsroom 组合订阅源管理、报告生成与归档。
package newsroom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iabetor/newsroom/internal/logger"
	"github.com/iabetor/newsroom/internal/news"
	"github.com/iabetor/newsroom/internal/report"
	"github.com/iabetor/newsroom/internal/store"
)

// 文档路径。
const (
	FeedsPath   = "data/feeds.json"
	ArchivePath = "data/news_archive.json"
	StatsPath   = "data/stats.json"
)

// ReportKeyLayout 是归档键的时间格式（本地时间，精确到分钟）。
const ReportKeyLayout = "2006-01-02 15:04"

var (
	ErrNoFeeds        = errors.New("没有已注册的订阅源")
	ErrDuplicateFeed  = errors.New("订阅源已存在")
	ErrFeedNotFound   = errors.New("订阅源不存在")
	ErrInvalidFeed    = errors.New("无效的订阅源")
	ErrReportNotFound = errors.New("报告不存在")
	ErrRunInProgress  = errors.New("已有分析任务在运行")
)

// Collector 抓取订阅源。
type Collector interface {
	Collect(ctx context.Context, sources []string) ([]news.Item, []news.SourceError)
	Validate(ctx context.Context, url string) (string, error)
}

// Reporter 把条目生成报告。
type Reporter interface {
	Compose(ctx context.Context, items []news.Item) report.Outcome
}

// Stats 是访问统计文档。
type Stats struct {
	TotalViews int `json:"total_views"`
}

// Entry 是一份归档报告。
type Entry struct {
	Key    string `json:"key"`
	Report string `json:"report"`
}

// RunResult 描述一次收集并生成报告的运行。
type RunResult struct {
	ID       string             `json:"id"`
	Key      string             `json:"key"`
	Report   string             `json:"report"`
	Status   report.Status      `json:"status"`
	Model    string             `json:"model,omitempty"`
	Items    int                `json:"items"`
	Failures []news.SourceError `json:"-"`
	Duration time.Duration      `json:"duration"`
}

// FailedSources 返回失败的订阅源地址。
func (r RunResult) FailedSources() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Source)
	}
	return out
}

// Service 持有运行所需的全部依赖，启动时构造一次。
type Service struct {
	store     store.Store
	collector Collector
	reporter  Reporter
	now       func() time.Time

	mu    sync.Mutex // 保护文档的读-改-写
	runMu sync.Mutex // 同一时间只允许一次运行
}

// Option 配置 Service。
type Option func(*Service)

// WithClock 替换生成归档键使用的时钟。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New 创建 Service。
func New(st store.Store, collector Collector, reporter Reporter, opts ...Option) *Service {
	s := &Service{
		store:     st,
		collector: collector,
		reporter:  reporter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Feeds 返回已注册的订阅源，文档不存在时为空列表。
func (s *Service) Feeds(ctx context.Context) ([]string, error) {
	return store.LoadOrDefault(ctx, s.store, FeedsPath, []string{})
}

// AddFeed 注册订阅源。validate 为 true 时先抓取一次确认可以解析，返回订阅源标题。
func (s *Service) AddFeed(ctx context.Context, url string, validate bool) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("%w: 地址为空", ErrInvalidFeed)
	}

	var title string
	if validate {
		t, err := s.collector.Validate(ctx, url)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidFeed, err)
		}
		title = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feeds, err := s.Feeds(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range feeds {
		if f == url {
			return "", ErrDuplicateFeed
		}
	}

	feeds = append(feeds, url)
	if err := store.Save(ctx, s.store, FeedsPath, feeds, "Add feed: "+url); err != nil {
		return "", err
	}
	logger.Infof("[newsroom] 已添加订阅源: %s", url)
	return title, nil
}

// RemoveFeed 删除订阅源。
func (s *Service) RemoveFeed(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)

	s.mu.Lock()
	defer s.mu.Unlock()

	feeds, err := s.Feeds(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, f := range feeds {
		if f == url {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrFeedNotFound
	}

	feeds = append(feeds[:idx], feeds[idx+1:]...)
	if err := store.Save(ctx, s.store, FeedsPath, feeds, "Delete feed: "+url); err != nil {
		return err
	}
	logger.Infof("[newsroom] 已删除订阅源: %s", url)
	return nil
}

func (s *Service) archive(ctx context.Context) (map[string]string, error) {
	return store.LoadOrDefault(ctx, s.store, ArchivePath, map[string]string{})
}

// Archive 返回全部归档报告，按键降序（最新在前）。
func (s *Service) Archive(ctx context.Context) ([]Entry, error) {
	archive, err := s.archive(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(archive))
	for k, v := range archive {
		entries = append(entries, Entry{Key: k, Report: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key > entries[j].Key })
	return entries, nil
}

// Report 返回指定键的报告。
func (s *Service) Report(ctx context.Context, key string) (string, error) {
	archive, err := s.archive(ctx)
	if err != nil {
		return "", err
	}
	text, ok := archive[key]
	if !ok {
		return "", ErrReportNotFound
	}
	return text, nil
}

// Latest 返回最新的报告。
func (s *Service) Latest(ctx context.Context) (Entry, error) {
	entries, err := s.Archive(ctx)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrReportNotFound
	}
	return entries[0], nil
}

// Stats 返回访问统计。
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return store.LoadOrDefault(ctx, s.store, StatsPath, Stats{})
}

// RecordView 访问计数加一并返回新值。
func (s *Service) RecordView(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.Stats(ctx)
	if err != nil {
		return 0, err
	}
	stats.TotalViews++
	if err := store.Save(ctx, s.store, StatsPath, stats, "Increment view count"); err != nil {
		return 0, err
	}
	return stats.TotalViews, nil
}

// History 返回文档的修订记录，后端不支持时返回 store.ErrNoHistory。
func (s *Service) History(ctx context.Context, path string) ([]store.Revision, error) {
	return store.History(ctx, s.store, path)
}

// Run 收集所有订阅源、生成报告并写入归档。
// 报告生成失败时诊断文本同样归档，Status 标明结果类别。
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	if !s.runMu.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	res := RunResult{ID: uuid.NewString()}
	log := logger.With("run_id", res.ID)
	start := time.Now()

	feeds, err := s.Feeds(ctx)
	if err != nil {
		return res, err
	}
	if len(feeds) == 0 {
		return res, ErrNoFeeds
	}

	log.Infof("[newsroom] 开始分析 %d 个订阅源", len(feeds))
	items, failures := s.collector.Collect(ctx, feeds)
	outcome := s.reporter.Compose(ctx, items)

	res.Key = s.now().Format(ReportKeyLayout)
	res.Report = outcome.Text
	res.Status = outcome.Status
	res.Model = outcome.Model
	res.Items = len(items)
	res.Failures = failures

	if err := s.saveReport(ctx, res.Key, outcome.Text); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	log.Infof("[newsroom] 报告 %s 已归档: status=%s model=%s items=%d failed_sources=%d 耗时=%s",
		res.Key, res.Status, res.Model, res.Items, len(failures), res.Duration.Round(time.Millisecond))
	return res, nil
}

func (s *Service) saveReport(ctx context.Context, key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	archive, err := s.archive(ctx)
	if err != nil {
		return err
	}
	archive[key] = text
	return store.Save(ctx, s.store, ArchivePath, archive, "New report for "+key)
}
