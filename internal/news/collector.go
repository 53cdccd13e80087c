package news

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/iabetor/newsroom/internal/logger"
	"github.com/mmcdole/gofeed"
)

const (
	defaultFetchTimeout = 20 * time.Second
	defaultUserAgent    = "Newsroom/1.0 RSS Reader"
)

// Collector 逐个解析订阅源并收集时间窗口内的条目。
// 单个源失败只记录日志，不影响其余源。
type Collector struct {
	parser     *gofeed.Parser
	now        func() time.Time
	maxSummary int
}

// Option 配置 Collector。
type Option func(*Collector)

// WithClock 替换时间来源，测试中用于冻结 now。
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithHTTPClient 指定抓取订阅源使用的 HTTP 客户端。
func WithHTTPClient(client *http.Client) Option {
	return func(c *Collector) { c.parser.Client = client }
}

// WithUserAgent 设置请求的 User-Agent。
func WithUserAgent(ua string) Option {
	return func(c *Collector) { c.parser.UserAgent = ua }
}

// WithMaxSummaryRunes 限制摘要长度，n <= 0 表示不截断。
func WithMaxSummaryRunes(n int) Option {
	return func(c *Collector) { c.maxSummary = n }
}

// NewCollector 创建订阅源收集器。
func NewCollector(opts ...Option) *Collector {
	parser := gofeed.NewParser()
	parser.UserAgent = defaultUserAgent
	parser.Client = &http.Client{Timeout: defaultFetchTimeout}

	c := &Collector{
		parser: parser,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchNews 返回所有订阅源在时间窗口内的条目。
// 输出顺序为订阅源输入顺序，再按解析器给出的条目顺序，不做全局排序。
func (c *Collector) FetchNews(ctx context.Context, sources []string) []Item {
	items, _ := c.Collect(ctx, sources)
	return items
}

// Collect 与 FetchNews 相同，但额外返回被跳过的订阅源及原因。
func (c *Collector) Collect(ctx context.Context, sources []string) ([]Item, []SourceError) {
	now := c.now()

	var (
		items    []Item
		failures []SourceError
	)
	for _, src := range sources {
		feed, err := c.parser.ParseURLWithContext(src, ctx)
		if err != nil {
			logger.Warnf("[news] 解析 %s 失败: %v", src, err)
			failures = append(failures, SourceError{Source: src, Err: err})
			continue
		}
		fresh := c.convertItems(feed, now)
		logger.Debugf("[news] %s: %d 条中 %d 条在窗口内", src, len(feed.Items), len(fresh))
		items = append(items, fresh...)
	}

	logger.Infof("[news] 收集完成: %d 个源, %d 条, %d 个源失败", len(sources), len(items), len(failures))
	return items, failures
}

// Validate 抓取并解析一次订阅源，返回其标题。
func (c *Collector) Validate(ctx context.Context, url string) (string, error) {
	feed, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return "", fmt.Errorf("无法解析该 RSS 地址: %w", err)
	}
	if feed.Title == "" {
		return UnknownSource, nil
	}
	return feed.Title, nil
}

// convertItems 将 gofeed 条目转换为 Item，丢弃无时间戳或超出窗口的条目。
func (c *Collector) convertItems(feed *gofeed.Feed, now time.Time) []Item {
	source := feed.Title
	if source == "" {
		source = UnknownSource
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		published, ok := entryTime(entry)
		if !ok {
			continue
		}
		if now.Sub(published) > RecencyWindow {
			continue
		}

		items = append(items, Item{
			Title:     entry.Title,
			Link:      entry.Link,
			Summary:   truncate(stripHTML(entry.Description), c.maxSummary),
			Source:    source,
			Published: published,
		})
	}
	return items
}

// entryTime 优先取发布时间，其次取更新时间。
func entryTime(entry *gofeed.Item) (time.Time, bool) {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed, true
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed, true
	}
	return time.Time{}, false
}
