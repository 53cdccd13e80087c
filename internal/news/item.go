// Package news 从 RSS/Atom 订阅源收集时间窗口内的新闻条目。
package news

import "time"

// RecencyWindow 是条目被收录的时间窗口：now - published <= RecencyWindow。
const RecencyWindow = 72 * time.Hour

// UnknownSource 是订阅源缺少标题时使用的来源名。
const UnknownSource = "Unknown Source"

// Item 是归一化后的新闻条目，创建后不再修改。
type Item struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
}

// SourceError 记录单个订阅源的抓取或解析失败。
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e SourceError) Unwrap() error { return e.Err }
