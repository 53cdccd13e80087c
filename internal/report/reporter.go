// Package report 把新闻条目交给生成模型，产出分类摘要报告。
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iabetor/newsroom/internal/llm"
	"github.com/iabetor/newsroom/internal/logger"
	"github.com/iabetor/newsroom/internal/news"
)

// maxListedModels 是耗尽诊断中列出的模型数量上限。
const maxListedModels = 15

// Status 描述一次报告生成的结果类别。
type Status string

const (
	StatusOK        Status = "ok"
	StatusNoNews    Status = "no_news"
	StatusFatal     Status = "fatal"
	StatusExhausted Status = "exhausted"
)

// Outcome 是一次生成的完整结果。Text 总是可直接展示的字符串。
type Outcome struct {
	Text   string
	Status Status
	Model  string // 成功时为实际使用的模型，致命错误时为失败的模型
}

// Generator 是 Reporter 依赖的降级调用器。
type Generator interface {
	Generate(ctx context.Context, prompt string) (text, model string, err error)
}

// Reporter 构造提示词并通过 Generator 生成报告。
type Reporter struct {
	gen  Generator
	lang string
	msg  messages
}

// New 创建 Reporter，lang 为 ko、en 或 zh。
func New(gen Generator, lang string) *Reporter {
	return &Reporter{gen: gen, lang: lang, msg: lookup(lang)}
}

// GenerateReport 返回报告文本；任何失败都以诊断字符串的形式返回。
func (r *Reporter) GenerateReport(ctx context.Context, items []news.Item) string {
	return r.Compose(ctx, items).Text
}

// Compose 与 GenerateReport 相同，但同时返回结果类别和模型。
func (r *Reporter) Compose(ctx context.Context, items []news.Item) Outcome {
	if len(items) == 0 {
		return Outcome{Text: r.msg.noNews, Status: StatusNoNews}
	}

	prompt := r.BuildPrompt(items)
	logger.Debugf("[report] 提示词 %d 字节, %d 条新闻", len(prompt), len(items))

	text, model, err := r.gen.Generate(ctx, prompt)
	if err == nil {
		return Outcome{Text: text, Status: StatusOK, Model: model}
	}

	var fatal *llm.FatalError
	if errors.As(err, &fatal) {
		return Outcome{
			Text:   fmt.Sprintf(r.msg.fatal, fatal.Model, fatal.Err),
			Status: StatusFatal,
			Model:  fatal.Model,
		}
	}

	var exhausted *llm.ExhaustedError
	if errors.As(err, &exhausted) {
		models := exhausted.Models
		if len(models) > maxListedModels {
			models = models[:maxListedModels]
		}
		return Outcome{
			Text:   fmt.Sprintf(r.msg.exhausted, exhausted.LastErr, strings.Join(models, ", ")),
			Status: StatusExhausted,
		}
	}

	// 其他 Generator 实现返回的未分类错误按致命处理
	return Outcome{Text: fmt.Sprintf(r.msg.fatal, "-", err), Status: StatusFatal}
}

// BuildPrompt 按输入顺序拼接条目，并嵌入固定的指令模板。
func (r *Reporter) BuildPrompt(items []news.Item) string {
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, r.msg.itemBlock, it.Title, it.Link, it.Summary)
	}
	return fmt.Sprintf(r.msg.prompt, sb.String())
}
