package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iabetor/newsroom/internal/logger"
)

// ErrEmptyResponse 表示模型调用成功但没有返回文本。
var ErrEmptyResponse = errors.New("模型返回空文本")

// FatalError 表示某次调用遇到不可降级的错误，循环已终止。
type FatalError struct {
	Model string // 实际请求的模型标识（可能带前缀）
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("模型 %s 调用失败: %v", e.Model, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// ExhaustedError 表示所有候选都以可降级错误失败。
type ExhaustedError struct {
	Models  []string // 完整的候选名单（不含前缀）
	LastErr error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("所有模型均不可用（共 %d 个），最后错误: %v", len(e.Models), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Failover 按优先级依次尝试候选模型，第一个返回文本的模型胜出。
type Failover struct {
	backend    Backend
	candidates []string
	discover   bool
}

// NewFailover 创建降级调用器。candidates 为静态优先级列表；
// discover 为 true 时会把账户下可用的其他模型追加到列表末尾。
func NewFailover(backend Backend, candidates []string, discover bool) *Failover {
	return &Failover{
		backend:    backend,
		candidates: append([]string(nil), candidates...),
		discover:   discover,
	}
}

// Roster 返回本次调用的候选名单：静态列表在前，发现的模型在后，去重。
// 发现失败时静默退回静态列表。
func (f *Failover) Roster(ctx context.Context) []string {
	var discovered []ModelInfo
	if f.discover {
		models, err := f.backend.ListModels(ctx)
		if err != nil {
			logger.Debugf("[llm] 获取账户模型列表失败，仅使用静态候选: %v", err)
		} else {
			discovered = models
		}
	}
	return MergeCandidates(f.candidates, discovered, f.backend.Prefix())
}

// Generate 依次尝试候选模型，每个候选先用裸标识、再用带前缀的标识。
// 返回生成文本和实际使用的模型标识；失败时返回 *FatalError 或 *ExhaustedError。
func (f *Failover) Generate(ctx context.Context, prompt string) (string, string, error) {
	roster := f.Roster(ctx)
	prefix := f.backend.Prefix()
	logger.Infof("[llm] 候选模型 %d 个：%s", len(roster), strings.Join(roster, " → "))

	var lastErr error
	for _, id := range roster {
		for _, actual := range variants(id, prefix) {
			logger.Debugf("[llm] 尝试模型 [%s]", actual)

			text, err := f.backend.Generate(ctx, actual, prompt)
			if err == nil {
				if text != "" {
					logger.Infof("[llm] 模型 [%s] 生成成功", actual)
					return text, actual, nil
				}
				if lastErr == nil {
					lastErr = fmt.Errorf("%s: %w", actual, ErrEmptyResponse)
				}
				continue
			}

			lastErr = err
			if Classify(err) == Retryable {
				logger.Infof("[llm] 模型 [%s] 不可用，尝试下一个: %v", actual, err)
				continue
			}

			logger.Warnf("[llm] 模型 [%s] 请求失败: %v", actual, err)
			return "", "", &FatalError{Model: actual, Err: err}
		}
	}

	return "", "", &ExhaustedError{Models: roster, LastErr: lastErr}
}

// variants 返回一个候选的调用顺序：裸标识，然后是带前缀的标识。
func variants(id, prefix string) []string {
	bare := StripPrefix(id, prefix)
	if prefix == "" {
		return []string{bare}
	}
	return []string{bare, prefix + bare}
}

// StripPrefix 去掉模型标识的命名空间前缀。
func StripPrefix(id, prefix string) string {
	if prefix == "" {
		return id
	}
	return strings.TrimPrefix(id, prefix)
}

// MergeCandidates 合并静态候选与发现的模型，按去前缀后的名称去重。
// 只追加支持文本生成（或未声明能力）的模型。
func MergeCandidates(static []string, discovered []ModelInfo, prefix string) []string {
	seen := make(map[string]bool, len(static)+len(discovered))
	roster := make([]string, 0, len(static)+len(discovered))

	add := func(id string) {
		name := StripPrefix(strings.TrimSpace(id), prefix)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		roster = append(roster, name)
	}

	for _, id := range static {
		add(id)
	}
	for _, m := range discovered {
		if m.SupportsGeneration() {
			add(m.Name)
		}
	}
	return roster
}
