// Package llm 封装生成模型后端、错误分级以及多模型候选的降级调用。
package llm

import (
	"context"
	"fmt"
	"slices"
)

// ActionGenerateContent 是支持文本生成的模型在能力列表中声明的动作名。
const ActionGenerateContent = "generateContent"

// Backend 是生成模型服务的最小接口。
type Backend interface {
	// Generate 使用指定模型标识生成文本。
	Generate(ctx context.Context, model, prompt string) (string, error)
	// ListModels 列出账户下可见的模型。
	ListModels(ctx context.Context) ([]ModelInfo, error)
	// Prefix 返回模型标识的命名空间前缀（如 "models/"），没有则为空。
	Prefix() string
}

// ModelInfo 描述一个可用模型。
type ModelInfo struct {
	Name    string
	Actions []string
}

// SupportsGeneration 报告模型是否可用于文本生成；未声明能力的模型视为可用。
func (m ModelInfo) SupportsGeneration() bool {
	return len(m.Actions) == 0 || slices.Contains(m.Actions, ActionGenerateContent)
}

// StatusError 是带有结构化状态的后端错误。
type StatusError struct {
	Code    int    // HTTP 状态码
	Status  string // 例如 RESOURCE_EXHAUSTED
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("状态码 %d (%s): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("状态码 %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }
