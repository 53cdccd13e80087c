package llm

import (
	"errors"
	"net/http"
	"strings"
)

// Class 是后端错误的处理分级。
type Class int

const (
	// Fatal 错误立即终止降级循环。
	Fatal Class = iota
	// Retryable 错误（模型不存在、限流、额度耗尽）继续尝试下一个候选。
	Retryable
)

func (c Class) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "fatal"
}

// retryableStatuses 是 Google API 风格的状态名。
var retryableStatuses = map[string]bool{
	"NOT_FOUND":          true,
	"RESOURCE_EXHAUSTED": true,
}

// retryableTokens 用于没有结构化状态的错误，按小写子串匹配。
var retryableTokens = []string{"404", "429", "quota"}

// Classify 将后端错误映射为 Retryable 或 Fatal。
// 结构化状态优先，其余错误退化为对错误文本的子串匹配。
func Classify(err error) Class {
	if err == nil {
		return Fatal
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusNotFound, http.StatusTooManyRequests:
			return Retryable
		}
		if retryableStatuses[strings.ToUpper(se.Status)] {
			return Retryable
		}
		return Fatal
	}

	msg := strings.ToLower(err.Error())
	for _, tok := range retryableTokens {
		if strings.Contains(msg, tok) {
			return Retryable
		}
	}
	return Fatal
}
