package llm

import (
	"context"
	"errors"
	"sync"
)

// fakeBackend 按模型标识返回预设结果，并记录调用顺序。
type fakeBackend struct {
	mu        sync.Mutex
	prefix    string
	responses map[string]fakeResponse
	models    []ModelInfo
	listErr   error
	calls     []string
	listCalls int
}

type fakeResponse struct {
	text string
	err  error
}

var errNotConfigured = &StatusError{Code: 404, Status: "NOT_FOUND", Message: "model not found"}

func (f *fakeBackend) Prefix() string { return f.prefix }

func (f *fakeBackend) Generate(ctx context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, model)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, ok := f.responses[model]
	if !ok {
		return "", errNotConfigured
	}
	return r.text, r.err
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]ModelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.models, f.listErr
}

var (
	errQuota     = &StatusError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}
	errForbidden = &StatusError{Code: 403, Status: "PERMISSION_DENIED", Message: "API key not valid"}
	errPlain     = errors.New("connection reset by peer")
)
