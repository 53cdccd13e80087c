package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiPrefix 是 Gemini API 模型资源名的前缀。
const GeminiPrefix = "models/"

// Gemini 通过 google.golang.org/genai 调用 Gemini API。
type Gemini struct {
	client *genai.Client
}

// NewGemini 创建 Gemini 后端。baseURL 为空时使用官方地址。
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Prefix 实现 Backend。
func (g *Gemini) Prefix() string { return GeminiPrefix }

// Generate 实现 Backend。
func (g *Gemini) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", convertGeminiError(err)
	}
	return resp.Text(), nil
}

// ListModels 实现 Backend，遍历账户下的全部模型。
func (g *Gemini) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, convertGeminiError(err)
		}
		models = append(models, ModelInfo{Name: m.Name, Actions: m.SupportedActions})
	}
	return models, nil
}

// convertGeminiError 把 genai.APIError 转换为 StatusError，其余错误原样返回。
func convertGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Code: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	return err
}
