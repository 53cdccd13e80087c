package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iabetor/newsroom/internal/logger"
)

// OpenAI 通过 SSE（Server-Sent Events）与 OpenAI 兼容的 API 通信。
// 模型标识没有命名空间前缀。
type OpenAI struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAI 创建 OpenAI 兼容后端，apiURL 形如 https://api.example.com/v1。
func NewOpenAI(apiURL, apiKey string) *OpenAI {
	return &OpenAI{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Message 表示对话中的一条消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest 是发送到 chat completions 接口的 JSON 请求体。
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// sseChunk 表示 SSE 响应中的一个流式数据块。
type sseChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// modelList 是 GET /models 的响应。
type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Prefix 实现 Backend。
func (p *OpenAI) Prefix() string { return "" }

// Generate 实现 Backend：以流式方式请求并拼接全部文本块。
func (p *OpenAI) Generate(ctx context.Context, model, prompt string) (string, error) {
	stream, err := p.ChatStream(ctx, model, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for chunk := range stream.C {
		sb.WriteString(chunk)
	}
	// 流中断时丢弃已收到的部分文本
	if err := stream.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ListModels 实现 Backend。OpenAI 兼容接口不声明能力，全部视为可生成。
func (p *OpenAI) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("[llm] 创建请求失败: %w", err)
	}
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[llm] 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("[llm] 解析模型列表失败: %w", err)
	}
	models := make([]ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, ModelInfo{Name: m.ID})
	}
	return models, nil
}

// Stream 是一次流式响应。C 关闭后 Err 返回流的终止原因，正常结束时为 nil。
type Stream struct {
	C   <-chan string
	err error
}

// Err 只能在 C 关闭后调用。
func (s *Stream) Err() error {
	return s.err
}

// ChatStream 发送对话消息，返回逐块接收文本响应的 Stream。
func (p *OpenAI) ChatStream(ctx context.Context, model string, messages []Message) (*Stream, error) {
	bodyBytes, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("[llm] 序列化请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("[llm] 创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[llm] 请求失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	ch := make(chan string)
	stream := &Stream{C: ch}

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk sseChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				logger.Debugf("[llm] 解析 SSE 数据块失败: %v", err)
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case ch <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				stream.err = ctx.Err()
				return
			}
		}

		if err := scanner.Err(); err != nil {
			logger.Warnf("[llm] 读取响应流出错: %v", err)
			stream.err = fmt.Errorf("响应流中断: %w", err)
		}
	}()

	return stream, nil
}

func (p *OpenAI) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// statusError 读取错误响应体，尽量解析 {"error":{"message","type"}} 结构。
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	se := &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}

	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		se.Message = payload.Error.Message
		se.Status = payload.Error.Type
	}
	return se
}
