// Package store 提供按路径读写 JSON 文档的版本化存储。
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound 表示路径下没有文档。
	ErrNotFound = errors.New("文档不存在")
	// ErrConflict 表示写入时文档已被其他写入者修改。
	ErrConflict = errors.New("文档已被修改")
)

// Store 是按路径寻址的文档存储。
type Store interface {
	// Get 返回文档内容，不存在时返回 ErrNotFound。
	Get(ctx context.Context, path string) ([]byte, error)
	// Put 创建或替换文档，message 记录本次修改的说明。
	Put(ctx context.Context, path string, data []byte, message string) error
}

// Load 读取并解码文档。返回 found=false 且 err=nil 表示文档不存在，
// 内容为 JSON null 的文档按不存在处理。
func Load(ctx context.Context, s Store, path string, v any) (bool, error) {
	data, err := s.Get(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return true, nil
}

// LoadOrDefault 读取文档，不存在时返回调用方提供的默认值。
func LoadOrDefault[T any](ctx context.Context, s Store, path string, def T) (T, error) {
	var v T
	found, err := Load(ctx, s, path, &v)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// Save 编码并写入文档，保留非 ASCII 与 HTML 字符原样。
func Save(ctx context.Context, s Store, path string, v any, message string) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", path, err)
	}
	if err := s.Put(ctx, path, data, message); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

// Marshal 以两空格缩进编码，不转义 <、>、&。
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ErrNoHistory 表示存储后端不保留修订历史。
var ErrNoHistory = errors.New("存储不支持修订历史")

// Historian 由保留修订历史的后端实现。
type Historian interface {
	History(ctx context.Context, path string) ([]Revision, error)
}

// History 返回文档的修订记录，会穿过缓存等包装层查找 Historian。
func History(ctx context.Context, s Store, path string) ([]Revision, error) {
	for s != nil {
		if h, ok := s.(Historian); ok {
			return h.History(ctx, path)
		}
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	return nil, ErrNoHistory
}
