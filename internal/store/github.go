package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/iabetor/newsroom/internal/logger"
)

// GitHub 以仓库文件作为文档存储，每次写入产生一次提交。
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	branch string // 为空时使用默认分支
}

// NewGitHub 使用令牌创建存储，repo 格式为 owner/name。
func NewGitHub(token, repo, branch string) (*GitHub, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("仓库格式应为 owner/name: %q", repo)
	}
	client := github.NewClient(nil).WithAuthToken(token)
	return NewGitHubWithClient(client, owner, name, branch), nil
}

// NewGitHubWithClient 使用已有客户端创建存储，测试中用于指向本地服务。
func NewGitHubWithClient(client *github.Client, owner, repo, branch string) *GitHub {
	return &GitHub{client: client, owner: owner, repo: repo, branch: branch}
}

// Get 实现 Store。
func (g *GitHub) Get(ctx context.Context, path string) ([]byte, error) {
	fc, err := g.contents(ctx, path)
	if err != nil {
		return nil, err
	}

	// 超过 1MB 的文件不内联内容，改走 blob 接口
	if fc.GetEncoding() == "none" {
		data, _, err := g.client.Git.GetBlobRaw(ctx, g.owner, g.repo, fc.GetSHA())
		if err != nil {
			return nil, fmt.Errorf("读取 blob %s 失败: %w", fc.GetSHA(), err)
		}
		return data, nil
	}

	content, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("解码 %s 失败: %w", path, err)
	}
	return []byte(content), nil
}

// Put 实现 Store：文件存在时按当前 SHA 更新，否则创建。
func (g *GitHub) Put(ctx context.Context, path string, data []byte, message string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: data,
	}
	if g.branch != "" {
		opts.Branch = github.String(g.branch)
	}

	fc, err := g.contents(ctx, path)
	switch {
	case errors.Is(err, ErrNotFound):
		_, resp, err := g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts)
		if err != nil {
			return g.wrap(resp, err)
		}
	case err != nil:
		return err
	default:
		opts.SHA = github.String(fc.GetSHA())
		_, resp, err := g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts)
		if err != nil {
			return g.wrap(resp, err)
		}
	}

	logger.Debugf("[store] %s/%s 提交 %s: %s", g.owner, g.repo, path, message)
	return nil
}

func (g *GitHub) contents(ctx context.Context, path string) (*github.RepositoryContent, error) {
	opts := &github.RepositoryContentGetOptions{Ref: g.branch}
	fc, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, opts)
	if err != nil {
		return nil, g.wrap(resp, err)
	}
	if fc == nil {
		return nil, fmt.Errorf("%s 是目录而不是文件", path)
	}
	return fc, nil
}

func (g *GitHub) wrap(resp *github.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusConflict:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return fmt.Errorf("GitHub 请求失败: %w", err)
}
