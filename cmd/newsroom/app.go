package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/iabetor/newsroom/internal/config"
	"github.com/iabetor/newsroom/internal/llm"
	"github.com/iabetor/newsroom/internal/logger"
	"github.com/iabetor/newsroom/internal/news"
	"github.com/iabetor/newsroom/internal/newsroom"
	"github.com/iabetor/newsroom/internal/report"
	"github.com/iabetor/newsroom/internal/store"
)

// app 持有一次进程运行的全部依赖。
type app struct {
	cfg     *config.Config
	svc     *newsroom.Service
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("[main] 释放资源失败: %v", err)
		}
	}
	logger.Sync()
}

// bootstrap 加载配置并构造服务。withLLM 为 false 时不创建生成模型，
// 只能使用订阅源管理和归档读取。
func bootstrap(ctx context.Context, configPath string, withLLM bool) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if withLLM {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateStore()
	}
	if err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	a := &app{cfg: cfg}
	st, err := newStore(ctx, cfg.Store, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	var rep newsroom.Reporter
	if withLLM {
		backend, err := newBackend(ctx, cfg.LLM)
		if err != nil {
			a.Close()
			return nil, err
		}
		failover := llm.NewFailover(backend, cfg.LLM.Candidates, !cfg.LLM.SkipDiscovery)
		rep = report.New(failover, cfg.Report.Language)
	}

	a.svc = newsroom.New(st, newCollector(cfg.Collector), rep)
	return a, nil
}

// loadConfig 在默认配置文件缺失时退回到纯环境变量配置。
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "配置文件 %s 不存在，使用默认值和环境变量\n", path)
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return cfg, nil
}

func newStore(ctx context.Context, cfg config.StoreConfig, a *app) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Backend {
	case "github":
		st, err = store.NewGitHub(cfg.GitHub.Token, cfg.GitHub.Repo, cfg.GitHub.Branch)
	case "dir":
		st, err = store.NewDir(cfg.Dir)
	case "sqlite":
		var db *store.SQLite
		db, err = store.OpenSQLite(cfg.SQLite)
		if err == nil {
			a.closers = append(a.closers, db.Close)
			st = db
		}
	default:
		err = fmt.Errorf("不支持的存储后端: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("创建存储失败: %w", err)
	}

	if cfg.Redis.Addr == "" {
		return st, nil
	}
	client, err := store.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warnf("[main] Redis 不可用，不启用缓存: %v", err)
		return st, nil
	}
	a.closers = append(a.closers, client.Close)
	logger.Infof("[main] 已启用 Redis 缓存 %s (ttl=%ds)", cfg.Redis.Addr, cfg.Redis.TTL)
	return store.NewCached(st, client, time.Duration(cfg.Redis.TTL)*time.Second), nil
}

func newBackend(ctx context.Context, cfg config.LLMConfig) (llm.Backend, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAI(cfg.APIURL, cfg.APIKey), nil
	case "gemini":
		g, err := llm.NewGemini(ctx, cfg.APIKey, cfg.APIURL)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("不支持的模型提供方: %s", cfg.Provider)
	}
}

func newCollector(cfg config.CollectorConfig) *news.Collector {
	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return news.NewCollector(
		news.WithHTTPClient(client),
		news.WithUserAgent(cfg.UserAgent),
		news.WithMaxSummaryRunes(cfg.MaxSummaryRunes),
	)
}
