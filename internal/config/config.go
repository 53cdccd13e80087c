package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/iabetor/newsroom/internal/logger"
	"gopkg.in/yaml.v3"
)

// DefaultCandidates 是模型候选的静态优先级列表，按顺序尝试。
var DefaultCandidates = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.0-flash-lite-preview-02-05",
	"gemini-2.0-flash-lite",
	"gemini-2.0-flash-lite-001",
	"gemini-2.0-flash",
	"gemini-2.0-flash-exp",
}

// Config 是 newsroom 的顶层配置结构。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Collector CollectorConfig `yaml:"collector"`
	LLM       LLMConfig       `yaml:"llm"`
	Report    ReportConfig    `yaml:"report"`
	Log       logger.Config   `yaml:"log"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// AdminPassword 为空时管理接口不注册。
	AdminPassword string `yaml:"admin_password"`
	// ShutdownTimeout 优雅关闭等待时间（秒）。
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// StoreConfig 文档存储配置。
type StoreConfig struct {
	// Backend 可选 github, dir, sqlite。
	Backend string       `yaml:"backend"`
	GitHub  GitHubConfig `yaml:"github"`
	Dir     string       `yaml:"dir"`
	SQLite  string       `yaml:"sqlite"`
	Redis   RedisConfig  `yaml:"redis"`
}

// GitHubConfig 以仓库内容作为版本化存储。
type GitHubConfig struct {
	Token  string `yaml:"token"`
	Repo   string `yaml:"repo"` // owner/name
	Branch string `yaml:"branch"`
}

// RedisConfig 读缓存配置，Addr 为空则不启用。
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl"` // 秒
}

// CollectorConfig 订阅源抓取配置。
type CollectorConfig struct {
	// Timeout 单个订阅源的 HTTP 超时（秒），负数表示不设超时。
	Timeout         int    `yaml:"timeout"`
	UserAgent       string `yaml:"user_agent"`
	MaxSummaryRunes int    `yaml:"max_summary_runes"` // 负数表示不截断
}

// LLMConfig 生成模型配置。
type LLMConfig struct {
	// Provider 可选 gemini, openai（OpenAI 兼容接口）。
	Provider      string   `yaml:"provider"`
	APIURL        string   `yaml:"api_url"`
	APIKey        string   `yaml:"api_key"`
	Candidates    []string `yaml:"candidates"`
	SkipDiscovery bool     `yaml:"skip_discovery"`
}

// ReportConfig 报告输出配置。
type ReportConfig struct {
	// Language 报告语言：ko, en, zh。
	Language string `yaml:"language"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开；path 为空时只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
		expanded := os.Expand(string(data), os.Getenv)
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}

	applyEnv(cfg)
	setDefaults(cfg)
	return cfg, nil
}

// applyEnv 用约定的环境变量补全未配置的密钥类字段。
func applyEnv(cfg *Config) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&cfg.LLM.APIKey, "GEMINI_API_KEY")
	fill(&cfg.Store.GitHub.Token, "GITHUB_TOKEN")
	fill(&cfg.Store.GitHub.Repo, "REPO_NAME")
	fill(&cfg.Server.AdminPassword, "ADMIN_PASSWORD")
	fill(&cfg.Store.Redis.Addr, "REDIS_ADDR")
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "github"
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "./newsroom-data"
	}
	if cfg.Store.SQLite == "" {
		cfg.Store.SQLite = "./newsroom.db"
	}
	if cfg.Store.Redis.TTL == 0 {
		cfg.Store.Redis.TTL = 60
	}
	if cfg.Collector.Timeout == 0 {
		cfg.Collector.Timeout = 20
	}
	if cfg.Collector.UserAgent == "" {
		cfg.Collector.UserAgent = "Newsroom/1.0 RSS Reader"
	}
	if cfg.Collector.MaxSummaryRunes == 0 {
		cfg.Collector.MaxSummaryRunes = 500
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if len(cfg.LLM.Candidates) == 0 {
		cfg.LLM.Candidates = append([]string(nil), DefaultCandidates...)
	}
	if cfg.Report.Language == "" {
		cfg.Report.Language = "ko"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// 去除密钥两端可能的空白（环境变量展开后常见）
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	cfg.Store.GitHub.Token = strings.TrimSpace(cfg.Store.GitHub.Token)
}

// Validate 检查启动所需的配置是否完整。
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}

	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key 未设置（或环境变量 GEMINI_API_KEY）")
		}
	case "openai":
		if c.LLM.APIURL == "" {
			return fmt.Errorf("llm.provider=openai 需要 api_url")
		}
	default:
		return fmt.Errorf("不支持的模型提供方: %s", c.LLM.Provider)
	}

	switch c.Report.Language {
	case "ko", "en", "zh":
	default:
		return fmt.Errorf("不支持的报告语言: %s", c.Report.Language)
	}
	return nil
}

// ValidateStore 只检查存储配置，供不需要生成模型的命令使用。
func (c *Config) ValidateStore() error {
	switch c.Store.Backend {
	case "github":
		if c.Store.GitHub.Token == "" || c.Store.GitHub.Repo == "" {
			return fmt.Errorf("store.github 需要 token 和 repo（或环境变量 GITHUB_TOKEN、REPO_NAME）")
		}
		if !strings.Contains(c.Store.GitHub.Repo, "/") {
			return fmt.Errorf("store.github.repo 格式应为 owner/name: %q", c.Store.GitHub.Repo)
		}
	case "dir", "sqlite":
	default:
		return fmt.Errorf("不支持的存储后端: %s", c.Store.Backend)
	}
	return nil
}
