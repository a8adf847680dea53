package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Retry       RetryConfig       `yaml:"retry"`
	Log         LogConfig         `yaml:"log"`
	DB          DBConfig          `yaml:"db"`
	Crawler     CrawlerConfig     `yaml:"crawler"`
	Search      SearchConfig      `yaml:"search"`
	Scout       ScoutConfig       `yaml:"scout"`
	Account     AccountConfig     `yaml:"account"`
	Report      ReportConfig      `yaml:"report"`
	Customers   []string          `yaml:"customers"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url" validate:"required"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model" validate:"required"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps" validate:"gte=0"`
	RPM int `yaml:"rpm" validate:"gte=0"`
}

// RetryConfig 外部调用重试配置
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries" validate:"gte=0,lte=10"`
	BaseDelayMS int `yaml:"base_delay_ms" validate:"gte=0"`
}

// BaseDelay 首次重试等待时间
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Driver   string `yaml:"driver" validate:"oneof=postgres sqlite"`
	Host     string `yaml:"host" validate:"required_if=Driver postgres"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name" validate:"required_if=Driver postgres"`
	Path     string `yaml:"path" validate:"required_if=Driver sqlite"` // sqlite 文件路径
}

// DSN 返回驱动对应的连接串
func (c DBConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// CrawlerConfig 爬虫配置
type CrawlerConfig struct {
	Keywords         []string `yaml:"keywords"`
	Sources          []string `yaml:"sources" validate:"dive,oneof=tavily searxng naver rss"`
	MinContentLength int      `yaml:"min_content_length" validate:"gte=0"`
	FetchTimeout     int      `yaml:"fetch_timeout" validate:"gte=0"` // 秒
	MaxResults       int      `yaml:"max_results" validate:"gte=0"`
}

// SearchConfig 搜索源配置
type SearchConfig struct {
	Tavily  TavilyConfig  `yaml:"tavily"`
	SearXNG SearXNGConfig `yaml:"searxng"`
	Naver   NaverConfig   `yaml:"naver"`
	RSS     RSSConfig     `yaml:"rss"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// NaverConfig Naver 新闻搜索 API 配置
type NaverConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// RSSConfig RSS 源配置
type RSSConfig struct {
	Feeds []string `yaml:"feeds"`
}

// ScoutConfig 信号侦察配置
type ScoutConfig struct {
	BatchSize         int     `yaml:"batch_size" validate:"gt=0"`
	MinConfidence     float64 `yaml:"min_confidence" validate:"gte=0,lte=1"`
	ClassifyChars     int     `yaml:"classify_chars" validate:"gt=0"`
	ExtractChars      int     `yaml:"extract_chars" validate:"gt=0"`
	StaleAfterMinutes int     `yaml:"stale_after_minutes" validate:"gte=0"`
}

// StaleAfter analyzing 状态超过该时长视为遗留
func (s ScoutConfig) StaleAfter() time.Duration {
	return time.Duration(s.StaleAfterMinutes) * time.Minute
}

// TimelineWindow 风险时间线的聚合范围
type TimelineWindow string

const (
	WindowAllTime TimelineWindow = "all_time"
	WindowDaily   TimelineWindow = "daily"
)

// AccountConfig 账户映射配置
type AccountConfig struct {
	BatchSize      int            `yaml:"batch_size" validate:"gt=0"`
	TimelineWindow TimelineWindow `yaml:"timeline_window" validate:"oneof=all_time daily"`
}

// ReportConfig 日报配置
type ReportConfig struct {
	TopN       int `yaml:"top_n" validate:"gt=0"`
	WindowDays int `yaml:"window_days" validate:"gt=0"`
}

// ScheduleConfig 各批处理任务的 cron 表达式，留空表示不调度
type ScheduleConfig struct {
	Crawl    string `yaml:"crawl"`
	Scout    string `yaml:"scout"`
	Match    string `yaml:"match"`
	Map      string `yaml:"map"`
	Timeline string `yaml:"timeline"`
	Report   string `yaml:"report"`
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Concurrency: ConcurrencyConfig{QPS: 1, RPM: 60},
		Retry:       RetryConfig{MaxRetries: 3, BaseDelayMS: 2000},
		Log:         LogConfig{Level: "info"},
		DB:          DBConfig{Driver: "postgres", Port: 5432},
		Crawler: CrawlerConfig{
			Sources:          []string{"naver"},
			MinContentLength: 500,
			FetchTimeout:     30,
			MaxResults:       30,
		},
		Scout: ScoutConfig{
			BatchSize:         5,
			MinConfidence:     0.70,
			ClassifyChars:     1000,
			ExtractChars:      3000,
			StaleAfterMinutes: 30,
		},
		Account: AccountConfig{BatchSize: 500, TimelineWindow: WindowAllTime},
		Report:  ReportConfig{TopN: 5, WindowDays: 30},
		Schedule: ScheduleConfig{
			Crawl:    "@hourly",
			Scout:    "*/10 * * * *",
			Match:    "*/30 * * * *",
			Map:      "15 * * * *",
			Timeline: "30 23 * * *",
			Report:   "0 8 * * *",
		},
	}
}

// LoadConfig 从指定路径加载配置，${VAR} 从环境变量展开
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析 YAML 配置并校验
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
