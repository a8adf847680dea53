package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
)

// Completer 单轮对话补全，Stage 1/2 与日报共用
type Completer interface {
	Complete(ctx context.Context, system, user string, opts ...model.Option) (string, error)
}

// Client 带限流与重试的 LLM 客户端
type Client struct {
	chatModel  model.BaseChatModel
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	log        logrus.FieldLogger
}

var _ Completer = (*Client)(nil)

// NewClient 按配置初始化 OpenAI 兼容的 ChatModel
func NewClient(ctx context.Context, cfg *config.Config, l logrus.FieldLogger) (*Client, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return New(chatModel, NewLimiter(cfg.Concurrency), cfg.Retry, l), nil
}

// New 使用已有的 ChatModel 构造客户端，limiter 为 nil 时不限流
func New(chatModel model.BaseChatModel, limiter *rate.Limiter, retry config.RetryConfig, l logrus.FieldLogger) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		chatModel:  chatModel,
		limiter:    limiter,
		maxRetries: retry.MaxRetries,
		baseDelay:  retry.BaseDelay(),
		log:        logger.Or(l),
	}
}

// NewLimiter 按每分钟请求数限流，QPS 作为突发量
func NewLimiter(cfg config.ConcurrencyConfig) *rate.Limiter {
	if cfg.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := cfg.QPS
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), burst)
}

// Complete 发送 system + user 消息并返回回复文本。
// 失败时按指数退避重试，最多 maxRetries 次。
func (c *Client) Complete(ctx context.Context, system, user string, opts ...model.Option) (string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: user},
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		start := time.Now()
		resp, err := c.chatModel.Generate(ctx, messages, opts...)
		metrics.LLMLatency.Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.LLMRequests.WithLabelValues("success").Inc()
			return resp.Content, nil
		}

		lastErr = err
		if ctx.Err() != nil || i == c.maxRetries {
			break
		}
		metrics.LLMRequests.WithLabelValues("retry").Inc()

		delay := c.baseDelay * time.Duration(1<<i)
		c.log.Warnf("LLM 调用失败，%s 后重试 (%d/%d): %v", delay, i+1, c.maxRetries, err)
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	metrics.LLMRequests.WithLabelValues("error").Inc()
	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return "", lastErr
	}
	return "", fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CleanJSON 去掉模型回复外层的 markdown 代码块标记
func CleanJSON(content string) string {
	cleanContent := strings.TrimSpace(content)
	cleanContent = strings.TrimPrefix(cleanContent, "```json")
	cleanContent = strings.TrimPrefix(cleanContent, "```")
	cleanContent = strings.TrimSuffix(cleanContent, "```")
	return strings.TrimSpace(cleanContent)
}

// Truncate 按字符截断，避免截断多字节字符
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
