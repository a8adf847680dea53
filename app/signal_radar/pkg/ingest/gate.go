// Package ingest 文章入库闸门：URL 去重、短文过滤、内容指纹
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// ErrInvalidArticle 缺少 URL 或标题的原始文章
var ErrInvalidArticle = errors.New("invalid article")

// Result 入库结果
type Result int

const (
	Accepted Result = iota
	Duplicate
	TooShort
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case TooShort:
		return "too_short"
	default:
		return "unknown"
	}
}

// Store 入库所需的存储能力
type Store interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
	InsertArticle(ctx context.Context, a *model.Article) (bool, error)
}

// Gate 文章入库闸门
type Gate struct {
	store     Store
	minLength int
	log       logrus.FieldLogger
}

// NewGate 创建入库闸门，正文少于 minLength 个字符的文章被丢弃
func NewGate(store Store, minLength int, l logrus.FieldLogger) *Gate {
	return &Gate{store: store, minLength: minLength, log: logger.Or(l)}
}

// Seen URL 是否已入库，爬虫据此跳过正文抓取
func (g *Gate) Seen(ctx context.Context, url string) (bool, error) {
	return g.store.ArticleExists(ctx, url)
}

// Admit 校验并写入文章，URL 先到先得；过短的文章不入库也不会重试
func (g *Gate) Admit(ctx context.Context, raw model.RawArticle) (Result, *model.Article, error) {
	url := strings.TrimSpace(raw.URL)
	title := NormalizeWhitespace(raw.Title)
	if url == "" || title == "" {
		metrics.ArticlesIngested.WithLabelValues("invalid").Inc()
		return 0, nil, fmt.Errorf("%w: url=%q title=%q", ErrInvalidArticle, url, title)
	}

	seen, err := g.Seen(ctx, url)
	if err != nil {
		metrics.ArticlesIngested.WithLabelValues("error").Inc()
		return 0, nil, err
	}
	if seen {
		metrics.ArticlesIngested.WithLabelValues(Duplicate.String()).Inc()
		return Duplicate, nil, nil
	}

	content := NormalizeWhitespace(raw.Content)
	if utf8.RuneCountInString(content) < g.minLength {
		g.log.Debugf("正文过短，跳过: %s", url)
		metrics.ArticlesIngested.WithLabelValues(TooShort.String()).Inc()
		return TooShort, nil, nil
	}

	article := &model.Article{
		URL:         url,
		Title:       title,
		Content:     content,
		ContentHash: ContentHash(content),
		Source:      raw.Source,
		PublishedAt: raw.PublishedAt,
	}
	inserted, err := g.store.InsertArticle(ctx, article)
	if err != nil {
		metrics.ArticlesIngested.WithLabelValues("error").Inc()
		return 0, nil, err
	}
	if !inserted {
		// 并发写入时由唯一约束兜底
		metrics.ArticlesIngested.WithLabelValues(Duplicate.String()).Inc()
		return Duplicate, nil, nil
	}

	metrics.ArticlesIngested.WithLabelValues(Accepted.String()).Inc()
	return Accepted, article, nil
}

// NormalizeWhitespace 合并连续空白
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContentHash 规范化正文的 SHA-256 指纹
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(NormalizeWhitespace(content)))
	return hex.EncodeToString(sum[:])
}
