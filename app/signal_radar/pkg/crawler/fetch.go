package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/ingest"
)

// Fetcher 抓取文章原文
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ReadabilityFetcher 使用 readability 提取正文
type ReadabilityFetcher struct {
	Timeout time.Duration
}

// NewReadabilityFetcher timeout 单位为秒，0 表示 30 秒
func NewReadabilityFetcher(timeout int) *ReadabilityFetcher {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	return &ReadabilityFetcher{Timeout: t}
}

// Fetch 抓取并清洗正文
func (f *ReadabilityFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	article, err := readability.FromURL(url, f.Timeout)
	if err != nil {
		return "", err
	}
	return ingest.NormalizeWhitespace(article.TextContent), nil
}

// CleanHTML 去掉 script/style/noscript 与标签，解码实体并合并空白
func CleanHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return ingest.NormalizeWhitespace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return ingest.NormalizeWhitespace(s)
	}
	doc.Find("script, style, noscript").Remove()
	return ingest.NormalizeWhitespace(doc.Text())
}
