package search

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Searcher 定义通用的新闻搜索接口，爬虫按关键词调用
type Searcher interface {
	Name() string
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query             string
	Topic             string // "news" or "general"
	MaxResults        int
	IncludeRawContent bool
	StartDate         string // Format: YYYY-MM-DD
	EndDate           string // Format: YYYY-MM-DD
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果，Content 为摘要或正文，可能含 HTML
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Score         float64
	PublishedDate string
}

// PublishedAt 解析各来源格式不一的发布时间，未带时区的按 UTC，无法解析时返回零值
func (r Result) PublishedAt() time.Time {
	s := strings.TrimSpace(r.PublishedDate)
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
