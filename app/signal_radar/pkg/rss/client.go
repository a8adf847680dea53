package rss

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/search"
)

// Client 以关键词过滤 RSS 源条目的搜索实现
type Client struct {
	feeds  []string
	parser *gofeed.Parser
	log    logrus.FieldLogger
}

// NewClient 创建 RSS 客户端
func NewClient(feeds []string, l logrus.FieldLogger) *Client {
	return &Client{feeds: feeds, parser: gofeed.NewParser(), log: logger.Or(l)}
}

var _ search.Searcher = (*Client)(nil)

// Name implements search.Searcher
func (c *Client) Name() string { return "rss" }

// Search 拉取全部订阅源，返回标题或摘要中包含关键词的条目。
// 单个源解析失败只记录日志。
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	query := strings.ToLower(strings.TrimSpace(req.Query))

	var results []search.Result
	for _, url := range c.feeds {
		feed, err := c.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warnf("解析 RSS 失败 [%s]: %v", url, err)
			continue
		}

		for _, item := range feed.Items {
			if !matches(item, query) {
				continue
			}
			results = append(results, toResult(item))
			if req.MaxResults > 0 && len(results) >= req.MaxResults {
				return &search.Response{Results: results}, nil
			}
		}
	}
	return &search.Response{Results: results}, nil
}

func matches(item *gofeed.Item, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.Title), query) ||
		strings.Contains(strings.ToLower(item.Description), query)
}

func toResult(item *gofeed.Item) search.Result {
	content := item.Content
	if content == "" {
		content = item.Description
	}
	published := item.Published
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	return search.Result{
		Title:         item.Title,
		URL:           item.Link,
		Content:       content,
		PublishedDate: published,
	}
}
