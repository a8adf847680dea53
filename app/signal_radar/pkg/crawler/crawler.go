// Package crawler 按关键词从各来源抓取新闻并交给入库闸门
package crawler

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/ingest"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/search"
)

// Gate 入库闸门
type Gate interface {
	Seen(ctx context.Context, url string) (bool, error)
	Admit(ctx context.Context, raw model.RawArticle) (ingest.Result, *model.Article, error)
}

// StateStore 爬虫游标
type StateStore interface {
	LastCrawledAt(ctx context.Context) (time.Time, error)
	SetLastCrawledAt(ctx context.Context, t time.Time) error
}

// Stats 一轮抓取的统计
type Stats struct {
	Fetched   int
	Stale     int
	Accepted  int
	Duplicate int
	TooShort  int
	Failed    int
}

// Crawler 关键词 × 来源的抓取任务
type Crawler struct {
	searchers  []search.Searcher
	gate       Gate
	state      StateStore
	fetcher    Fetcher
	keywords   []string
	maxResults int
	minLength  int
	log        logrus.FieldLogger
}

// New 创建抓取任务
func New(searchers []search.Searcher, gate Gate, state StateStore, fetcher Fetcher, cfg config.CrawlerConfig, l logrus.FieldLogger) *Crawler {
	return &Crawler{
		searchers:  searchers,
		gate:       gate,
		state:      state,
		fetcher:    fetcher,
		keywords:   cfg.Keywords,
		maxResults: cfg.MaxResults,
		minLength:  cfg.MinContentLength,
		log:        logger.Or(l),
	}
}

// RunOnce 抓取全部关键词。发布时间不晚于上次游标的结果被跳过，
// 结束后游标推进到本轮入库文章中最新的发布时间。
func (c *Crawler) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	log := logger.ForRun(c.log, "crawl")

	last, err := c.state.LastCrawledAt(ctx)
	if err != nil {
		return stats, err
	}
	log.Infof("上次抓取游标: %v", last)

	var newest time.Time
	for _, keyword := range c.keywords {
		for _, s := range c.searchers {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}

			resp, err := s.Search(ctx, &search.Request{Query: keyword, Topic: "news", MaxResults: c.maxResults})
			if err != nil {
				log.Errorf("搜索失败 [%s/%s]: %v", s.Name(), keyword, err)
				continue
			}
			log.Debugf("搜索 [%s/%s] 返回 %d 条", s.Name(), keyword, len(resp.Results))

			for _, r := range resp.Results {
				stats.Fetched++
				published := r.PublishedAt()
				if !last.IsZero() && !published.IsZero() && !published.After(last) {
					stats.Stale++
					continue
				}

				result, err := c.collect(ctx, s.Name(), r, published)
				if err != nil {
					stats.Failed++
					log.Warnf("入库失败 [%s]: %v", r.URL, err)
					continue
				}
				switch result {
				case ingest.Accepted:
					stats.Accepted++
					if published.After(newest) {
						newest = published
					}
				case ingest.Duplicate:
					stats.Duplicate++
				case ingest.TooShort:
					stats.TooShort++
				}
			}
		}
	}

	if newest.After(last) {
		if err := c.state.SetLastCrawledAt(ctx, newest); err != nil {
			return stats, err
		}
	}

	log.Infof("抓取完成: fetched=%d accepted=%d duplicate=%d too_short=%d stale=%d failed=%d",
		stats.Fetched, stats.Accepted, stats.Duplicate, stats.TooShort, stats.Stale, stats.Failed)
	return stats, nil
}

// collect 清洗单条结果，摘要过短时抓取原文
func (c *Crawler) collect(ctx context.Context, source string, r search.Result, published time.Time) (ingest.Result, error) {
	url := strings.TrimSpace(r.URL)
	if url != "" {
		seen, err := c.gate.Seen(ctx, url)
		if err != nil {
			return 0, err
		}
		if seen {
			return ingest.Duplicate, nil
		}
	}

	content := r.RawContent
	if content == "" {
		content = r.Content
	}
	content = CleanHTML(content)

	if c.fetcher != nil && url != "" && utf8.RuneCountInString(content) < c.minLength {
		fetched, err := c.fetcher.Fetch(ctx, url)
		if err != nil {
			c.log.Debugf("原文抓取失败，使用摘要 [%s]: %v", url, err)
		} else if utf8.RuneCountInString(fetched) > utf8.RuneCountInString(content) {
			content = fetched
		}
	}

	result, _, err := c.gate.Admit(ctx, model.RawArticle{
		Title:       CleanHTML(r.Title),
		URL:         url,
		Content:     content,
		Source:      source,
		PublishedAt: published,
	})
	return result, err
}
