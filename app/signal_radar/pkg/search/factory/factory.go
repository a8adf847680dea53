package factory

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/naver"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/rss"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/search"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/searxng"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/tavily"
)

// NewSearcher 根据来源名称创建搜索实例
func NewSearcher(cfg *config.Config, source string, l logrus.FieldLogger) (search.Searcher, error) {
	switch source {
	case "tavily":
		if cfg.Search.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(cfg.Search.Tavily.APIKey), nil

	case "searxng":
		if cfg.Search.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(cfg.Search.SearXNG.BaseURL, cfg.Search.SearXNG.Timeout), nil

	case "naver":
		if cfg.Search.Naver.ClientID == "" || cfg.Search.Naver.ClientSecret == "" {
			return nil, fmt.Errorf("naver client id/secret is missing")
		}
		return naver.NewClient(cfg.Search.Naver.ClientID, cfg.Search.Naver.ClientSecret), nil

	case "rss":
		if len(cfg.Search.RSS.Feeds) == 0 {
			return nil, fmt.Errorf("rss feeds are not configured")
		}
		return rss.NewClient(cfg.Search.RSS.Feeds, l), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", source)
	}
}

// NewSearchers 按 crawler.sources 创建全部搜索实例
func NewSearchers(cfg *config.Config, l logrus.FieldLogger) ([]search.Searcher, error) {
	if len(cfg.Crawler.Sources) == 0 {
		return nil, fmt.Errorf("search provider not configured")
	}
	searchers := make([]search.Searcher, 0, len(cfg.Crawler.Sources))
	for _, source := range cfg.Crawler.Sources {
		s, err := NewSearcher(cfg, source, l)
		if err != nil {
			return nil, err
		}
		searchers = append(searchers, s)
	}
	return searchers, nil
}
