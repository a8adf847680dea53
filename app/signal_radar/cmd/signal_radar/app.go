package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/account"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/crawler"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/ingest"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/llm"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/matcher"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/report"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/scout"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/search/factory"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/storage"
)

// 执行顺序即 run-all 的顺序
const (
	jobCrawl    = "crawl"
	jobScout    = "scout"
	jobMatch    = "match"
	jobMap      = "map"
	jobTimeline = "timeline"
	jobReport   = "report"
)

var jobNames = []string{jobCrawl, jobScout, jobMatch, jobMap, jobTimeline, jobReport}

var jobShort = map[string]string{
	jobCrawl:    "Crawl news sources and admit new articles",
	jobScout:    "Classify pending articles and extract signals",
	jobMatch:    "Link new articles to customers by name",
	jobMap:      "Attribute signals to related customer accounts",
	jobTimeline: "Aggregate today's risk timeline entry per customer",
	jobReport:   "Generate the daily radar report",
}

// app 一次命令执行所需的依赖
type app struct {
	cfg   *config.Config
	store *storage.Storage
	log   logrus.FieldLogger

	// 定时任务并发调用 chat，共享同一个客户端和限流器
	mu           sync.Mutex
	completer    llm.Completer
	newCompleter func(ctx context.Context) (llm.Completer, error)
}

func newApp() (*app, func(), error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("无法加载配置文件: %w", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, nil, fmt.Errorf("无法初始化日志: %w", err)
	}

	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("无法连接数据库: %w", err)
	}
	logger.Log.Infof("已连接数据库 (%s)", store.Driver())

	a := &app{cfg: cfg, store: store, log: logger.Log}
	a.newCompleter = func(ctx context.Context) (llm.Completer, error) {
		return llm.NewClient(ctx, cfg, logger.Log)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Log.Errorf("关闭数据库失败: %v", err)
		}
	}
	return a, cleanup, nil
}

// chat 仅在需要调用模型的任务中初始化
func (a *app) chat(ctx context.Context) (llm.Completer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.completer != nil {
		return a.completer, nil
	}
	c, err := a.newCompleter(ctx)
	if err != nil {
		return nil, err
	}
	a.completer = c
	return c, nil
}

func (a *app) job(name string) func(ctx context.Context) error {
	switch name {
	case jobCrawl:
		return a.crawl
	case jobScout:
		return a.scout
	case jobMatch:
		return a.match
	case jobMap:
		return a.mapSignals
	case jobTimeline:
		return a.timeline
	case jobReport:
		return a.report
	}
	return nil
}

func (a *app) spec(name string) string {
	s := a.cfg.Schedule
	switch name {
	case jobCrawl:
		return s.Crawl
	case jobScout:
		return s.Scout
	case jobMatch:
		return s.Match
	case jobMap:
		return s.Map
	case jobTimeline:
		return s.Timeline
	case jobReport:
		return s.Report
	}
	return ""
}

func (a *app) crawl(ctx context.Context) error {
	searchers, err := factory.NewSearchers(a.cfg, a.log)
	if err != nil {
		return err
	}
	gate := ingest.NewGate(a.store, a.cfg.Crawler.MinContentLength, a.log)
	fetcher := crawler.NewReadabilityFetcher(a.cfg.Crawler.FetchTimeout)
	c := crawler.New(searchers, gate, a.store, fetcher, a.cfg.Crawler, a.log)
	_, err = c.RunOnce(ctx)
	return err
}

func (a *app) scout(ctx context.Context) error {
	c, err := a.chat(ctx)
	if err != nil {
		return err
	}
	sc := a.cfg.Scout
	w := scout.NewWorker(a.store,
		scout.NewClassifier(c, sc.ClassifyChars),
		scout.NewExtractor(c, sc.ExtractChars, sc.MinConfidence, a.log),
		sc, a.log)
	_, err = w.RunOnce(ctx)
	return err
}

func (a *app) match(ctx context.Context) error {
	m := matcher.NewMatcher(a.store, a.cfg.Account.BatchSize, a.log)
	if _, err := m.SeedCustomers(ctx, a.cfg.Customers); err != nil {
		return err
	}
	_, err := m.RunOnce(ctx)
	return err
}

func (a *app) mapSignals(ctx context.Context) error {
	_, err := account.NewMapper(a.store, a.cfg.Account.BatchSize, a.log).RunOnce(ctx)
	return err
}

func (a *app) timeline(ctx context.Context) error {
	_, err := account.NewAggregator(a.store, a.cfg.Account.TimelineWindow, a.log).RunOnce(ctx)
	return err
}

func (a *app) report(ctx context.Context) error {
	c, err := a.chat(ctx)
	if err != nil {
		return err
	}
	r, _, err := report.NewGenerator(a.store, c, a.cfg.Report, a.log).Generate(ctx)
	if errors.Is(err, report.ErrNoData) {
		a.log.Warn("窗口内没有可汇总的数据，跳过日报")
		return nil
	}
	if err != nil {
		return err
	}
	a.log.Infof("日报已写入: %s", r.ReportDate)
	return nil
}

// serveMetrics 后台暴露 /metrics，返回关闭函数
func serveMetrics(addr string, l logrus.FieldLogger) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("metrics server 退出: %v", err)
		}
	}()
	l.Infof("metrics 监听 %s", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
