// Package scout 文章侦察：Stage 1 相关性过滤、Stage 2 信号抽取与文章状态机
package scout

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// Store 侦察所需的存储能力
type Store interface {
	ReclaimStaleAnalyzing(ctx context.Context, olderThan time.Time) (int64, error)
	ListArticlesByStatus(ctx context.Context, status model.ScoutStatus, limit int) ([]model.Article, error)
	TransitionArticle(ctx context.Context, id int64, from, to model.ScoutStatus) (bool, error)
	UpsertSignal(ctx context.Context, sig *model.Signal) error
}

// RelevanceClassifier Stage 1
type RelevanceClassifier interface {
	Classify(ctx context.Context, title, content string) Verdict
}

// SignalExtractor Stage 2
type SignalExtractor interface {
	Extract(ctx context.Context, a model.Article) Extraction
}

// Stats 一轮侦察的统计
type Stats struct {
	Reclaimed  int64
	Processed  int
	Irrelevant int
	Done       int
	Retry      int
	Skipped    int
	Signals    int
}

// Worker 驱动文章状态机的批处理任务
type Worker struct {
	store      Store
	classifier RelevanceClassifier
	extractor  SignalExtractor
	batchSize  int
	staleAfter time.Duration
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewWorker 创建侦察任务
func NewWorker(store Store, classifier RelevanceClassifier, extractor SignalExtractor, cfg config.ScoutConfig, l logrus.FieldLogger) *Worker {
	return &Worker{
		store:      store,
		classifier: classifier,
		extractor:  extractor,
		batchSize:  cfg.BatchSize,
		staleAfter: cfg.StaleAfter(),
		log:        logger.Or(l),
		now:        time.Now,
	}
}

// RunOnce 处理一批 pending 文章。
// 单篇文章失败只会让它回到 pending，不影响同批其他文章。
func (w *Worker) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	log := logger.ForRun(w.log, "scout")

	if w.staleAfter > 0 {
		n, err := w.store.ReclaimStaleAnalyzing(ctx, w.now().Add(-w.staleAfter))
		if err != nil {
			return stats, err
		}
		if n > 0 {
			log.Warnf("回收 %d 篇停留在 analyzing 的文章", n)
		}
		stats.Reclaimed = n
	}

	articles, err := w.store.ListArticlesByStatus(ctx, model.StatusPending, w.batchSize)
	if err != nil {
		return stats, err
	}
	log.Infof("本轮待处理文章 %d 篇", len(articles))

	for _, a := range articles {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		alog := log.WithField("article_id", a.ID)
		outcome, n, err := w.processArticle(ctx, a)
		if err != nil {
			alog.Errorf("处理失败，已退回 pending: %v", err)
		}
		metrics.ScoutArticles.WithLabelValues(outcome).Inc()

		stats.Processed++
		switch outcome {
		case "irrelevant":
			stats.Irrelevant++
		case "done":
			stats.Done++
			stats.Signals += n
			alog.Infof("抽取信号 %d 条", n)
		case "skipped":
			stats.Skipped++
		case "reclaimed":
			stats.Retry++
			alog.Warn("处理期间文章已被回收，留待下一轮")
		default:
			stats.Retry++
		}
	}

	log.Infof("侦察完成: done=%d irrelevant=%d retry=%d signals=%d",
		stats.Done, stats.Irrelevant, stats.Retry, stats.Signals)
	return stats, nil
}

// processArticle 处理单篇文章，返回结果标签与写入的信号数。
// 进入 analyzing 后任何错误或 panic 都会把文章退回 pending。
func (w *Worker) processArticle(ctx context.Context, a model.Article) (outcome string, stored int, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = "error", fmt.Errorf("panic: %v", r)
		}
	}()

	verdict := w.classifier.Classify(ctx, a.Title, a.Content)
	switch verdict.Outcome {
	case ClassificationFailed:
		return "classify_failed", 0, fmt.Errorf("classify: %w", verdict.Err)
	case NotRelevant:
		if _, err := w.store.TransitionArticle(ctx, a.ID, model.StatusPending, model.StatusIrrelevant); err != nil {
			return "error", 0, err
		}
		return "irrelevant", 0, nil
	}

	claimed, err := w.store.TransitionArticle(ctx, a.ID, model.StatusPending, model.StatusAnalyzing)
	if err != nil {
		return "error", 0, err
	}
	if !claimed {
		// 已被其他进程处理
		return "skipped", 0, nil
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if _, rbErr := w.store.TransitionArticle(context.WithoutCancel(ctx), a.ID, model.StatusAnalyzing, model.StatusPending); rbErr != nil {
			w.log.Errorf("文章 %d 回滚到 pending 失败: %v", a.ID, rbErr)
		}
	}()

	extraction := w.extractor.Extract(ctx, a)
	if extraction.Err != nil {
		return "extract_failed", 0, fmt.Errorf("extract: %w", extraction.Err)
	}

	now := w.now()
	for _, c := range extraction.Signals {
		sig := model.NewSignal(a.ID, c, now)
		if err := w.store.UpsertSignal(ctx, &sig); err != nil {
			return "error", stored, err
		}
		stored++
	}
	metrics.SignalsStored.Add(float64(stored))

	ok, err := w.store.TransitionArticle(ctx, a.ID, model.StatusAnalyzing, model.StatusDone)
	if err != nil {
		return "error", stored, err
	}
	finished = true
	if !ok {
		// 已被回收为 pending，下一轮会重新处理，信号写入是幂等的
		return "reclaimed", stored, nil
	}
	return "done", stored, nil
}
