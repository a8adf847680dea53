// Package metrics 批处理任务的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "signal_radar"

var (
	// ArticlesIngested 入库闸门处理结果
	// Labels: result (accepted, duplicate, too_short, invalid, error)
	ArticlesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "articles_total",
			Help:      "Total number of crawled articles by ingestion result",
		},
		[]string{"result"},
	)

	// ScoutArticles 文章侦察结果
	// Labels: outcome (irrelevant, done, classify_failed, extract_failed, error, skipped)
	ScoutArticles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "articles_total",
			Help:      "Total number of articles processed by the scout pass by outcome",
		},
		[]string{"outcome"},
	)

	// SignalsStored 写入的信号数
	SignalsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "signals_stored_total",
			Help:      "Total number of signals upserted",
		},
	)

	// CandidatesDropped 校验未通过的信号候选
	// Labels: reason (malformed, missing_field, impact_type, low_confidence)
	CandidatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "candidates_dropped_total",
			Help:      "Total number of extracted candidates rejected by validation",
		},
		[]string{"reason"},
	)

	// AccountSignals 新写入的账户影响
	AccountSignals = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "signals_mapped_total",
			Help:      "Total number of account signal rows inserted",
		},
	)

	// TimelineEntries 新写入的风险时间线记录
	TimelineEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "timeline_entries_total",
			Help:      "Total number of risk timeline rows inserted",
		},
	)

	// LLMRequests LLM 调用次数
	// Labels: result (success, retry, error)
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of chat model requests by result",
		},
		[]string{"result"},
	)

	// LLMLatency 单次 LLM 调用耗时
	LLMLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Duration of chat model requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)

	// PassDuration 批处理耗时
	// Labels: job
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of batch passes in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		},
		[]string{"job"},
	)

	// PassTotal 批处理执行次数
	// Labels: job, result (success, error)
	PassTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Total number of batch passes by job and result",
		},
		[]string{"job", "result"},
	)
)

// ObservePass 记录一次批处理的耗时与结果
func ObservePass(job string, start time.Time, err error) {
	PassDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	result := "success"
	if err != nil {
		result = "error"
	}
	PassTotal.WithLabelValues(job, result).Inc()
}
