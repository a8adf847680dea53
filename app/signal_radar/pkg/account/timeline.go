package account

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/storage"
)

// TimelineStore 风险时间线所需的存储能力
type TimelineStore interface {
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	SumAccountImpact(ctx context.Context, customerID int64, start, end time.Time) (int64, error)
	LatestTimelineBefore(ctx context.Context, customerID int64, date string) (*model.RiskTimelineEntry, error)
	InsertTimelineEntry(ctx context.Context, e *model.RiskTimelineEntry) (bool, error)
}

// TimelineStats 一轮聚合的统计
type TimelineStats struct {
	Customers int
	Inserted  int
	Existing  int
}

// Aggregator 每日风险时间线聚合任务
type Aggregator struct {
	store  TimelineStore
	window config.TimelineWindow
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewAggregator 创建聚合任务，window 决定日风险分的统计范围
func NewAggregator(store TimelineStore, window config.TimelineWindow, l logrus.FieldLogger) *Aggregator {
	if window == "" {
		window = config.WindowAllTime
	}
	return &Aggregator{store: store, window: window, log: logger.Or(l), now: time.Now}
}

// RunOnce 为每个客户写入今天的时间线记录
func (a *Aggregator) RunOnce(ctx context.Context) (TimelineStats, error) {
	var stats TimelineStats
	log := logger.ForRun(a.log, "timeline")

	customers, err := a.store.ListCustomers(ctx)
	if err != nil {
		return stats, err
	}

	day := a.now()
	for _, c := range customers {
		entry, inserted, err := a.Aggregate(ctx, c.ID, day)
		if err != nil {
			return stats, err
		}
		stats.Customers++
		if inserted {
			stats.Inserted++
			log.Debugf("客户 %s: daily=%d cumulative=%d", c.Name, entry.DailyRiskScore, entry.CumulativeRiskScore)
		} else {
			stats.Existing++
		}
	}

	metrics.TimelineEntries.Add(float64(stats.Inserted))
	log.Infof("时间线完成: customers=%d inserted=%d existing=%d", stats.Customers, stats.Inserted, stats.Existing)
	return stats, nil
}

// Aggregate 计算客户在 day 当天的记录：累计分 = 前一条记录的累计分 + 当日分。
// 当天已有记录时不覆盖，返回 inserted=false。
func (a *Aggregator) Aggregate(ctx context.Context, customerID int64, day time.Time) (*model.RiskTimelineEntry, bool, error) {
	date := model.Day(day)

	var start, end time.Time
	if a.window == config.WindowDaily {
		start, _ = time.Parse(model.DateLayout, date)
		end = start.AddDate(0, 0, 1)
	}
	daily, err := a.store.SumAccountImpact(ctx, customerID, start, end)
	if err != nil {
		return nil, false, err
	}

	var prev int64
	last, err := a.store.LatestTimelineBefore(ctx, customerID, date)
	switch {
	case err == nil:
		prev = last.CumulativeRiskScore
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, false, err
	}

	entry := &model.RiskTimelineEntry{
		CustomerID:          customerID,
		Date:                date,
		DailyRiskScore:      daily,
		CumulativeRiskScore: prev + daily,
	}
	inserted, err := a.store.InsertTimelineEntry(ctx, entry)
	if err != nil {
		return nil, false, err
	}
	return entry, inserted, nil
}
