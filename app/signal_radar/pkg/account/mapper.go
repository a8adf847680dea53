// Package account 将信号归属到客户账户并生成每日风险时间线
package account

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/scorer"
)

// MapperStore 账户映射所需的存储能力
type MapperStore interface {
	ListUnmappedSignals(ctx context.Context, limit int) ([]model.Signal, error)
	RelatedCustomers(ctx context.Context, articleID int64) ([]int64, error)
	InsertAccountSignal(ctx context.Context, as *model.AccountSignal) (bool, error)
}

// MapStats 一轮映射的统计
type MapStats struct {
	Signals  int
	Inserted int
	Existing int
}

// Mapper 信号到账户的映射任务
type Mapper struct {
	store     MapperStore
	batchSize int
	log       logrus.FieldLogger
}

// NewMapper 创建映射任务
func NewMapper(store MapperStore, batchSize int, l logrus.FieldLogger) *Mapper {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Mapper{store: store, batchSize: batchSize, log: logger.Or(l)}
}

// RunOnce 为每个尚未映射的信号向其文章关联的客户写入影响分。
// 重复写入由 (customer_id, signal_id) 唯一约束吸收。
func (m *Mapper) RunOnce(ctx context.Context) (MapStats, error) {
	var stats MapStats
	log := logger.ForRun(m.log, "map")

	for {
		signals, err := m.store.ListUnmappedSignals(ctx, m.batchSize)
		if err != nil {
			return stats, err
		}
		if len(signals) == 0 {
			break
		}

		inserted := 0
		for _, sig := range signals {
			n, err := m.mapSignal(ctx, sig, &stats)
			if err != nil {
				return stats, err
			}
			inserted += n
		}
		if inserted == 0 {
			// 本批没有新增，继续查询只会拿到同一批
			break
		}
	}

	metrics.AccountSignals.Add(float64(stats.Inserted))
	log.Infof("映射完成: signals=%d inserted=%d existing=%d", stats.Signals, stats.Inserted, stats.Existing)
	return stats, nil
}

func (m *Mapper) mapSignal(ctx context.Context, sig model.Signal, stats *MapStats) (int, error) {
	customers, err := m.store.RelatedCustomers(ctx, sig.ArticleID)
	if err != nil {
		return 0, err
	}
	stats.Signals++
	if len(customers) == 0 {
		return 0, nil
	}

	score := scorer.Score(sig)
	inserted := 0
	for _, customerID := range customers {
		ok, err := m.store.InsertAccountSignal(ctx, &model.AccountSignal{
			CustomerID:  customerID,
			SignalID:    sig.ID,
			ImpactScore: score,
		})
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
			stats.Inserted++
		} else {
			stats.Existing++
		}
	}
	return inserted, nil
}
