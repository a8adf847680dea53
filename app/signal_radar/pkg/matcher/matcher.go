// Package matcher 按客户名在文章中的出现情况建立文章与客户的关联
package matcher

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// Store 匹配所需的存储能力
type Store interface {
	UpsertCustomer(ctx context.Context, name string) (int64, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	ListArticlesAfter(ctx context.Context, afterID int64, limit int) ([]model.Article, error)
	InsertArticleCustomer(ctx context.Context, articleID, customerID int64, keyword string) (bool, error)
	LastMatchedArticleID(ctx context.Context) (int64, error)
	SetLastMatchedArticleID(ctx context.Context, id int64) error
}

// Stats 一轮匹配的统计
type Stats struct {
	Articles int
	Links    int
}

// Matcher 文章-客户匹配任务，按文章 ID 游标增量处理
type Matcher struct {
	store     Store
	batchSize int
	log       logrus.FieldLogger
}

// NewMatcher 创建匹配任务
func NewMatcher(store Store, batchSize int, l logrus.FieldLogger) *Matcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Matcher{store: store, batchSize: batchSize, log: logger.Or(l)}
}

// SeedCustomers 确保配置中的客户存在
func (m *Matcher) SeedCustomers(ctx context.Context, names []string) (int, error) {
	n := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := m.store.UpsertCustomer(ctx, name); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// RunOnce 处理游标之后的全部文章
func (m *Matcher) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	log := logger.ForRun(m.log, "match")

	customers, err := m.store.ListCustomers(ctx)
	if err != nil {
		return stats, err
	}
	if len(customers) == 0 {
		log.Info("没有客户，跳过匹配")
		return stats, nil
	}

	cursor, err := m.store.LastMatchedArticleID(ctx)
	if err != nil {
		return stats, err
	}

	for {
		articles, err := m.store.ListArticlesAfter(ctx, cursor, m.batchSize)
		if err != nil {
			return stats, err
		}
		if len(articles) == 0 {
			break
		}

		for _, a := range articles {
			for _, c := range Match(customers, a.Title+"\n"+a.Content) {
				inserted, err := m.store.InsertArticleCustomer(ctx, a.ID, c.ID, c.Name)
				if err != nil {
					return stats, err
				}
				if inserted {
					stats.Links++
					log.Debugf("文章 %d 关联客户 %s", a.ID, c.Name)
				}
			}
			cursor = a.ID
			stats.Articles++
		}

		if err := m.store.SetLastMatchedArticleID(ctx, cursor); err != nil {
			return stats, err
		}
	}

	log.Infof("匹配完成: articles=%d links=%d", stats.Articles, stats.Links)
	return stats, nil
}

// Match 返回名称出现在 text 中的客户，忽略大小写
func Match(customers []model.Customer, text string) []model.Customer {
	lower := strings.ToLower(text)
	var matched []model.Customer
	for _, c := range customers {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name != "" && strings.Contains(lower, name) {
			matched = append(matched, c)
		}
	}
	return matched
}
