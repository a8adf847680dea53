package repo

import (
	"context"
	"time"

	"github.com/iWorld-y/signal_radar/app/display/internal/domain"
	dm "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// RadarRepo 雷达只读仓库接口
type RadarRepo interface {
	// LatestReport 最新一份日报
	LatestReport(ctx context.Context) (*domain.Report, error)
	// ReportByDate 指定日期的日报
	ReportByDate(ctx context.Context, date string) (*domain.Report, error)
	// AccountTimeline 账户时间线，按日期升序
	AccountTimeline(ctx context.Context, customerID int64, limit int) (*domain.AccountTimeline, error)
	// AccountRisks 各账户最新风险，按累计分降序
	AccountRisks(ctx context.Context, limit int) ([]dm.AccountRisk, error)
	// Company 单个企业的分数缓存
	Company(ctx context.Context, name string) (*domain.Company, error)
	// ArticleSignals 文章与其信号
	ArticleSignals(ctx context.Context, articleID int64) (*domain.ArticleSignals, error)
	// Status 各状态文章数与日报数
	Status(ctx context.Context) (*domain.PipelineStatus, error)
	// CompanyOverview since 之后的企业与行业聚合
	CompanyOverview(ctx context.Context, since time.Time, limit int) (*domain.CompanyOverview, error)
}
