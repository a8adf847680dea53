package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/signal_radar/app/display/internal/domain"
	"github.com/iWorld-y/signal_radar/app/display/internal/repo"
	dm "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

const (
	defaultLimit      = 30
	maxLimit          = 365
	defaultWindowDays = 30
)

// RadarUseCase 雷达查询业务逻辑
type RadarUseCase struct {
	repo repo.RadarRepo
	log  *log.Helper
	now  func() time.Time
}

// NewRadarUseCase 创建雷达查询业务逻辑实例
func NewRadarUseCase(repo repo.RadarRepo, logger log.Logger) *RadarUseCase {
	return &RadarUseCase{repo: repo, log: log.NewHelper(logger), now: time.Now}
}

// LatestReport 最新日报
func (uc *RadarUseCase) LatestReport(ctx context.Context) (*domain.Report, error) {
	return uc.repo.LatestReport(ctx)
}

// ReportByDate 指定日期日报，date 格式 YYYY-MM-DD
func (uc *RadarUseCase) ReportByDate(ctx context.Context, date string) (*domain.Report, error) {
	if _, err := time.Parse(dm.DateLayout, date); err != nil {
		return nil, errors.BadRequest("INVALID_DATE", "date must be YYYY-MM-DD")
	}
	return uc.repo.ReportByDate(ctx, date)
}

// AccountTimeline 账户风险时间线
func (uc *RadarUseCase) AccountTimeline(ctx context.Context, customerID int64, limit int) (*domain.AccountTimeline, error) {
	if customerID <= 0 {
		return nil, errors.BadRequest("INVALID_ACCOUNT", "account id must be positive")
	}
	return uc.repo.AccountTimeline(ctx, customerID, clampLimit(limit))
}

// AccountRisks 各账户最新风险
func (uc *RadarUseCase) AccountRisks(ctx context.Context, limit int) ([]dm.AccountRisk, error) {
	risks, err := uc.repo.AccountRisks(ctx, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	if risks == nil {
		risks = []dm.AccountRisk{}
	}
	return risks, nil
}

// Company 单个企业的分数缓存
func (uc *RadarUseCase) Company(ctx context.Context, name string) (*domain.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.BadRequest("INVALID_COMPANY", "company name is required")
	}
	return uc.repo.Company(ctx, name)
}

// ArticleSignals 文章抽取出的信号
func (uc *RadarUseCase) ArticleSignals(ctx context.Context, articleID int64) (*domain.ArticleSignals, error) {
	if articleID <= 0 {
		return nil, errors.BadRequest("INVALID_ARTICLE", "article id must be positive")
	}
	return uc.repo.ArticleSignals(ctx, articleID)
}

// Status 流水线概况
func (uc *RadarUseCase) Status(ctx context.Context) (*domain.PipelineStatus, error) {
	return uc.repo.Status(ctx)
}

// CompanyOverview 最近 days 天的企业与行业聚合
func (uc *RadarUseCase) CompanyOverview(ctx context.Context, days, limit int) (*domain.CompanyOverview, error) {
	if days <= 0 {
		days = defaultWindowDays
	}
	if days > maxLimit {
		days = maxLimit
	}
	since := uc.now().UTC().AddDate(0, 0, -days)
	o, err := uc.repo.CompanyOverview(ctx, since, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	o.WindowDays = days
	return o, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
