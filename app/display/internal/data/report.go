package data

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/signal_radar/app/display/internal/domain"
	"github.com/iWorld-y/signal_radar/app/display/internal/repo"
	dm "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/report"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/storage"
)

type radarRepo struct {
	data *Data
	log  *log.Helper
}

func NewRadarRepo(data *Data, logger log.Logger) repo.RadarRepo {
	return &radarRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *radarRepo) LatestReport(ctx context.Context) (*domain.Report, error) {
	rep, err := r.data.store.LatestReport(ctx)
	if err != nil {
		return nil, notFound(err, "REPORT_NOT_FOUND", "no report yet")
	}
	return r.toReport(rep), nil
}

func (r *radarRepo) ReportByDate(ctx context.Context, date string) (*domain.Report, error) {
	rep, err := r.data.store.ReportByDate(ctx, date)
	if err != nil {
		return nil, notFound(err, "REPORT_NOT_FOUND", "report not found")
	}
	return r.toReport(rep), nil
}

func (r *radarRepo) AccountTimeline(ctx context.Context, customerID int64, limit int) (*domain.AccountTimeline, error) {
	c, err := r.data.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, notFound(err, "ACCOUNT_NOT_FOUND", "account not found")
	}
	entries, err := r.data.store.Timeline(ctx, customerID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []dm.RiskTimelineEntry{}
	}
	n, err := r.data.store.CountAccountSignals(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &domain.AccountTimeline{CustomerID: c.ID, CustomerName: c.Name, SignalCount: n, Entries: entries}, nil
}

func (r *radarRepo) AccountRisks(ctx context.Context, limit int) ([]dm.AccountRisk, error) {
	return r.data.store.TopAccountRisks(ctx, limit)
}

func (r *radarRepo) Company(ctx context.Context, name string) (*domain.Company, error) {
	c, err := r.data.store.GetCompany(ctx, name)
	if err != nil {
		return nil, notFound(err, "COMPANY_NOT_FOUND", "company not found")
	}
	return &domain.Company{
		Name:             c.CompanyName,
		RiskScore:        c.RiskScore,
		OpportunityScore: c.OpportunityScore,
		SignalCount:      c.SignalCount,
		UpdatedAt:        c.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (r *radarRepo) ArticleSignals(ctx context.Context, articleID int64) (*domain.ArticleSignals, error) {
	a, err := r.data.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, notFound(err, "ARTICLE_NOT_FOUND", "article not found")
	}
	signals, err := r.data.store.ListSignalsByArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	out := &domain.ArticleSignals{
		ArticleID:   a.ID,
		Title:       a.Title,
		URL:         a.URL,
		ScoutStatus: string(a.ScoutStatus),
		Signals:     make([]domain.Signal, 0, len(signals)),
	}
	for _, sig := range signals {
		out.Signals = append(out.Signals, domain.Signal{
			CompanyName:    sig.CompanyName,
			EventType:      sig.EventType,
			ImpactType:     string(sig.ImpactType),
			ImpactStrength: sig.ImpactStrength,
			SignalCategory: sig.SignalCategory,
			IndustryTag:    sig.IndustryTag,
			TrendBucket:    sig.TrendBucket,
			SeverityLevel:  sig.SeverityLevel,
			Confidence:     sig.Confidence,
		})
	}
	return out, nil
}

func (r *radarRepo) Status(ctx context.Context) (*domain.PipelineStatus, error) {
	counts, err := r.data.store.CountArticlesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	reports, err := r.data.store.CountReports(ctx)
	if err != nil {
		return nil, err
	}

	st := &domain.PipelineStatus{Articles: make(map[string]int64, len(counts)), Reports: reports}
	for status, n := range counts {
		st.Articles[string(status)] = n
		if !status.Terminal() {
			st.Backlog += n
		}
	}
	return st, nil
}

func (r *radarRepo) CompanyOverview(ctx context.Context, since time.Time, limit int) (*domain.CompanyOverview, error) {
	risks, err := r.data.store.CompanySummaries(ctx, since, storage.OrderByRisk, limit)
	if err != nil {
		return nil, err
	}
	opps, err := r.data.store.CompanySummaries(ctx, since, storage.OrderByOpportunity, limit)
	if err != nil {
		return nil, err
	}
	trends, err := r.data.store.IndustryTrends(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	return &domain.CompanyOverview{TopRisks: risks, TopOpportunities: opps, IndustryTrends: trends}, nil
}

func (r *radarRepo) toReport(rep *dm.DailyReport) *domain.Report {
	out := &domain.Report{
		Date:      rep.ReportDate,
		CreatedAt: rep.CreatedAt.UTC().Format(time.RFC3339),
	}
	s, err := report.Decode(rep)
	if err != nil {
		r.log.Warnf("report %s summary is not valid json: %v", rep.ReportDate, err)
		out.Raw = rep.Summary
		return out
	}
	out.Summary = s
	return out
}

func notFound(err error, reason, msg string) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound(reason, msg)
	}
	return err
}
