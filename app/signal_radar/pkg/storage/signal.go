package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

const signalColumns = `id, article_id, company_name, event_type, impact_type, impact_strength,
	signal_category, industry_tag, trend_bucket, severity_level, confidence, created_at`

// EnsureCompany 企业不存在时以零分创建，已存在时不做修改
func (s *Storage) EnsureCompany(ctx context.Context, name string) error {
	now := s.stampNow()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (company_name, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (company_name) DO NOTHING`, name, now)
	if err != nil {
		return fmt.Errorf("failed to ensure company: %w", err)
	}
	return nil
}

// UpsertSignal 写入信号，(article_id, company_name, event_type) 冲突时以新值覆盖。
// 写入前保证企业存在，不触碰企业分数。
func (s *Storage) UpsertSignal(ctx context.Context, sig *model.Signal) error {
	if err := s.EnsureCompany(ctx, sig.CompanyName); err != nil {
		return err
	}

	createdAt := s.stampNow()
	if !sig.CreatedAt.IsZero() {
		createdAt = stamp(sig.CreatedAt)
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO signals (article_id, company_name, event_type, impact_type, impact_strength,
			signal_category, industry_tag, trend_bucket, severity_level, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (article_id, company_name, event_type) DO UPDATE SET
			impact_type = excluded.impact_type,
			impact_strength = excluded.impact_strength,
			signal_category = excluded.signal_category,
			industry_tag = excluded.industry_tag,
			trend_bucket = excluded.trend_bucket,
			severity_level = excluded.severity_level,
			confidence = excluded.confidence
		RETURNING id`,
		sig.ArticleID, sig.CompanyName, sig.EventType, string(sig.ImpactType), sig.ImpactStrength,
		sig.SignalCategory, sig.IndustryTag, sig.TrendBucket, sig.SeverityLevel, sig.Confidence,
		createdAt).Scan(&sig.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert signal: %w", err)
	}
	return nil
}

// ListSignalsByArticle 查询文章下的全部信号
func (s *Storage) ListSignalsByArticle(ctx context.Context, articleID int64) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE article_id = $1 ORDER BY id`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	return scanSignals(rows)
}

// GetCompany 按名称查询企业
func (s *Storage) GetCompany(ctx context.Context, name string) (*model.Company, error) {
	var c model.Company
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_name, risk_score, opportunity_score, signal_count, updated_at
		FROM companies WHERE company_name = $1`, name).
		Scan(&c.ID, &c.CompanyName, &c.RiskScore, &c.OpportunityScore, &c.SignalCount, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// SummaryOrder 企业聚合排序方式
type SummaryOrder string

const (
	OrderByRisk        SummaryOrder = "risk"
	OrderByOpportunity SummaryOrder = "opportunity"
)

// CompanySummaries 按 since 之后的信号聚合企业风险/机会分，取前 limit 名
func (s *Storage) CompanySummaries(ctx context.Context, since time.Time, order SummaryOrder, limit int) ([]model.CompanySummary, error) {
	orderColumn := "risk_score"
	if order == OrderByOpportunity {
		orderColumn = "opportunity_score"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_name,
			COALESCE(SUM(CASE WHEN impact_type = 'risk' THEN impact_strength ELSE 0 END), 0) AS risk_score,
			COALESCE(SUM(CASE WHEN impact_type = 'opportunity' THEN impact_strength ELSE 0 END), 0) AS opportunity_score,
			COUNT(*) AS signal_count
		FROM signals
		WHERE created_at >= $1
		GROUP BY company_name
		ORDER BY `+orderColumn+` DESC, company_name
		LIMIT $2`, stamp(since), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate companies: %w", err)
	}
	defer rows.Close()

	var summaries []model.CompanySummary
	for rows.Next() {
		var cs model.CompanySummary
		if err := rows.Scan(&cs.CompanyName, &cs.RiskScore, &cs.OpportunityScore, &cs.SignalCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}

// IndustryTrends 按行业标签与趋势分组统计 since 之后的信号
func (s *Storage) IndustryTrends(ctx context.Context, since time.Time, limit int) ([]model.IndustryTrend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT industry_tag, trend_bucket, COUNT(*) AS signal_count,
			AVG(CAST(impact_strength AS DOUBLE PRECISION)) AS average_strength
		FROM signals
		WHERE created_at >= $1 AND industry_tag <> ''
		GROUP BY industry_tag, trend_bucket
		ORDER BY signal_count DESC, industry_tag, trend_bucket
		LIMIT $2`, stamp(since), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate industry trends: %w", err)
	}
	defer rows.Close()

	var trends []model.IndustryTrend
	for rows.Next() {
		var t model.IndustryTrend
		if err := rows.Scan(&t.IndustryTag, &t.TrendBucket, &t.SignalCount, &t.AverageStrength); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// RefreshCompanyScores 用信号聚合结果重算企业分数缓存列
func (s *Storage) RefreshCompanyScores(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET
			risk_score = COALESCE((SELECT SUM(impact_strength) FROM signals
				WHERE signals.company_name = companies.company_name AND impact_type = 'risk'), 0),
			opportunity_score = COALESCE((SELECT SUM(impact_strength) FROM signals
				WHERE signals.company_name = companies.company_name AND impact_type = 'opportunity'), 0),
			signal_count = (SELECT COUNT(*) FROM signals
				WHERE signals.company_name = companies.company_name),
			updated_at = $1`, s.stampNow())
	if err != nil {
		return 0, fmt.Errorf("failed to refresh company scores: %w", err)
	}
	return res.RowsAffected()
}

func scanSignals(rows *sql.Rows) ([]model.Signal, error) {
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var (
			sig        model.Signal
			impactType string
		)
		if err := rows.Scan(&sig.ID, &sig.ArticleID, &sig.CompanyName, &sig.EventType, &impactType,
			&sig.ImpactStrength, &sig.SignalCategory, &sig.IndustryTag, &sig.TrendBucket,
			&sig.SeverityLevel, &sig.Confidence, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		sig.ImpactType = model.ImpactType(impactType)
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}
