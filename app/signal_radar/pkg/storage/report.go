package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// UpsertReport 写入日报，同一天重复生成时覆盖
func (s *Storage) UpsertReport(ctx context.Context, r *model.DailyReport) error {
	now := s.stampNow()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_opportunity_reports (report_date, summary, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (report_date) DO UPDATE SET
			summary = excluded.summary,
			created_at = excluded.created_at`,
		r.ReportDate, removeNullBytes(r.Summary), now)
	if err != nil {
		return fmt.Errorf("failed to upsert report: %w", err)
	}
	r.CreatedAt = now
	return nil
}

// ReportByDate 查询指定日期的日报
func (s *Storage) ReportByDate(ctx context.Context, date string) (*model.DailyReport, error) {
	return s.queryReport(ctx, `
		SELECT report_date, summary, created_at FROM daily_opportunity_reports
		WHERE report_date = $1`, date)
}

// LatestReport 查询最新一份日报
func (s *Storage) LatestReport(ctx context.Context) (*model.DailyReport, error) {
	return s.queryReport(ctx, `
		SELECT report_date, summary, created_at FROM daily_opportunity_reports
		ORDER BY report_date DESC LIMIT 1`)
}

// CountReports 日报总数
func (s *Storage) CountReports(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_opportunity_reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return n, nil
}

func (s *Storage) queryReport(ctx context.Context, query string, args ...any) (*model.DailyReport, error) {
	var r model.DailyReport
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&r.ReportDate, &r.Summary, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	return &r, nil
}
