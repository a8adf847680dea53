package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// UpsertCustomer 按名称创建客户，返回客户 ID
func (s *Storage) UpsertCustomer(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, created_at) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id`, name, s.stampNow()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert customer: %w", err)
	}
	return id, nil
}

// ListCustomers 查询全部客户
func (s *Storage) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// GetCustomer 按 ID 查询客户
func (s *Storage) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM customers WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// InsertArticleCustomer 记录文章与客户的关联，已存在时忽略
func (s *Storage) InsertArticleCustomer(ctx context.Context, articleID, customerID int64, keyword string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO article_customer_map (article_id, customer_id, matched_keyword, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (article_id, customer_id) DO NOTHING`,
		articleID, customerID, keyword, s.stampNow())
	if err != nil {
		return false, fmt.Errorf("failed to insert article customer: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RelatedCustomers 返回与文章关联的客户 ID
func (s *Storage) RelatedCustomers(ctx context.Context, articleID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT customer_id FROM article_customer_map WHERE article_id = $1 ORDER BY customer_id`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query related customers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListUnmappedSignals 取出仍有关联客户未写入账户影响的信号
func (s *Storage) ListUnmappedSignals(ctx context.Context, limit int) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+` FROM signals s
		WHERE EXISTS (
			SELECT 1 FROM article_customer_map m
			WHERE m.article_id = s.article_id
			AND NOT EXISTS (
				SELECT 1 FROM account_signals a
				WHERE a.signal_id = s.id AND a.customer_id = m.customer_id
			)
		)
		ORDER BY s.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmapped signals: %w", err)
	}
	return scanSignals(rows)
}

// InsertAccountSignal 写入账户影响，(customer_id, signal_id) 已存在时忽略并返回 false
func (s *Storage) InsertAccountSignal(ctx context.Context, as *model.AccountSignal) (bool, error) {
	createdAt := s.stampNow()
	if !as.CreatedAt.IsZero() {
		createdAt = stamp(as.CreatedAt)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO account_signals (customer_id, signal_id, impact_score, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, signal_id) DO NOTHING`,
		as.CustomerID, as.SignalID, as.ImpactScore, createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert account signal: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CountAccountSignals 客户已记录的账户影响条数
func (s *Storage) CountAccountSignals(ctx context.Context, customerID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM account_signals WHERE customer_id = $1`, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count account signals: %w", err)
	}
	return n, nil
}

// SumAccountImpact 汇总客户在 [start, end) 内的影响分，零值表示不设该边界
func (s *Storage) SumAccountImpact(ctx context.Context, customerID int64, start, end time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(impact_score), 0) FROM account_signals WHERE customer_id = $1`
	args := []any{customerID}
	if !start.IsZero() {
		args = append(args, stamp(start))
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, stamp(end))
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	var sum int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum account impact: %w", err)
	}
	return sum, nil
}

// LatestTimelineBefore 返回客户在 date 之前最近的一条时间线记录，没有时返回 ErrNotFound
func (s *Storage) LatestTimelineBefore(ctx context.Context, customerID int64, date string) (*model.RiskTimelineEntry, error) {
	var e model.RiskTimelineEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT customer_id, date, daily_risk_score, cumulative_risk_score
		FROM account_risk_timeline
		WHERE customer_id = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1`, customerID, date).
		Scan(&e.CustomerID, &e.Date, &e.DailyRiskScore, &e.CumulativeRiskScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	return &e, nil
}

// InsertTimelineEntry 写入当日记录，(customer_id, date) 已存在时不覆盖
func (s *Storage) InsertTimelineEntry(ctx context.Context, e *model.RiskTimelineEntry) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO account_risk_timeline (customer_id, date, daily_risk_score, cumulative_risk_score, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, date) DO NOTHING`,
		e.CustomerID, e.Date, e.DailyRiskScore, e.CumulativeRiskScore, s.stampNow())
	if err != nil {
		return false, fmt.Errorf("failed to insert timeline entry: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Timeline 按日期升序返回客户最近 limit 天的时间线
func (s *Storage) Timeline(ctx context.Context, customerID int64, limit int) ([]model.RiskTimelineEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, date, daily_risk_score, cumulative_risk_score
		FROM account_risk_timeline
		WHERE customer_id = $1
		ORDER BY date DESC
		LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	var entries []model.RiskTimelineEntry
	for rows.Next() {
		var e model.RiskTimelineEntry
		if err := rows.Scan(&e.CustomerID, &e.Date, &e.DailyRiskScore, &e.CumulativeRiskScore); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// TopAccountRisks 取各客户最新一条时间线，按累计风险降序
func (s *Storage) TopAccountRisks(ctx context.Context, limit int) ([]model.AccountRisk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, t.date, t.daily_risk_score, t.cumulative_risk_score
		FROM customers c
		JOIN account_risk_timeline t ON t.customer_id = c.id
		WHERE t.date = (SELECT MAX(date) FROM account_risk_timeline WHERE customer_id = c.id)
		ORDER BY t.cumulative_risk_score DESC, c.name
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query account risks: %w", err)
	}
	defer rows.Close()

	var risks []model.AccountRisk
	for rows.Next() {
		var r model.AccountRisk
		if err := rows.Scan(&r.CustomerID, &r.CustomerName, &r.Date, &r.DailyRiskScore, &r.CumulativeRiskScore); err != nil {
			return nil, err
		}
		risks = append(risks, r)
	}
	return risks, rows.Err()
}
