package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// crawler_state 是单行表
const stateRowID = 1

// LastCrawledAt 返回爬虫游标，尚未爬取过时返回零值
func (s *Storage) LastCrawledAt(ctx context.Context) (time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT last_crawled_at FROM crawler_state WHERE id = $1`, stateRowID).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read crawler state: %w", err)
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

// SetLastCrawledAt 更新爬虫游标
func (s *Storage) SetLastCrawledAt(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawler_state (id, last_crawled_at) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET last_crawled_at = excluded.last_crawled_at`,
		stateRowID, stamp(t))
	if err != nil {
		return fmt.Errorf("failed to update crawler state: %w", err)
	}
	return nil
}

// LastMatchedArticleID 返回客户匹配游标
func (s *Storage) LastMatchedArticleID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_matched_article_id FROM crawler_state WHERE id = $1`, stateRowID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read matcher state: %w", err)
	}
	return id, nil
}

// SetLastMatchedArticleID 更新客户匹配游标
func (s *Storage) SetLastMatchedArticleID(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawler_state (id, last_matched_article_id) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET last_matched_article_id = excluded.last_matched_article_id`,
		stateRowID, id)
	if err != nil {
		return fmt.Errorf("failed to update matcher state: %w", err)
	}
	return nil
}
