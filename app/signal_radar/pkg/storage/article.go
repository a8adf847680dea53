package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

const articleColumns = `id, url, title, content, content_hash, source, published_at, scout_status, created_at`

// ArticleExists 判断同 URL 的文章是否已存在
func (s *Storage) ArticleExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article: %w", err)
	}
	return exists, nil
}

// InsertArticle 以 pending 状态写入文章；URL 已存在时不做任何修改并返回 inserted=false
func (s *Storage) InsertArticle(ctx context.Context, a *model.Article) (bool, error) {
	now := s.stampNow()
	var published any
	if !a.PublishedAt.IsZero() {
		published = stamp(a.PublishedAt)
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (url, title, content, content_hash, source, published_at, scout_status, status_changed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`,
		a.URL, removeNullBytes(a.Title), removeNullBytes(a.Content), a.ContentHash, a.Source,
		published, string(model.StatusPending), now).Scan(&a.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}
	a.ScoutStatus = model.StatusPending
	a.CreatedAt = now
	return true, nil
}

// GetArticle 按 ID 查询文章
func (s *Storage) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}
	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNotFound
	}
	return &articles[0], nil
}

// ListArticlesByStatus 按 ID 顺序取出指定状态的文章
func (s *Storage) ListArticlesByStatus(ctx context.Context, status model.ScoutStatus, limit int) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE scout_status = $1 ORDER BY id LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return scanArticles(rows)
}

// ListArticlesAfter 取 ID 大于 afterID 的文章，用于游标式遍历
func (s *Storage) ListArticlesAfter(ctx context.Context, afterID int64, limit int) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id > $1 ORDER BY id LIMIT $2`,
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return scanArticles(rows)
}

// TransitionArticle 条件更新文章状态（compare-and-set）。
// 当前状态不是 from 时不修改，返回 false。
func (s *Storage) TransitionArticle(ctx context.Context, id int64, from, to model.ScoutStatus) (bool, error) {
	if err := model.CheckTransition(from, to); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET scout_status = $1, status_changed_at = $2
		WHERE id = $3 AND scout_status = $4`,
		string(to), s.stampNow(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update article status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReclaimStaleAnalyzing 将 analyzing 状态停留超过 olderThan 的文章退回 pending
func (s *Storage) ReclaimStaleAnalyzing(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET scout_status = $1, status_changed_at = $2
		WHERE scout_status = $3 AND status_changed_at < $4`,
		string(model.StatusPending), s.stampNow(), string(model.StatusAnalyzing), stamp(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim articles: %w", err)
	}
	return res.RowsAffected()
}

// CountArticlesByStatus 各状态文章数量
func (s *Storage) CountArticlesByStatus(ctx context.Context) (map[model.ScoutStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scout_status, COUNT(*) FROM articles GROUP BY scout_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ScoutStatus]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.ScoutStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanArticles(rows *sql.Rows) ([]model.Article, error) {
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var (
			a         model.Article
			status    string
			published sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Content, &a.ContentHash, &a.Source,
			&published, &status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.ScoutStatus = model.ScoutStatus(status)
		if published.Valid {
			a.PublishedAt = published.Time
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// removeNullBytes PostgreSQL 文本字段不支持 NULL 字节
func removeNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
