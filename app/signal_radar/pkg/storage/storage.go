package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Storage 数据存储，所有写入都以唯一键上的 upsert/ignore 表达
type Storage struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewStorage 按配置打开数据库并初始化表结构
func NewStorage(cfg config.DBConfig) (*Storage, error) {
	return Open(cfg.Driver, cfg.DSN())
}

// Open 打开 postgres 或 sqlite 数据库
func Open(driver, dsn string) (*Storage, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "postgres":
		db, err = sql.Open("postgres", dsn)
	case "sqlite":
		db, err = openSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db, driver: driver, now: time.Now}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_time_format=sqlite"
	} else {
		dsn += "?_time_format=sqlite"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// 单连接：内存库每个连接都是独立的数据库，文件库也避免写锁竞争
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

// Close 关闭连接
func (s *Storage) Close() error {
	return s.db.Close()
}

// Driver 返回当前驱动名
func (s *Storage) Driver() string {
	return s.driver
}

func (s *Storage) initSchema(ctx context.Context) error {
	idColumn := "BIGSERIAL PRIMARY KEY"
	if s.driver == "sqlite" {
		idColumn = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id ` + idColumn + `,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMP,
			scout_status TEXT NOT NULL DEFAULT 'pending',
			status_changed_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_scout_status ON articles (scout_status)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_content_hash ON articles (content_hash)`,
		`CREATE TABLE IF NOT EXISTS companies (
			id ` + idColumn + `,
			company_name TEXT NOT NULL UNIQUE,
			risk_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			opportunity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			signal_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id ` + idColumn + `,
			article_id BIGINT NOT NULL REFERENCES articles(id),
			company_name TEXT NOT NULL,
			event_type TEXT NOT NULL,
			impact_type TEXT NOT NULL,
			impact_strength INTEGER NOT NULL,
			signal_category TEXT NOT NULL DEFAULT '',
			industry_tag TEXT NOT NULL DEFAULT '',
			trend_bucket TEXT NOT NULL DEFAULT '',
			severity_level INTEGER NOT NULL DEFAULT 0,
			confidence DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (article_id, company_name, event_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals (created_at)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id ` + idColumn + `,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS article_customer_map (
			article_id BIGINT NOT NULL REFERENCES articles(id),
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			matched_keyword TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (article_id, customer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS account_signals (
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			signal_id BIGINT NOT NULL REFERENCES signals(id),
			impact_score INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (customer_id, signal_id)
		)`,
		`CREATE TABLE IF NOT EXISTS account_risk_timeline (
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			date TEXT NOT NULL,
			daily_risk_score BIGINT NOT NULL,
			cumulative_risk_score BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (customer_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_opportunity_reports (
			id ` + idColumn + `,
			report_date TEXT NOT NULL UNIQUE,
			summary TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS crawler_state (
			id INTEGER PRIMARY KEY,
			last_crawled_at TIMESTAMP,
			last_matched_article_id BIGINT NOT NULL DEFAULT 0
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

// stamp 统一存储时间精度与时区
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (s *Storage) stampNow() time.Time {
	return stamp(s.now())
}
