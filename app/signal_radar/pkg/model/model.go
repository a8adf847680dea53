package model

import (
	"errors"
	"fmt"
	"time"
)

// ScoutStatus 文章生命周期状态
type ScoutStatus string

const (
	StatusPending    ScoutStatus = "pending"
	StatusAnalyzing  ScoutStatus = "analyzing"
	StatusIrrelevant ScoutStatus = "irrelevant"
	StatusDone       ScoutStatus = "done"
)

// ErrInvalidTransition 非法的状态迁移
var ErrInvalidTransition = errors.New("invalid scout status transition")

// transitions 允许的状态迁移表，irrelevant 与 done 为终态
var transitions = map[ScoutStatus][]ScoutStatus{
	StatusPending:   {StatusAnalyzing, StatusIrrelevant},
	StatusAnalyzing: {StatusDone, StatusPending},
}

// Terminal 是否为终态
func (s ScoutStatus) Terminal() bool {
	return s == StatusIrrelevant || s == StatusDone
}

// CanTransition 判断 s -> to 是否合法
func (s ScoutStatus) CanTransition(to ScoutStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition 校验状态迁移，非法时返回 ErrInvalidTransition
func CheckTransition(from, to ScoutStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ImpactType 信号影响类型
type ImpactType string

const (
	ImpactRisk        ImpactType = "risk"
	ImpactOpportunity ImpactType = "opportunity"
)

// Valid 是否为已知影响类型
func (t ImpactType) Valid() bool {
	return t == ImpactRisk || t == ImpactOpportunity
}

// RawArticle 爬虫产出的原始文章
type RawArticle struct {
	Title       string
	URL         string
	Content     string // 正文或摘要，可能包含 HTML
	Source      string
	PublishedAt time.Time
}

// Article 已入库的文章
type Article struct {
	ID          int64
	URL         string
	Title       string
	Content     string
	ContentHash string
	Source      string
	PublishedAt time.Time
	ScoutStatus ScoutStatus
	CreatedAt   time.Time
}

// SignalCandidate Stage 2 抽取并校验后的信号候选
type SignalCandidate struct {
	CompanyName    string     `json:"company_name"`
	EventType      string     `json:"event_type"`
	ImpactType     ImpactType `json:"impact_type"`
	ImpactStrength int        `json:"impact_strength"`
	SignalCategory string     `json:"signal_category,omitempty"`
	IndustryTag    string     `json:"industry_tag,omitempty"`
	TrendBucket    string     `json:"trend_bucket,omitempty"`
	SeverityLevel  int        `json:"severity_level,omitempty"`
	Confidence     float64    `json:"confidence"`
}

// Signal 持久化的业务信号，(article_id, company_name, event_type) 唯一
type Signal struct {
	ID             int64
	ArticleID      int64
	CompanyName    string
	EventType      string
	ImpactType     ImpactType
	ImpactStrength int
	SignalCategory string
	IndustryTag    string
	TrendBucket    string
	SeverityLevel  int
	Confidence     float64
	CreatedAt      time.Time
}

// NewSignal 由候选构造待写入的信号
func NewSignal(articleID int64, c SignalCandidate, now time.Time) Signal {
	return Signal{
		ArticleID:      articleID,
		CompanyName:    c.CompanyName,
		EventType:      c.EventType,
		ImpactType:     c.ImpactType,
		ImpactStrength: c.ImpactStrength,
		SignalCategory: c.SignalCategory,
		IndustryTag:    c.IndustryTag,
		TrendBucket:    c.TrendBucket,
		SeverityLevel:  c.SeverityLevel,
		Confidence:     c.Confidence,
		CreatedAt:      now,
	}
}

// Company 企业，分数列仅为缓存，真实值由 signals 聚合得出
type Company struct {
	ID               int64
	CompanyName      string
	RiskScore        float64
	OpportunityScore float64
	SignalCount      int
	UpdatedAt        time.Time
}

// CompanySummary 企业信号聚合视图
type CompanySummary struct {
	CompanyName      string `json:"company_name"`
	RiskScore        int64  `json:"risk_score"`
	OpportunityScore int64  `json:"opportunity_score"`
	SignalCount      int64  `json:"signal_count"`
}

// IndustryTrend 行业趋势聚合视图
type IndustryTrend struct {
	IndustryTag     string  `json:"industry_tag"`
	TrendBucket     string  `json:"trend_bucket"`
	SignalCount     int64   `json:"signal_count"`
	AverageStrength float64 `json:"average_strength"`
}

// Customer 客户账户
type Customer struct {
	ID   int64
	Name string
}

// AccountSignal 信号对账户的影响，(customer_id, signal_id) 唯一
type AccountSignal struct {
	CustomerID  int64
	SignalID    int64
	ImpactScore int
	CreatedAt   time.Time
}

// RiskTimelineEntry 账户每日风险，(customer_id, date) 唯一
type RiskTimelineEntry struct {
	CustomerID          int64  `json:"customer_id"`
	Date                string `json:"date"`
	DailyRiskScore      int64  `json:"daily_risk_score"`
	CumulativeRiskScore int64  `json:"cumulative_risk_score"`
}

// AccountRisk 账户最新风险（带客户名）
type AccountRisk struct {
	CustomerID          int64  `json:"customer_id"`
	CustomerName        string `json:"customer_name"`
	Date                string `json:"date"`
	DailyRiskScore      int64  `json:"daily_risk_score"`
	CumulativeRiskScore int64  `json:"cumulative_risk_score"`
}

// DailyReport 每日报告，report_date 唯一
type DailyReport struct {
	ReportDate string
	Summary    string
	CreatedAt  time.Time
}

// DateLayout 日期列格式
const DateLayout = time.DateOnly

// Day 将时间格式化为 UTC 日期
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
