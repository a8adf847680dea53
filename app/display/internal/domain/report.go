package domain

import (
	dm "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/report"
)

// Report 日报详情
type Report struct {
	Date      string          `json:"date"`
	CreatedAt string          `json:"created_at"`
	Summary   *report.Summary `json:"summary,omitempty"`
	// Raw 摘要无法解析时原样返回
	Raw string `json:"raw,omitempty"`
}

// AccountTimeline 账户风险时间线
type AccountTimeline struct {
	CustomerID   int64                  `json:"customer_id"`
	CustomerName string                 `json:"customer_name"`
	SignalCount  int64                  `json:"signal_count"`
	Entries      []dm.RiskTimelineEntry `json:"entries"`
}

// CompanyOverview 窗口期内的企业与行业聚合
type CompanyOverview struct {
	WindowDays       int                 `json:"window_days"`
	TopRisks         []dm.CompanySummary `json:"top_risks"`
	TopOpportunities []dm.CompanySummary `json:"top_opportunities"`
	IndustryTrends   []dm.IndustryTrend  `json:"industry_trends"`
}
