// Package report 生成每日风险/机会雷达报告
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/llm"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	dm "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/storage"
)

// ErrNoData 统计窗口内没有任何信号或账户数据
var ErrNoData = errors.New("no signal data for report")

// Store 报告所需的只读聚合与写入能力
type Store interface {
	CompanySummaries(ctx context.Context, since time.Time, order storage.SummaryOrder, limit int) ([]dm.CompanySummary, error)
	IndustryTrends(ctx context.Context, since time.Time, limit int) ([]dm.IndustryTrend, error)
	TopAccountRisks(ctx context.Context, limit int) ([]dm.AccountRisk, error)
	RefreshCompanyScores(ctx context.Context) (int64, error)
	UpsertReport(ctx context.Context, r *dm.DailyReport) error
}

// AccountAction 单个重点客户的建议
type AccountAction struct {
	Company           string `json:"company" validate:"required"`
	Reason            string `json:"reason"`
	RecommendedAction string `json:"recommended_action"`
	Priority          string `json:"priority"`
}

// Summary 报告正文，即 daily_opportunity_reports.summary 中保存的 JSON
type Summary struct {
	DailySummary        string          `json:"daily_summary" validate:"required"`
	Accounts            []AccountAction `json:"accounts" validate:"dive"`
	IndustrySummary     string          `json:"industry_summary,omitempty"`
	RisingTrends        string          `json:"rising_trends,omitempty"`
	RiskAnalysis        string          `json:"risk_analysis,omitempty"`
	OpportunityStrategy string          `json:"opportunity_strategy,omitempty"`
	OverallStrategy     string          `json:"overall_strategy,omitempty"`
}

// Inputs 提交给模型的聚合数据
type Inputs struct {
	TopOpportunities []dm.CompanySummary `json:"top_opportunities"`
	TopRisks         []dm.CompanySummary `json:"top_risks"`
	IndustryTrends   []dm.IndustryTrend  `json:"industry_trends"`
	AccountWatchlist []dm.AccountRisk    `json:"account_watchlist"`
}

func (in Inputs) empty() bool {
	return len(in.TopOpportunities) == 0 && len(in.TopRisks) == 0 &&
		len(in.IndustryTrends) == 0 && len(in.AccountWatchlist) == 0
}

const reportSystemPrompt = `你是一个 JSON 生成器。请只输出 JSON 字符串。`

const reportPromptTpl = `你是一名 B2B 销售战略顾问。以下是最近 %d 天的企业信号聚合数据：

%s

请分析：
1. 行业趋势核心摘要
2. 增长最快的趋势
3. 风险客户的主要原因
4. 机会客户的优先攻略策略
5. 整体销售策略方向
并对每个重点企业说明机会或风险产生的原因、销售团队应采取的下一步行动和优先级（High/Medium/Low）。

请务必严格按照以下 JSON 格式返回，不要包含任何 markdown 标记：
{
  "daily_summary": "今日摘要",
  "accounts": [
    {"company": "", "reason": "", "recommended_action": "", "priority": "High"}
  ],
  "industry_summary": "",
  "rising_trends": "",
  "risk_analysis": "",
  "opportunity_strategy": "",
  "overall_strategy": ""
}`

// Generator 每日报告生成任务
type Generator struct {
	store      Store
	llm        llm.Completer
	topN       int
	windowDays int
	validate   *validator.Validate
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewGenerator 创建报告生成任务
func NewGenerator(store Store, c llm.Completer, cfg config.ReportConfig, l logrus.FieldLogger) *Generator {
	return &Generator{
		store:      store,
		llm:        c,
		topN:       cfg.TopN,
		windowDays: cfg.WindowDays,
		validate:   validator.New(),
		log:        logger.Or(l),
		now:        time.Now,
	}
}

// Collect 读取报告所需的聚合视图
func (g *Generator) Collect(ctx context.Context) (Inputs, error) {
	var in Inputs
	since := g.now().AddDate(0, 0, -g.windowDays)

	var err error
	if in.TopOpportunities, err = g.store.CompanySummaries(ctx, since, storage.OrderByOpportunity, g.topN); err != nil {
		return in, err
	}
	if in.TopRisks, err = g.store.CompanySummaries(ctx, since, storage.OrderByRisk, g.topN); err != nil {
		return in, err
	}
	if in.IndustryTrends, err = g.store.IndustryTrends(ctx, since, 2*g.topN); err != nil {
		return in, err
	}
	if in.AccountWatchlist, err = g.store.TopAccountRisks(ctx, g.topN); err != nil {
		return in, err
	}
	return in, nil
}

// Generate 生成今天的报告并写入，同一天重复执行会覆盖之前的结果
func (g *Generator) Generate(ctx context.Context) (*dm.DailyReport, *Summary, error) {
	log := logger.ForRun(g.log, "report")

	if n, err := g.store.RefreshCompanyScores(ctx); err != nil {
		log.Warnf("刷新企业分数缓存失败: %v", err)
	} else {
		log.Debugf("刷新企业分数缓存 %d 条", n)
	}

	in, err := g.Collect(ctx)
	if err != nil {
		return nil, nil, err
	}
	if in.empty() {
		return nil, nil, ErrNoData
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	out, err := g.llm.Complete(ctx, reportSystemPrompt, fmt.Sprintf(reportPromptTpl, g.windowDays, data),
		model.WithTemperature(0.3))
	if err != nil {
		return nil, nil, fmt.Errorf("generate report: %w", err)
	}

	summary, err := g.Parse(out)
	if err != nil {
		return nil, nil, err
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return nil, nil, err
	}
	report := &dm.DailyReport{ReportDate: dm.Day(g.now()), Summary: string(body)}
	if err := g.store.UpsertReport(ctx, report); err != nil {
		return nil, nil, err
	}

	log.Infof("日报已生成: date=%s accounts=%d", report.ReportDate, len(summary.Accounts))
	return report, summary, nil
}

// Parse 解析并校验模型输出
func (g *Generator) Parse(out string) (*Summary, error) {
	var s Summary
	if err := json.Unmarshal([]byte(llm.CleanJSON(out)), &s); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if err := g.validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid report: %w", err)
	}
	return &s, nil
}

// Decode 解析已保存的报告正文
func Decode(r *dm.DailyReport) (*Summary, error) {
	var s Summary
	if err := json.Unmarshal([]byte(r.Summary), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
