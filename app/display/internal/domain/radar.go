package domain

// PipelineStatus 流水线积压与产出概况
type PipelineStatus struct {
	Articles map[string]int64 `json:"articles"`
	// Backlog 尚未到达终态的文章数
	Backlog int64 `json:"backlog"`
	Reports int64 `json:"reports"`
}

// Company 企业分数缓存
type Company struct {
	Name             string  `json:"name"`
	RiskScore        float64 `json:"risk_score"`
	OpportunityScore float64 `json:"opportunity_score"`
	SignalCount      int     `json:"signal_count"`
	UpdatedAt        string  `json:"updated_at"`
}

// Signal 单条业务信号
type Signal struct {
	CompanyName    string  `json:"company_name"`
	EventType      string  `json:"event_type"`
	ImpactType     string  `json:"impact_type"`
	ImpactStrength int     `json:"impact_strength"`
	SignalCategory string  `json:"signal_category,omitempty"`
	IndustryTag    string  `json:"industry_tag,omitempty"`
	TrendBucket    string  `json:"trend_bucket,omitempty"`
	SeverityLevel  int     `json:"severity_level,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// ArticleSignals 文章及其抽取出的信号
type ArticleSignals struct {
	ArticleID   int64    `json:"article_id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	ScoutStatus string   `json:"scout_status"`
	Signals     []Signal `json:"signals"`
}
