package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/llm"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/logger"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/metrics"
	dm "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// DefaultConfidence 模型未给出 confidence 时的取值
const DefaultConfidence = 0.8

// Extraction Stage 2 结果；Err 非空表示调用失败，文章需退回 pending。
// 输出无法解析时 Signals 为空且 Err 为 nil。
type Extraction struct {
	Signals []dm.SignalCandidate
	Err     error
}

const extractSystemPrompt = `你是一个 JSON 生成器。请只输出 JSON 字符串。`

const extractPromptTpl = `你是一个产业情报分析师。请从新闻中抽取与具体企业相关的业务信号。

请务必严格按照以下 JSON 格式返回，不要包含任何 markdown 标记：
{
  "signals": [
    {
      "company_name": "企业名称",
      "event_type": "investment / capacity_expansion / hiring / product_launch / partnership / regulation / quality_issue / risk_event / competitor_activity",
      "signal_category": "CAPA / Quality / Regulation / Product / Partnership",
      "industry_tag": "行业标签",
      "trend_bucket": "Expansion / Switching / Risk / Investment",
      "impact_type": "risk / opportunity",
      "impact_strength": 0,
      "severity_level": 1,
      "confidence": 0.0
    }
  ]
}
impact_strength 为 0-100 的整数，severity_level 为 1-5 的整数，confidence 为 0-1 的小数。
没有可抽取的信号时返回 {"signals": []}。

标题：%s

正文：%s`

// rawCandidate 模型输出的单条信号，必填字段缺失时整条丢弃
type rawCandidate struct {
	CompanyName     *string      `json:"company_name" validate:"required"`
	EventType       *string      `json:"event_type" validate:"required"`
	ImpactType      *string      `json:"impact_type" validate:"required"`
	ImpactStrength  *json.Number `json:"impact_strength" validate:"required"`
	SignalCategory  string       `json:"signal_category"`
	OpportunityType string       `json:"opportunity_type"` // 旧版提示词字段
	IndustryTag     string       `json:"industry_tag"`
	TrendBucket     string       `json:"trend_bucket"`
	SeverityLevel   *json.Number `json:"severity_level"`
	Confidence      *json.Number `json:"confidence"`
}

// Extractor Stage 2 信号抽取器
type Extractor struct {
	llm           llm.Completer
	chars         int
	minConfidence float64
	validate      *validator.Validate
	log           logrus.FieldLogger
}

// NewExtractor 创建抽取器，confidence 低于 minConfidence 的候选被丢弃
func NewExtractor(c llm.Completer, chars int, minConfidence float64, l logrus.FieldLogger) *Extractor {
	return &Extractor{
		llm:           c,
		chars:         chars,
		minConfidence: minConfidence,
		validate:      validator.New(),
		log:           logger.Or(l),
	}
}

// Extract 调用模型抽取信号并逐条校验
func (e *Extractor) Extract(ctx context.Context, a dm.Article) Extraction {
	prompt := fmt.Sprintf(extractPromptTpl, a.Title, llm.Truncate(a.Content, e.chars))
	out, err := e.llm.Complete(ctx, extractSystemPrompt, prompt, model.WithTemperature(0.2))
	if err != nil {
		return Extraction{Err: err}
	}
	return Extraction{Signals: e.Parse(out)}
}

// Parse 解析模型输出，非法 JSON 或缺少 signals 时返回空
func (e *Extractor) Parse(out string) []dm.SignalCandidate {
	var envelope struct {
		Signals *[]json.RawMessage `json:"signals"`
	}
	if err := json.Unmarshal([]byte(llm.CleanJSON(out)), &envelope); err != nil {
		e.log.Warnf("抽取结果不是合法 JSON: %v", err)
		return nil
	}
	if envelope.Signals == nil {
		e.log.Warn("抽取结果缺少 signals 字段")
		return nil
	}

	var candidates []dm.SignalCandidate
	for _, item := range *envelope.Signals {
		c, reason := e.candidate(item)
		if reason != "" {
			metrics.CandidatesDropped.WithLabelValues(reason).Inc()
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// candidate 校验单条候选，丢弃时返回原因
func (e *Extractor) candidate(item json.RawMessage) (dm.SignalCandidate, string) {
	var raw rawCandidate
	if err := json.Unmarshal(item, &raw); err != nil {
		return dm.SignalCandidate{}, "malformed"
	}
	if err := e.validate.Struct(raw); err != nil {
		return dm.SignalCandidate{}, "missing_field"
	}

	name := strings.TrimSpace(*raw.CompanyName)
	eventType := strings.TrimSpace(*raw.EventType)
	if name == "" || eventType == "" {
		return dm.SignalCandidate{}, "missing_field"
	}

	impactType := dm.ImpactType(strings.ToLower(strings.TrimSpace(*raw.ImpactType)))
	if !impactType.Valid() {
		return dm.SignalCandidate{}, "impact_type"
	}

	strength, err := raw.ImpactStrength.Float64()
	if err != nil {
		return dm.SignalCandidate{}, "malformed"
	}

	confidence := DefaultConfidence
	if raw.Confidence != nil {
		if confidence, err = raw.Confidence.Float64(); err != nil {
			return dm.SignalCandidate{}, "malformed"
		}
	}
	confidence = clamp(confidence, 0, 1)
	if confidence < e.minConfidence {
		return dm.SignalCandidate{}, "low_confidence"
	}

	var severity int
	if raw.SeverityLevel != nil {
		if v, err := raw.SeverityLevel.Float64(); err == nil {
			severity = int(clamp(v, 0, 5))
		}
	}

	category := strings.TrimSpace(raw.SignalCategory)
	if category == "" {
		category = strings.TrimSpace(raw.OpportunityType)
	}

	return dm.SignalCandidate{
		CompanyName:    name,
		EventType:      eventType,
		ImpactType:     impactType,
		ImpactStrength: int(clamp(strength, 0, 100)),
		SignalCategory: category,
		IndustryTag:    strings.TrimSpace(raw.IndustryTag),
		TrendBucket:    strings.TrimSpace(raw.TrendBucket),
		SeverityLevel:  severity,
		Confidence:     confidence,
	}, ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
