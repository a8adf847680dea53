// Package scorer 将信号转换为带方向的影响分
package scorer

import (
	"math"
	"strings"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

// Direction 影响方向
type Direction string

const (
	Positive Direction = "positive"
	Neutral  Direction = "neutral"
	Negative Direction = "negative"
)

// Category 信号大类
type Category string

const (
	Growth      Category = "growth"
	Risk        Category = "risk"
	Competition Category = "competition"
)

var directionWeight = map[Direction]float64{
	Positive: -1,
	Neutral:  0,
	Negative: 1,
}

var categoryWeight = map[Category]float64{
	Growth:      -0.5,
	Risk:        1.5,
	Competition: 1.0,
}

// eventCategory 事件类型到大类的固定映射
var eventCategory = map[string]Category{
	"investment":          Growth,
	"capacity_expansion":  Growth,
	"hiring":              Growth,
	"product_launch":      Growth,
	"partnership":         Growth,
	"regulation":          Risk,
	"quality_issue":       Risk,
	"risk_event":          Risk,
	"competitor_activity": Competition,
}

// ImpactScore round(log1p(strength) * 10 * 方向权重 * 大类权重)。
// 未知方向权重为 0，未知大类权重为 1。
func ImpactScore(strength int, d Direction, c Category) int {
	dw, ok := directionWeight[d]
	if !ok {
		dw = 0
	}
	cw, ok := categoryWeight[c]
	if !ok {
		cw = 1.0
	}
	return int(math.Round(math.Log1p(float64(strength)) * 10 * dw * cw))
}

// DirectionOf risk 视为负面，opportunity 视为正面
func DirectionOf(t model.ImpactType) Direction {
	switch t {
	case model.ImpactRisk:
		return Negative
	case model.ImpactOpportunity:
		return Positive
	default:
		return Neutral
	}
}

// CategoryOf 优先按事件类型映射，其次按模型给出的 signal_category 文本推断
func CategoryOf(eventType, signalCategory string) Category {
	if c, ok := eventCategory[strings.ToLower(strings.TrimSpace(eventType))]; ok {
		return c
	}

	sc := strings.ToLower(signalCategory)
	switch {
	case sc == "":
		return ""
	case strings.Contains(sc, "compet"):
		return Competition
	case strings.Contains(sc, "capa"), strings.Contains(sc, "product"),
		strings.Contains(sc, "partner"), strings.Contains(sc, "invest"),
		strings.Contains(sc, "hiring"), strings.Contains(sc, "growth"):
		return Growth
	case strings.Contains(sc, "quality"), strings.Contains(sc, "regulat"), strings.Contains(sc, "risk"):
		return Risk
	}
	return ""
}

// Score 计算已入库信号的影响分
func Score(sig model.Signal) int {
	return ImpactScore(sig.ImpactStrength, DirectionOf(sig.ImpactType), CategoryOf(sig.EventType, sig.SignalCategory))
}
