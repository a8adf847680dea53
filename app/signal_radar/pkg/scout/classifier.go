package scout

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/llm"
)

// Outcome Stage 1 判定结果
type Outcome int

const (
	Relevant Outcome = iota
	NotRelevant
	ClassificationFailed
)

func (o Outcome) String() string {
	switch o {
	case Relevant:
		return "relevant"
	case NotRelevant:
		return "not_relevant"
	case ClassificationFailed:
		return "classification_failed"
	default:
		return "unknown"
	}
}

// Verdict Stage 1 结果，仅 ClassificationFailed 时 Err 非空
type Verdict struct {
	Outcome Outcome
	Err     error
}

const classifySystemPrompt = `你是一个新闻筛选器。只能回答 True 或 False，不要输出任何其他内容。`

const classifyPromptTpl = `判断下面的新闻是否包含具体企业的业务事件，例如投资、产能扩张、招聘、新品发布、合作、监管处罚、质量问题、风险事件或竞争动态。
包含则回答 True，否则回答 False。

标题：%s

正文：%s`

// Classifier Stage 1 相关性分类器
type Classifier struct {
	llm   llm.Completer
	chars int
}

// NewClassifier 创建分类器，正文只取前 chars 个字符
func NewClassifier(c llm.Completer, chars int) *Classifier {
	return &Classifier{llm: c, chars: chars}
}

// Classify 固定温度、限制输出长度；只有明确的 True 视为相关，其余一律不相关。
// 调用失败返回 ClassificationFailed，文章保持 pending 等待下一轮。
func (c *Classifier) Classify(ctx context.Context, title, content string) Verdict {
	prompt := fmt.Sprintf(classifyPromptTpl, title, llm.Truncate(content, c.chars))
	out, err := c.llm.Complete(ctx, classifySystemPrompt, prompt,
		model.WithTemperature(0),
		model.WithMaxTokens(5),
	)
	if err != nil {
		return Verdict{Outcome: ClassificationFailed, Err: err}
	}
	if strings.TrimSpace(out) == "True" {
		return Verdict{Outcome: Relevant}
	}
	return Verdict{Outcome: NotRelevant}
}
