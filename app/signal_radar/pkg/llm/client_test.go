package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
)

type fakeChatModel struct {
	replies []string
	errs    []error
	calls   int
	last    []*schema.Message
	opts    *model.Options
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	i := f.calls
	f.calls++
	f.last = input
	f.opts = model.GetCommonOptions(nil, opts...)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &schema.Message{Role: schema.Assistant, Content: reply}, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func newTestClient(fake *fakeChatModel, retries int) *Client {
	l, _ := test.NewNullLogger()
	return New(fake, nil, config.RetryConfig{MaxRetries: retries}, l)
}

func TestCompleteRetriesThenSucceeds(t *testing.T) {
	fake := &fakeChatModel{
		errs:    []error{errors.New("429 Too Many Requests"), errors.New("connection reset")},
		replies: []string{"", "", "True"},
	}
	c := newTestClient(fake, 3)

	out, err := c.Complete(context.Background(), "sys", "user", model.WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "True", out)
	assert.Equal(t, 3, fake.calls)

	require.Len(t, fake.last, 2)
	assert.Equal(t, schema.System, fake.last[0].Role)
	assert.Equal(t, "user", fake.last[1].Content)
	require.NotNil(t, fake.opts.Temperature)
	assert.Equal(t, float32(0), *fake.opts.Temperature)
}

func TestCompleteGivesUp(t *testing.T) {
	boom := errors.New("upstream down")
	fake := &fakeChatModel{errs: []error{boom, boom, boom}}
	c := newTestClient(fake, 2)

	_, err := c.Complete(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, fake.calls)
}

func TestCompleteStopsOnCanceledContext(t *testing.T) {
	fake := &fakeChatModel{errs: []error{context.Canceled}}
	c := newTestClient(fake, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "sys", "user")
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, fake.calls, 1)
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, CleanJSON(`  {"a":1} `))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "风险", Truncate("风险事件", 2))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
}
