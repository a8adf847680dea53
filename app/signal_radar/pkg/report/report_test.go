package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"
	dm "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/storage"
)

type fakeCompleter struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string, _ ...model.Option) (string, error) {
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func setupStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	a := &dm.Article{URL: "u1", Title: "t", Content: "c", ContentHash: "1"}
	_, err = s.InsertArticle(ctx, a)
	require.NoError(t, err)
	for _, sig := range []dm.Signal{
		{ArticleID: a.ID, CompanyName: "Acme", EventType: "investment", ImpactType: dm.ImpactOpportunity, ImpactStrength: 80, Confidence: 0.9, IndustryTag: "PFS", TrendBucket: "Expansion"},
		{ArticleID: a.ID, CompanyName: "Globex", EventType: "quality_issue", ImpactType: dm.ImpactRisk, ImpactStrength: 60, Confidence: 0.9},
	} {
		require.NoError(t, s.UpsertSignal(ctx, &sig))
	}
	return s
}

func newTestGenerator(s Store, c *fakeCompleter, now time.Time) *Generator {
	l, _ := test.NewNullLogger()
	g := NewGenerator(s, c, config.ReportConfig{TopN: 5, WindowDays: 30}, l)
	g.now = func() time.Time { return now }
	return g
}

const reply = `{"daily_summary": "%s", "accounts": [{"company": "Acme", "reason": "new plant", "recommended_action": "visit", "priority": "High"}]}`

func TestGenerateUpsertsOnePerDay(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	fake := &fakeCompleter{replies: []string{
		strings.Replace(reply, "%s", "first", 1),
		"```json\n" + strings.Replace(reply, "%s", "second", 1) + "\n```",
	}}
	g := newTestGenerator(s, fake, time.Now())

	r1, _, err := g.Generate(ctx)
	require.NoError(t, err)
	_, summary, err := g.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", summary.DailySummary)

	n, err := s.CountReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := s.ReportByDate(ctx, r1.ReportDate)
	require.NoError(t, err)
	decoded, err := Decode(stored)
	require.NoError(t, err)
	assert.Equal(t, "second", decoded.DailySummary)
	require.Len(t, decoded.Accounts, 1)
	assert.Equal(t, "visit", decoded.Accounts[0].RecommendedAction)

	assert.Contains(t, fake.prompts[0], "Acme")
	assert.Contains(t, fake.prompts[0], "Globex")

	c, err := s.GetCompany(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 80.0, c.OpportunityScore)
}

func TestCollectOrdersAggregates(t *testing.T) {
	s := setupStore(t)
	g := newTestGenerator(s, &fakeCompleter{}, time.Now())

	in, err := g.Collect(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, in.TopOpportunities)
	assert.Equal(t, "Acme", in.TopOpportunities[0].CompanyName)
	assert.Equal(t, "Globex", in.TopRisks[0].CompanyName)
	require.Len(t, in.IndustryTrends, 1)
	assert.Equal(t, "PFS", in.IndustryTrends[0].IndustryTag)
}

func TestGenerateNoData(t *testing.T) {
	s, err := storage.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, _, err = newTestGenerator(s, &fakeCompleter{}, time.Now()).Generate(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestGenerateRejectsInvalidOutput(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	g := newTestGenerator(s, &fakeCompleter{replies: []string{`{"accounts": []}`}}, time.Now())
	_, _, err := g.Generate(ctx)
	assert.Error(t, err)

	g = newTestGenerator(s, &fakeCompleter{err: errors.New("503")}, time.Now())
	_, _, err = g.Generate(ctx)
	assert.Error(t, err)

	n, err := s.CountReports(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
