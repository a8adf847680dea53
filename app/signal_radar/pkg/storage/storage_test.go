package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *Storage {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestArticle(t *testing.T, s *Storage, url string) *model.Article {
	t.Helper()
	a := &model.Article{URL: url, Title: "title " + url, Content: "body", ContentHash: "hash-" + url}
	inserted, err := s.InsertArticle(context.Background(), a)
	require.NoError(t, err)
	require.True(t, inserted)
	return a
}

func TestInsertArticleIsIdempotentOnURL(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	first := &model.Article{URL: "https://news.example/1", Title: "a", Content: "x", ContentHash: "h1"}
	inserted, err := s.InsertArticle(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, model.StatusPending, first.ScoutStatus)

	dup := &model.Article{URL: "https://news.example/1", Title: "b", Content: "y", ContentHash: "h2"}
	inserted, err = s.InsertArticle(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetArticle(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title, "first write wins")

	exists, err := s.ArticleExists(ctx, "https://news.example/1")
	require.NoError(t, err)
	assert.True(t, exists)

	counts, err := s.CountArticlesByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.StatusPending])
}

func TestTransitionArticle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a := insertTestArticle(t, s, "u1")

	ok, err := s.TransitionArticle(ctx, a.ID, model.StatusPending, model.StatusAnalyzing)
	require.NoError(t, err)
	assert.True(t, ok)

	// 状态已变化，CAS 失败
	ok, err = s.TransitionArticle(ctx, a.ID, model.StatusPending, model.StatusAnalyzing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.TransitionArticle(ctx, a.ID, model.StatusDone, model.StatusPending)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	ok, err = s.TransitionArticle(ctx, a.ID, model.StatusAnalyzing, model.StatusDone)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.ScoutStatus)
}

func TestReclaimStaleAnalyzing(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	stale := insertTestArticle(t, s, "stale")
	fresh := insertTestArticle(t, s, "fresh")

	_, err := s.TransitionArticle(ctx, stale.ID, model.StatusPending, model.StatusAnalyzing)
	require.NoError(t, err)

	s.now = func() time.Time { return testNow.Add(time.Hour) }
	_, err = s.TransitionArticle(ctx, fresh.ID, model.StatusPending, model.StatusAnalyzing)
	require.NoError(t, err)

	n, err := s.ReclaimStaleAnalyzing(ctx, testNow.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pending, err := s.ListArticlesByStatus(ctx, model.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, stale.ID, pending[0].ID)
}

func TestUpsertSignalDeduplicates(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a := insertTestArticle(t, s, "u1")

	sig := &model.Signal{ArticleID: a.ID, CompanyName: "Acme", EventType: "investment",
		ImpactType: model.ImpactOpportunity, ImpactStrength: 40, Confidence: 0.8}
	require.NoError(t, s.UpsertSignal(ctx, sig))
	firstID := sig.ID

	again := &model.Signal{ArticleID: a.ID, CompanyName: "Acme", EventType: "investment",
		ImpactType: model.ImpactOpportunity, ImpactStrength: 90, Confidence: 0.95}
	require.NoError(t, s.UpsertSignal(ctx, again))
	assert.Equal(t, firstID, again.ID)

	signals, err := s.ListSignalsByArticle(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, 90, signals[0].ImpactStrength)
	assert.InDelta(t, 0.95, signals[0].Confidence, 1e-9)

	c, err := s.GetCompany(ctx, "Acme")
	require.NoError(t, err)
	assert.Zero(t, c.RiskScore)
	assert.Zero(t, c.SignalCount)
}

func TestCompanySummariesAndScoreCache(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a := insertTestArticle(t, s, "u1")

	for _, sig := range []model.Signal{
		{ArticleID: a.ID, CompanyName: "Acme", EventType: "risk_event", ImpactType: model.ImpactRisk, ImpactStrength: 70, Confidence: 0.9, IndustryTag: "battery", TrendBucket: "rising"},
		{ArticleID: a.ID, CompanyName: "Acme", EventType: "hiring", ImpactType: model.ImpactOpportunity, ImpactStrength: 20, Confidence: 0.9, IndustryTag: "battery", TrendBucket: "rising"},
		{ArticleID: a.ID, CompanyName: "Globex", EventType: "investment", ImpactType: model.ImpactOpportunity, ImpactStrength: 60, Confidence: 0.9},
	} {
		require.NoError(t, s.UpsertSignal(ctx, &sig))
	}

	since := testNow.AddDate(0, 0, -30)
	byRisk, err := s.CompanySummaries(ctx, since, OrderByRisk, 5)
	require.NoError(t, err)
	require.Len(t, byRisk, 2)
	assert.Equal(t, model.CompanySummary{CompanyName: "Acme", RiskScore: 70, OpportunityScore: 20, SignalCount: 2}, byRisk[0])

	byOpp, err := s.CompanySummaries(ctx, since, OrderByOpportunity, 1)
	require.NoError(t, err)
	require.Len(t, byOpp, 1)
	assert.Equal(t, "Globex", byOpp[0].CompanyName)

	empty, err := s.CompanySummaries(ctx, testNow.Add(time.Hour), OrderByRisk, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	trends, err := s.IndustryTrends(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, int64(2), trends[0].SignalCount)
	assert.InDelta(t, 45.0, trends[0].AverageStrength, 1e-9)

	n, err := s.RefreshCompanyScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	c, err := s.GetCompany(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 70.0, c.RiskScore)
	assert.Equal(t, 20.0, c.OpportunityScore)
	assert.Equal(t, 2, c.SignalCount)
}

func TestAccountSignalsAreIdempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a := insertTestArticle(t, s, "u1")
	unrelated := insertTestArticle(t, s, "u2")

	customerID, err := s.UpsertCustomer(ctx, "Acme")
	require.NoError(t, err)
	again, err := s.UpsertCustomer(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, customerID, again)

	inserted, err := s.InsertArticleCustomer(ctx, a.ID, customerID, "Acme")
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.InsertArticleCustomer(ctx, a.ID, customerID, "Acme")
	require.NoError(t, err)
	assert.False(t, inserted)

	sig := &model.Signal{ArticleID: a.ID, CompanyName: "Acme", EventType: "risk_event", ImpactType: model.ImpactRisk, ImpactStrength: 50, Confidence: 0.9}
	require.NoError(t, s.UpsertSignal(ctx, sig))
	require.NoError(t, s.UpsertSignal(ctx, &model.Signal{ArticleID: unrelated.ID, CompanyName: "Other", EventType: "hiring", ImpactType: model.ImpactOpportunity, ImpactStrength: 10, Confidence: 0.9}))

	unmapped, err := s.ListUnmappedSignals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unmapped, 1)
	assert.Equal(t, sig.ID, unmapped[0].ID)

	related, err := s.RelatedCustomers(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{customerID}, related)

	inserted, err = s.InsertAccountSignal(ctx, &model.AccountSignal{CustomerID: customerID, SignalID: sig.ID, ImpactScore: 59})
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.InsertAccountSignal(ctx, &model.AccountSignal{CustomerID: customerID, SignalID: sig.ID, ImpactScore: 59})
	require.NoError(t, err)
	assert.False(t, inserted)

	unmapped, err = s.ListUnmappedSignals(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unmapped)

	sum, err := s.SumAccountImpact(ctx, customerID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(59), sum)

	day := testNow.Truncate(24 * time.Hour)
	sum, err = s.SumAccountImpact(ctx, customerID, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestTimeline(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	customerID, err := s.UpsertCustomer(ctx, "Acme")
	require.NoError(t, err)

	_, err = s.LatestTimelineBefore(ctx, customerID, "2026-03-02")
	assert.ErrorIs(t, err, ErrNotFound)

	for i, cum := range []int64{10, 30, 50} {
		date := fmt.Sprintf("2026-02-%02d", 26+i)
		inserted, err := s.InsertTimelineEntry(ctx, &model.RiskTimelineEntry{CustomerID: customerID, Date: date, DailyRiskScore: 10, CumulativeRiskScore: cum})
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	inserted, err := s.InsertTimelineEntry(ctx, &model.RiskTimelineEntry{CustomerID: customerID, Date: "2026-02-28", DailyRiskScore: 99, CumulativeRiskScore: 99})
	require.NoError(t, err)
	assert.False(t, inserted, "past day is never rewritten")

	prev, err := s.LatestTimelineBefore(ctx, customerID, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", prev.Date)
	assert.Equal(t, int64(50), prev.CumulativeRiskScore)

	entries, err := s.Timeline(ctx, customerID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-02-27", entries[0].Date)
	assert.Equal(t, "2026-02-28", entries[1].Date)

	risks, err := s.TopAccountRisks(ctx, 5)
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, "Acme", risks[0].CustomerName)
	assert.Equal(t, int64(50), risks[0].CumulativeRiskScore)
}

func TestUpsertReportReplacesSameDay(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.LatestReport(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertReport(ctx, &model.DailyReport{ReportDate: "2026-03-02", Summary: "first"}))
	require.NoError(t, s.UpsertReport(ctx, &model.DailyReport{ReportDate: "2026-03-02", Summary: "second"}))
	require.NoError(t, s.UpsertReport(ctx, &model.DailyReport{ReportDate: "2026-03-01", Summary: "older"}))

	n, err := s.CountReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	r, err := s.ReportByDate(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "second", r.Summary)

	latest, err := s.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", latest.ReportDate)
}

func TestCrawlerState(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	ts, err := s.LastCrawledAt(ctx)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	require.NoError(t, s.SetLastMatchedArticleID(ctx, 42))
	ts, err = s.LastCrawledAt(ctx)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	require.NoError(t, s.SetLastCrawledAt(ctx, testNow))
	ts, err = s.LastCrawledAt(ctx)
	require.NoError(t, err)
	assert.True(t, testNow.Equal(ts))

	id, err := s.LastMatchedArticleID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}
