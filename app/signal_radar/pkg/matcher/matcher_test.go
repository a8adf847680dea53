package matcher

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/storage"
)

func TestMatch(t *testing.T) {
	customers := []model.Customer{{ID: 1, Name: "삼성바이오로직스"}, {ID: 2, Name: "Acme"}, {ID: 3, Name: " "}}

	got := Match(customers, "ACME Corp와 삼성바이오로직스가 협력")
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)

	assert.Empty(t, Match(customers, "no customer here"))
}

func TestRunOnceIsIncremental(t *testing.T) {
	s, err := storage.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	l, _ := test.NewNullLogger()
	m := NewMatcher(s, 1, l)

	n, err := m.SeedCustomers(ctx, []string{"Acme", "", "Globex"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, a := range []*model.Article{
		{URL: "u1", Title: "Acme expands", Content: "Acme and Globex sign a deal", ContentHash: "1"},
		{URL: "u2", Title: "Weather", Content: "sunny", ContentHash: "2"},
	} {
		_, err := s.InsertArticle(ctx, a)
		require.NoError(t, err)
	}

	stats, err := m.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Articles: 2, Links: 2}, stats)

	cursor, err := s.LastMatchedArticleID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor)

	stats, err = m.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Articles)

	related, err := s.RelatedCustomers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, related, 2)
}
