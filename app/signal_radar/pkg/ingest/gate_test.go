package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/model"
)

type memStore struct {
	articles map[string]*model.Article
	nextID   int64
	// raceURL 模拟 Exists 检查之后被其他进程抢先写入
	raceURL string
}

func newMemStore() *memStore {
	return &memStore{articles: make(map[string]*model.Article)}
}

func (m *memStore) ArticleExists(_ context.Context, url string) (bool, error) {
	_, ok := m.articles[url]
	return ok, nil
}

func (m *memStore) InsertArticle(_ context.Context, a *model.Article) (bool, error) {
	if _, ok := m.articles[a.URL]; ok || a.URL == m.raceURL {
		return false, nil
	}
	m.nextID++
	a.ID = m.nextID
	a.ScoutStatus = model.StatusPending
	m.articles[a.URL] = a
	return true, nil
}

func newTestGate(store Store) *Gate {
	l, _ := test.NewNullLogger()
	return NewGate(store, 500, l)
}

func longBody() string {
	return strings.Repeat("공장 증설 투자 ", 100)
}

func TestAdmitIsIdempotentOnURL(t *testing.T) {
	store := newMemStore()
	g := newTestGate(store)
	ctx := context.Background()
	raw := model.RawArticle{Title: "  Acme   expands ", URL: "https://news.example/1", Content: longBody()}

	res, article, err := g.Admit(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, Accepted, res)
	assert.Equal(t, "Acme expands", article.Title)
	assert.Equal(t, model.StatusPending, article.ScoutStatus)
	assert.Equal(t, ContentHash(raw.Content), article.ContentHash)

	res, article, err = g.Admit(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, res)
	assert.Nil(t, article)
	assert.Len(t, store.articles, 1)
}

func TestAdmitDropsShortContent(t *testing.T) {
	store := newMemStore()
	g := newTestGate(store)

	res, _, err := g.Admit(context.Background(), model.RawArticle{Title: "t", URL: "u", Content: strings.Repeat("가", 499)})
	require.NoError(t, err)
	assert.Equal(t, TooShort, res)
	assert.Empty(t, store.articles)

	res, _, err = g.Admit(context.Background(), model.RawArticle{Title: "t", URL: "u", Content: strings.Repeat("가", 500)})
	require.NoError(t, err)
	assert.Equal(t, Accepted, res)
}

func TestAdmitRejectsInvalid(t *testing.T) {
	g := newTestGate(newMemStore())
	_, _, err := g.Admit(context.Background(), model.RawArticle{Title: "t", Content: longBody()})
	assert.ErrorIs(t, err, ErrInvalidArticle)
}

func TestAdmitLosesInsertRace(t *testing.T) {
	store := newMemStore()
	store.raceURL = "https://news.example/race"
	g := newTestGate(store)

	res, _, err := g.Admit(context.Background(), model.RawArticle{Title: "t", URL: store.raceURL, Content: longBody()})
	require.NoError(t, err)
	assert.Equal(t, Duplicate, res)
}

func TestContentHashIgnoresWhitespace(t *testing.T) {
	assert.Equal(t, ContentHash("a  b\n\tc"), ContentHash(" a b c "))
	assert.NotEqual(t, ContentHash("a b c"), ContentHash("a b d"))
	assert.Len(t, ContentHash("x"), 64)
}
