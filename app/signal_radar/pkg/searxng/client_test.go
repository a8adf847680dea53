package searxng

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/search"
)

func TestSearchLimitsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "news", r.URL.Query().Get("categories"))
		json.NewEncoder(w).Encode(SearchResponse{Results: []SearchResult{
			{Title: "a", URL: "https://a"}, {Title: "b", URL: "https://b"}, {Title: "c", URL: "https://c"},
		}})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, 5).Search(context.Background(), &search.Request{Query: "acme", MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}
