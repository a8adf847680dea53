package tavily

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

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acme", req.Query)
		assert.Equal(t, "news", req.Topic)
		assert.Equal(t, 5, req.MaxResults)

		json.NewEncoder(w).Encode(SearchResponse{Results: []SearchResult{
			{Title: "Acme", URL: "https://a", Content: "body", PublishedDate: "2026-03-02"},
		}})
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL
	resp, err := c.Search(context.Background(), &search.Request{Query: "acme"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "https://a", resp.Results[0].URL)
}

func TestSearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL
	_, err := c.Search(context.Background(), &search.Request{Query: "acme"})
	assert.ErrorContains(t, err, "429")
}
