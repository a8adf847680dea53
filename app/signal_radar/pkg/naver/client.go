package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/search"
)

const defaultEndpoint = "https://openapi.naver.com/v1/search/news.json"

// Client Naver 新闻搜索 API 客户端
type Client struct {
	clientID     string
	clientSecret string
	endpoint     string
	client       *http.Client
}

// NewClient 创建 Naver 客户端
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     defaultEndpoint,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

var _ search.Searcher = (*Client)(nil)

// SearchResponse Naver 新闻搜索响应
type SearchResponse struct {
	Total int    `json:"total"`
	Items []Item `json:"items"`
}

// Item 单条新闻，title 与 description 中包含 <b> 高亮标签
type Item struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"` // RFC1123Z
}

// Name implements search.Searcher
func (c *Client) Name() string { return "naver" }

// Search 按发布时间倒序查询新闻
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	display := req.MaxResults
	if display <= 0 {
		display = 30
	}
	if display > 100 {
		display = 100
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("query", req.Query)
	q.Set("display", strconv.Itoa(display))
	q.Set("sort", "date")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("X-Naver-Client-Id", c.clientID)
	httpReq.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("naver api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	results := make([]search.Result, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		link := item.Link
		if link == "" {
			link = item.OriginalLink
		}
		results = append(results, search.Result{
			Title:         item.Title,
			URL:           link,
			Content:       item.Description,
			PublishedDate: item.PubDate,
		})
	}
	return &search.Response{Results: results}, nil
}
