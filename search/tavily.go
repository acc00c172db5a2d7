package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API. Summaries come from Tavily's answer
// field.
type Tavily struct {
	APIKey   string
	Depth    string // basic or advanced
	Endpoint string
	client   *http.Client
}

// NewTavily constructs a Tavily client using the supplied HTTP client.
func NewTavily(apiKey, depth string, client *http.Client) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{APIKey: apiKey, Depth: depth, Endpoint: tavilyEndpoint, client: client}
}

// Search posts a query to Tavily.
func (t *Tavily) Search(ctx context.Context, r Request) (Response, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return Response{}, errors.New("tavily: API key is missing")
	}

	body := map[string]any{
		"query":          r.Query,
		"search_depth":   t.Depth,
		"include_answer": r.NeedSummary,
	}
	if r.Count > 0 {
		body["max_results"] = r.Count
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Answer  string `json:"answer"`
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return Response{}, fmt.Errorf("tavily: decode response: %w", err)
	}

	items := make([]Item, 0, len(response.Results))
	for _, res := range response.Results {
		items = append(items, Item{Title: res.Title, URL: res.URL, Snippet: normalize(res.Content)})
	}

	out := Response{Items: limit(items, r.Count)}
	if r.NeedSummary {
		out.Summary = strings.TrimSpace(response.Answer)
	}
	return out, nil
}

var _ Client = (*Tavily)(nil)
