package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave uses the Brave Search API. It never returns a summary.
type Brave struct {
	APIKey   string
	Endpoint string
	client   *http.Client
}

// NewBrave constructs a Brave client using the supplied HTTP client.
func NewBrave(apiKey string, client *http.Client) *Brave {
	return &Brave{APIKey: apiKey, Endpoint: braveEndpoint, client: client}
}

// Search executes a Brave query.
func (b *Brave) Search(ctx context.Context, r Request) (Response, error) {
	if strings.TrimSpace(b.APIKey) == "" {
		return Response{}, errors.New("brave: API key is missing")
	}

	u, err := url.Parse(b.Endpoint)
	if err != nil {
		return Response{}, fmt.Errorf("brave: %w", err)
	}
	values := u.Query()
	values.Set("q", r.Query)
	if r.Count > 0 {
		values.Set("count", strconv.Itoa(r.Count))
	}
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("brave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("brave http %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Response{}, fmt.Errorf("brave: decode response: %w", err)
	}

	items := make([]Item, 0, len(payload.Web.Results))
	for _, res := range payload.Web.Results {
		items = append(items, Item{
			Title:   stripTags(res.Title),
			URL:     res.URL,
			Snippet: stripTags(res.Description),
		})
	}

	return Response{Items: limit(items, r.Count)}, nil
}

var _ Client = (*Brave)(nil)
