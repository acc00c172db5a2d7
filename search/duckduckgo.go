package search

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

var (
	regexLink = regexp.MustCompile(`href="([^"]+)"`)
	regexTag  = regexp.MustCompile(`<[^>]*>`)
)

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint. No API key is needed and
// no summary is produced.
type DuckDuckGo struct {
	Endpoint string
	client   *http.Client
}

// NewDuckDuckGo constructs a DuckDuckGo client using the supplied HTTP client.
func NewDuckDuckGo(client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{Endpoint: duckDuckGoEndpoint, client: client}
}

// Search fetches the result page and extracts title, link and snippet.
func (d *DuckDuckGo) Search(ctx context.Context, r Request) (Response, error) {
	u, err := url.Parse(d.Endpoint)
	if err != nil {
		return Response{}, fmt.Errorf("duckduckgo: %w", err)
	}

	values := u.Query()
	values.Set("q", r.Query)
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Referer", "https://duckduckgo.com/")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.4 Safari/605.1.15")

	resp, err := d.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("duckduckgo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	var items []Item
	var current Item

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "result__a") {
			current.Title = stripTags(line)
		}

		if strings.Contains(line, "result__url") {
			if links := regexLink.FindStringSubmatch(line); len(links) >= 2 {
				current.URL = resolveRedirect(html.UnescapeString(links[1]))
			}
		}

		if strings.Contains(line, "result__snippet") {
			current.Snippet = stripTags(line)
		}

		if current.Snippet == "" {
			continue
		}

		items = append(items, current)
		current = Item{}

		if r.Count > 0 && len(items) >= r.Count {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return Response{}, fmt.Errorf("duckduckgo: read response: %w", err)
	}

	return Response{Items: items}, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if strings.HasPrefix(link, "//") {
		return "https:" + link
	}
	return link
}

func stripTags(s string) string {
	return normalize(html.UnescapeString(regexTag.ReplaceAllString(s, "")))
}

var _ Client = (*DuckDuckGo)(nil)
