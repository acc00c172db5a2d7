// Package search provides web search clients that return result items and
// an optional provider-generated summary.
package search

import (
	"context"
	"strings"
	"unicode"
)

// Request is a single web search.
type Request struct {
	Query       string
	Count       int
	NeedSummary bool
}

// Item is one search hit.
type Item struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Response holds the hits in rank order and, when requested and supported,
// a summary of them.
type Response struct {
	Items   []Item `json:"items"`
	Summary string `json:"summary,omitempty"`
}

// Client performs web searches. Implementations make a single attempt and
// return transport and HTTP failures as errors.
type Client interface {
	Search(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to Client.
type Func func(ctx context.Context, req Request) (Response, error)

// Search calls f.
func (f Func) Search(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

func limit(items []Item, count int) []Item {
	if count > 0 && len(items) > count {
		return items[:count]
	}
	return items
}

// normalize collapses whitespace runs and trims.
func normalize(s string) string {
	var sb strings.Builder
	var lastSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				sb.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		sb.WriteRune(r)
		lastSpace = false
	}

	return strings.TrimSpace(sb.String())
}
