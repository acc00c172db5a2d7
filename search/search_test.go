package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTavilySearch(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("expected bearer auth, got %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"answer":" 一句话总结 ","results":[
			{"title":"A","url":"https://a","content":"first\n  hit"},
			{"title":"B","url":"https://b","content":"second"}]}`)
	}))
	defer srv.Close()

	c := NewTavily("key", "", srv.Client())
	c.Endpoint = srv.URL

	resp, err := c.Search(context.Background(), Request{Query: "q", Count: 1, NeedSummary: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["include_answer"] != true {
		t.Errorf("expected include_answer true, got %v", got["include_answer"])
	}
	if got["max_results"] != float64(1) {
		t.Errorf("expected max_results 1, got %v", got["max_results"])
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].Snippet != "first hit" {
		t.Errorf("expected normalized snippet, got %q", resp.Items[0].Snippet)
	}
	if resp.Summary != "一句话总结" {
		t.Errorf("expected summary, got %q", resp.Summary)
	}
}

func TestTavilyNoSummaryWhenNotRequested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"answer":"ignored","results":[]}`)
	}))
	defer srv.Close()

	c := NewTavily("key", "basic", srv.Client())
	c.Endpoint = srv.URL

	resp, err := c.Search(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Summary != "" {
		t.Errorf("expected empty summary, got %q", resp.Summary)
	}
}

func TestTavilyHTTPError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewTavily("key", "", srv.Client())
	c.Endpoint = srv.URL

	_, err := c.Search(context.Background(), Request{Query: "q"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "key" {
			t.Errorf("expected subscription token header")
		}
		if q := r.URL.Query().Get("q"); q != "某基地" {
			t.Errorf("expected query param, got %q", q)
		}
		if c := r.URL.Query().Get("count"); c != "3" {
			t.Errorf("expected count 3, got %q", c)
		}
		fmt.Fprint(w, `{"web":{"results":[{"title":"<strong>T</strong>","url":"https://t","description":"d &amp; e"}]}}`)
	}))
	defer srv.Close()

	c := NewBrave("key", srv.Client())
	c.Endpoint = srv.URL

	resp, err := c.Search(context.Background(), Request{Query: "某基地", Count: 3, NeedSummary: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Title != "T" || resp.Items[0].Snippet != "d & e" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
	if resp.Summary != "" {
		t.Errorf("expected no summary from brave, got %q", resp.Summary)
	}
}

func TestMissingAPIKey(t *testing.T) {
	if _, err := NewBrave("", http.DefaultClient).Search(context.Background(), Request{Query: "q"}); err == nil {
		t.Error("expected error for brave without key")
	}
	if _, err := NewTavily(" ", "", http.DefaultClient).Search(context.Background(), Request{Query: "q"}); err == nil {
		t.Error("expected error for tavily without key")
	}
}

const duckPage = `<html><body>
<a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fone">First <b>Result</b></a>
<a class="result__url" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fone&amp;rut=x">example.com/one</a>
<a class="result__snippet" href="#">Snippet   one &amp; more</a>
<a rel="nofollow" class="result__a" href="https://example.com/two">Second</a>
<a class="result__url" href="https://example.com/two">example.com/two</a>
<a class="result__snippet" href="#">Snippet two</a>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "test" {
			t.Errorf("expected q=test, got %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, duckPage)
	}))
	defer srv.Close()

	c := NewDuckDuckGo(srv.Client())
	c.Endpoint = srv.URL

	resp, err := c.Search(context.Background(), Request{Query: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	first := resp.Items[0]
	if first.Title != "First Result" {
		t.Errorf("expected title 'First Result', got %q", first.Title)
	}
	if first.URL != "https://example.com/one" {
		t.Errorf("expected unwrapped url, got %q", first.URL)
	}
	if first.Snippet != "Snippet one & more" {
		t.Errorf("expected cleaned snippet, got %q", first.Snippet)
	}

	resp, err = c.Search(context.Background(), Request{Query: "test", Count: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Errorf("expected count to cap results, got %d", len(resp.Items))
	}
}

func TestSearchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewDuckDuckGo(srv.Client())
	c.Endpoint = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Search(ctx, Request{Query: "q"}); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{Provider: "tavily"}); err == nil {
		t.Error("expected error for tavily without key")
	}
	if _, err := New(Config{Provider: "bing"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*DuckDuckGo); !ok {
		t.Errorf("expected duckduckgo default, got %T", c)
	}
	c, err = New(Config{Provider: "Brave", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*Brave); !ok {
		t.Errorf("expected brave, got %T", c)
	}
}

func TestFuncAdapter(t *testing.T) {
	var f Client = Func(func(ctx context.Context, r Request) (Response, error) {
		return Response{Summary: r.Query}, nil
	})
	resp, _ := f.Search(context.Background(), Request{Query: "x"})
	if resp.Summary != "x" {
		t.Errorf("expected x, got %q", resp.Summary)
	}
}
