package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/richinex/basetag/search"
)

func fixedSearch(resp search.Response, err error) (search.Client, *[]search.Request) {
	var seen []search.Request
	return search.Func(func(ctx context.Context, r search.Request) (search.Response, error) {
		seen = append(seen, r)
		return resp, err
	}), &seen
}

func TestLookupGeneralInfoNotFound(t *testing.T) {
	client, _ := fixedSearch(search.Response{}, nil)

	got := LookupGeneralInfo(context.Background(), client, "不存在的地方XYZ")
	want := "未找到关于'不存在的地方XYZ'的相关信息。"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLookupGeneralInfoFormat(t *testing.T) {
	client, seen := fixedSearch(search.Response{
		Items: []search.Item{
			{Title: "红旗渠纪念馆", Snippet: "位于河南林州", URL: "https://a.example"},
			{Title: "红旗渠精神", Snippet: "自力更生", URL: "https://b.example"},
		},
		Summary: "红旗渠位于河南省。",
	}, nil)

	got := LookupGeneralInfo(context.Background(), client, "红旗渠")
	want := strings.Join([]string{
		"实践基地名称：红旗渠",
		"\n搜索结果：\n",
		"1. 红旗渠纪念馆",
		"   摘要：位于河南林州",
		"   URL: https://a.example\n",
		"2. 红旗渠精神",
		"   摘要：自力更生",
		"   URL: https://b.example\n",
		"\nAI 总结：",
		"红旗渠位于河南省。",
	}, "\n")
	if got != want {
		t.Errorf("unexpected report:\n%s\nwant:\n%s", got, want)
	}

	req := (*seen)[0]
	if req.Count != 8 || !req.NeedSummary {
		t.Errorf("expected count 8 with summary, got %+v", req)
	}
	if req.Query != "红旗渠 实践基地 介绍 特色 习近平总书记 总书记 到访 视察 调研" {
		t.Errorf("unexpected query %q", req.Query)
	}
}

func TestLookupGeneralInfoWithoutSummary(t *testing.T) {
	client, _ := fixedSearch(search.Response{
		Items: []search.Item{{Title: "T", Snippet: "S", URL: "U"}},
	}, nil)

	got := LookupGeneralInfo(context.Background(), client, "X")
	if strings.Contains(got, "AI 总结") {
		t.Errorf("expected no summary section, got %q", got)
	}
}

func TestLookupNotableVisitPositive(t *testing.T) {
	snippet := "2013年11月，习近平总书记来到湖南湘西十八洞村考察，首次提出精准扶贫。"
	client, seen := fixedSearch(search.Response{
		Items: []search.Item{
			{Title: "十八洞村简介", Snippet: snippet, URL: "https://x.example"},
			{Title: "苗寨风光", Snippet: "山清水秀", URL: "https://y.example"},
		},
	}, nil)

	got := LookupNotableVisit(context.Background(), client, "十八洞村")

	if !strings.Contains(got, "【判断结果】：习近平总书记已到访过该实践基地") {
		t.Fatalf("expected positive determination, got:\n%s", got)
	}
	if !strings.Contains(got, "- 十八洞村简介: "+snippet) {
		t.Errorf("expected detail line for matching item, got:\n%s", got)
	}
	if strings.Contains(got, "- 苗寨风光") {
		t.Errorf("expected no detail line for non-matching item")
	}
	if !strings.Contains(got, strings.Repeat("=", 50)) {
		t.Errorf("expected separator rule")
	}

	req := (*seen)[0]
	if req.Count != 5 || req.Query != "习近平 总书记 到访 视察 调研 十八洞村" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestLookupNotableVisitDetailTruncated(t *testing.T) {
	snippet := "习近平" + strings.Repeat("好", 150)
	client, _ := fixedSearch(search.Response{
		Items: []search.Item{{Title: "T", Snippet: snippet}},
	}, nil)

	got := LookupNotableVisit(context.Background(), client, "X")
	detail := "- T: " + string([]rune(snippet)[:100])
	if !strings.Contains(got, detail+"\n") && !strings.HasSuffix(got, detail) {
		t.Errorf("expected detail truncated to 100 runes, got:\n%s", got)
	}
}

func TestLookupNotableVisitSummaryOnly(t *testing.T) {
	client, _ := fixedSearch(search.Response{
		Items:   []search.Item{{Title: "山村", Snippet: "风景"}},
		Summary: "总书记曾在此调研。",
	}, nil)

	got := LookupNotableVisit(context.Background(), client, "X")
	if !strings.Contains(got, "【判断结果】：习近平总书记已到访过该实践基地") {
		t.Fatalf("expected summary match to count, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "\n到访详情：") {
		t.Errorf("expected empty detail list, got:\n%s", got)
	}
}

func TestLookupNotableVisitSummaryIgnoresFangwen(t *testing.T) {
	client, _ := fixedSearch(search.Response{
		Items:   []search.Item{{Title: "山村", Snippet: "风景"}},
		Summary: "游客访问量很大。",
	}, nil)

	got := LookupNotableVisit(context.Background(), client, "X")
	if !strings.Contains(got, "【判断结果】：未找到习近平总书记到访该实践基地的确切记录") {
		t.Fatalf("expected negative determination, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "- 该基地可能不在总书记的足迹清单中") {
		t.Errorf("expected caveats at the end, got:\n%s", got)
	}
}

func TestLookupNotableVisitEmpty(t *testing.T) {
	client, _ := fixedSearch(search.Response{Summary: "习近平"}, nil)

	got := LookupNotableVisit(context.Background(), client, "无名基地")

	if strings.Contains(got, "【判断结果】") {
		t.Errorf("expected no determination marker, got:\n%s", got)
	}
	if !strings.Contains(got, "未找到习近平总书记到访该实践基地的相关信息。") {
		t.Errorf("expected no-results notice, got:\n%s", got)
	}
	reasons := 0
	for _, line := range strings.Split(got, "\n") {
		for _, prefix := range []string{"1. ", "2. ", "3. ", "4. "} {
			if strings.HasPrefix(line, prefix) {
				reasons++
			}
		}
	}
	if reasons != 3 {
		t.Errorf("expected exactly 3 reasons, got %d:\n%s", reasons, got)
	}
}

func TestLookupProvince(t *testing.T) {
	client, seen := fixedSearch(search.Response{
		Items:   []search.Item{{Title: "井冈山", Snippet: "江西省吉安市"}},
		Summary: "井冈山位于江西省。",
	}, nil)

	got := LookupProvince(context.Background(), client, "井冈山")
	want := strings.Join([]string{
		"实践基地：井冈山",
		"\n位置信息：\n井冈山位于江西省。",
		"\n相关搜索结果：\n",
		"1. 井冈山",
		"   江西省吉安市\n",
	}, "\n")
	if got != want {
		t.Errorf("unexpected report:\n%s\nwant:\n%s", got, want)
	}
	if (*seen)[0].Query != "井冈山 在哪个省" || (*seen)[0].Count != 3 {
		t.Errorf("unexpected request %+v", (*seen)[0])
	}
}

func TestLookupProvinceNotFound(t *testing.T) {
	client, _ := fixedSearch(search.Response{Summary: "ignored"}, nil)

	got := LookupProvince(context.Background(), client, "某地")
	if got != "未找到'某地'的省份信息。" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestLookupsReportSearchErrors(t *testing.T) {
	client, _ := fixedSearch(search.Response{}, errors.New("connection refused"))

	for _, lookup := range []LookupFunc{LookupGeneralInfo, LookupNotableVisit, LookupProvince} {
		got := lookup(context.Background(), client, "韶山")
		if !strings.Contains(got, "韶山") || !strings.Contains(got, "出错") {
			t.Errorf("expected base name and error marker, got %q", got)
		}
		if !strings.Contains(got, "connection refused") {
			t.Errorf("expected underlying error, got %q", got)
		}
	}
}

func TestSearchToolExecute(t *testing.T) {
	client, seen := fixedSearch(search.Response{
		Items: []search.Item{{Title: "T", Snippet: "S"}},
	}, nil)

	registry, err := NewSearchRegistry(client)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tool, ok := registry.Get(ToolProvince)
	if !ok {
		t.Fatal("expected search_province to be registered")
	}

	result, err := tool.Execute(context.Background(), json.RawMessage("```json\n{\"base_name\": \" 西柏坡 \"}\n```"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success() || !strings.HasPrefix(result.Output, "实践基地：西柏坡") {
		t.Errorf("unexpected result %+v", result)
	}
	if (*seen)[0].Query != "西柏坡 在哪个省" {
		t.Errorf("expected trimmed base name in query, got %q", (*seen)[0].Query)
	}
}

func TestSearchToolValidate(t *testing.T) {
	client, _ := fixedSearch(search.Response{}, nil)
	tool := NewSearchTools(client)[0]

	if err := tool.Validate(json.RawMessage(`{"base_name": ""}`)); err == nil {
		t.Error("expected error for empty base_name")
	}
	if err := tool.Validate(json.RawMessage(`not json`)); err == nil {
		t.Error("expected error for malformed arguments")
	}
	if err := tool.Validate(json.RawMessage(`{"base_name": "延安"}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLookupByName(t *testing.T) {
	client, _ := fixedSearch(search.Response{}, nil)

	got, err := Lookup(context.Background(), client, ToolBaseInfo, "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "未找到关于'X'的相关信息。" {
		t.Errorf("unexpected output %q", got)
	}
	if _, err := Lookup(context.Background(), client, "nope", "X"); err == nil {
		t.Error("expected error for unknown tool")
	}
}
