package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonutil "github.com/richinex/basetag/internal/json"
	"github.com/richinex/basetag/search"
)

// Tool names exposed to the model.
const (
	ToolBaseInfo = "search_base_info"
	ToolVisit    = "search_xi_visited"
	ToolProvince = "search_province"
)

// Keywords that mark a search hit as reporting a visit. Summary text is
// matched against the same set without 访问.
var (
	visitKeywords        = []string{"习近平", "总书记", "到访", "视察", "调研", "考察", "访问"}
	visitSummaryKeywords = []string{"习近平", "总书记", "到访", "视察", "调研", "考察"}
)

const detailSnippetRunes = 100

// LookupGeneralInfo searches for a base's introduction and features and
// renders the hits. It never fails; search errors are returned as text.
func LookupGeneralInfo(ctx context.Context, client search.Client, baseName string) string {
	resp, err := client.Search(ctx, search.Request{
		Query:       baseName + " 实践基地 介绍 特色 习近平总书记 总书记 到访 视察 调研",
		Count:       8,
		NeedSummary: true,
	})
	if err != nil {
		return fmt.Sprintf("搜索'%s'时出错：%v", baseName, err)
	}

	if len(resp.Items) == 0 {
		return fmt.Sprintf("未找到关于'%s'的相关信息。", baseName)
	}

	parts := []string{
		"实践基地名称：" + baseName,
		"\n搜索结果：\n",
	}
	for i, item := range resp.Items {
		parts = append(parts,
			fmt.Sprintf("%d. %s", i+1, item.Title),
			"   摘要："+item.Snippet,
			"   URL: "+item.URL+"\n",
		)
	}

	if resp.Summary != "" {
		parts = append(parts, "\nAI 总结：", resp.Summary)
	}

	return strings.Join(parts, "\n")
}

// LookupNotableVisit searches for reports of 习近平总书记 visiting the base and
// appends a keyword-based determination. Results mentioning the keywords in
// a negated sense still count as a visit.
func LookupNotableVisit(ctx context.Context, client search.Client, baseName string) string {
	resp, err := client.Search(ctx, search.Request{
		Query:       "习近平 总书记 到访 视察 调研 " + baseName,
		Count:       5,
		NeedSummary: true,
	})
	if err != nil {
		return fmt.Sprintf("搜索'%s'总书记到访情况时出错：%v", baseName, err)
	}

	parts := []string{
		"实践基地：" + baseName,
		"\n习近平总书记到访情况搜索结果：\n",
	}

	if len(resp.Items) == 0 {
		parts = append(parts,
			"未找到习近平总书记到访该实践基地的相关信息。",
			"\n说明：这可能意味着：",
			"1. 习近平总书记尚未到访过该基地",
			"2. 该基地的总书记到访记录未被网络收录",
			"3. 该基地不是总书记的足迹之一",
		)
		return strings.Join(parts, "\n")
	}

	visited := false
	var details []string

	for i, item := range resp.Items {
		parts = append(parts,
			fmt.Sprintf("%d. %s", i+1, item.Title),
			"   摘要："+item.Snippet+"\n",
		)

		if containsAny(strings.ToLower(item.Title), visitKeywords) ||
			containsAny(strings.ToLower(item.Snippet), visitKeywords) {
			visited = true
			details = append(details, fmt.Sprintf("- %s: %s", item.Title, truncateRunes(item.Snippet, detailSnippetRunes)))
		}
	}

	if resp.Summary != "" {
		parts = append(parts, "\nAI 总结：", resp.Summary)
		if containsAny(resp.Summary, visitSummaryKeywords) {
			visited = true
		}
	}

	parts = append(parts, "\n"+strings.Repeat("=", 50))
	if visited {
		parts = append(parts, "【判断结果】：习近平总书记已到访过该实践基地", "\n到访详情：")
		parts = append(parts, details...)
	} else {
		parts = append(parts,
			"【判断结果】：未找到习近平总书记到访该实践基地的确切记录",
			"\n说明：",
			"- 建议进一步核实该基地是否为总书记的足迹",
			"- 该基地可能不在总书记的足迹清单中",
		)
	}

	return strings.Join(parts, "\n")
}

// LookupProvince searches for the province a base is located in. The
// search summary, when present, leads the report.
func LookupProvince(ctx context.Context, client search.Client, baseName string) string {
	resp, err := client.Search(ctx, search.Request{
		Query:       baseName + " 在哪个省",
		Count:       3,
		NeedSummary: true,
	})
	if err != nil {
		return fmt.Sprintf("搜索'%s'省份时出错：%v", baseName, err)
	}

	if len(resp.Items) == 0 {
		return fmt.Sprintf("未找到'%s'的省份信息。", baseName)
	}

	parts := []string{"实践基地：" + baseName}
	if resp.Summary != "" {
		parts = append(parts, "\n位置信息：\n"+resp.Summary)
	}

	parts = append(parts, "\n相关搜索结果：\n")
	for i, item := range resp.Items {
		parts = append(parts,
			fmt.Sprintf("%d. %s", i+1, item.Title),
			"   "+item.Snippet+"\n",
		)
	}

	return strings.Join(parts, "\n")
}

// LookupFunc is the signature shared by the three lookups.
type LookupFunc func(ctx context.Context, client search.Client, baseName string) string

type capability struct {
	name        string
	description string
	lookup      LookupFunc
}

var capabilities = []capability{
	{
		name:        ToolBaseInfo,
		description: "搜索实践基地的详细信息，包括所在省份、特色主题、是否被习近平总书记到访等。",
		lookup:      LookupGeneralInfo,
	},
	{
		name:        ToolProvince,
		description: "搜索实践基地所在的省份。",
		lookup:      LookupProvince,
	},
	{
		name:        ToolVisit,
		description: "专门搜索习近平总书记是否到访过该实践基地。",
		lookup:      LookupNotableVisit,
	},
}

// SearchTool exposes one base lookup as a Tool taking a single base_name
// argument.
type SearchTool struct {
	capability
	client search.Client
}

// NewSearchTools returns the three base lookup tools bound to client.
func NewSearchTools(client search.Client) []Tool {
	list := make([]Tool, 0, len(capabilities))
	for _, c := range capabilities {
		list = append(list, &SearchTool{capability: c, client: client})
	}
	return list
}

// NewSearchRegistry registers the base lookup tools.
func NewSearchRegistry(client search.Client) (*Registry, error) {
	return NewRegistryWith(NewSearchTools(client)...)
}

// Metadata returns the tool metadata.
func (t *SearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        t.name,
		Description: t.description,
		Parameters: []ToolParameter{
			{Name: "base_name", ParamType: "string", Description: "实践基地的名称", Required: true},
		},
	}
}

type baseArgs struct {
	BaseName string `json:"base_name"`
}

func decodeBaseArgs(args json.RawMessage) (string, error) {
	var a baseArgs
	if err := jsonutil.Decode(string(args), &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	name := strings.TrimSpace(a.BaseName)
	if name == "" {
		return "", errors.New("base_name cannot be empty")
	}
	return name, nil
}

// Validate checks that base_name is present.
func (t *SearchTool) Validate(args json.RawMessage) error {
	_, err := decodeBaseArgs(args)
	return err
}

// Execute runs the lookup. Search failures are part of the output text.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	name, err := decodeBaseArgs(args)
	if err != nil {
		return FailureResult(err), nil
	}
	return SuccessResult(t.lookup(ctx, t.client, name)), nil
}

// Lookup runs the named lookup directly. toolName may be a unique prefix
// of a tool name.
func Lookup(ctx context.Context, client search.Client, toolName, baseName string) (string, error) {
	registry, err := NewSearchRegistry(client)
	if err != nil {
		return "", err
	}
	tool, err := registry.Match(toolName)
	if err != nil {
		return "", err
	}
	return tool.(*SearchTool).lookup(ctx, client, baseName), nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
