package conversation

import (
	"fmt"
	"testing"

	"github.com/richinex/basetag/llm"
)

func numbered(prefix string, n int) []llm.ChatMessage {
	out := make([]llm.ChatMessage, n)
	for i := range out {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		out[i] = llm.ChatMessage{Role: role, Content: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return out
}

func contents(messages []llm.ChatMessage) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}

func TestAppendAndTrimBelowCapIsConcatenation(t *testing.T) {
	existing := numbered("old", 10)
	incoming := numbered("new", 2)

	got := AppendAndTrim(existing, incoming, 40)

	want := append(contents(existing), contents(incoming)...)
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i, c := range contents(got) {
		if c != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], c)
		}
	}
}

func TestAppendAndTrimDropsFromFront(t *testing.T) {
	existing := numbered("old", 39)
	incoming := numbered("new", 5)

	got := AppendAndTrim(existing, incoming, 40)

	if len(got) != 40 {
		t.Fatalf("expected 40 messages, got %d", len(got))
	}
	// 44 merged, the first 4 are dropped.
	if got[0].Content != "old-4" {
		t.Errorf("expected first message 'old-4', got %q", got[0].Content)
	}
	if got[39].Content != "new-4" {
		t.Errorf("expected last message 'new-4', got %q", got[39].Content)
	}
	for i := 1; i < len(got); i++ {
		if got[i].ID == got[i-1].ID {
			t.Fatalf("duplicate id at %d", i)
		}
	}
}

func TestAppendAndTrimIncomingLargerThanWindow(t *testing.T) {
	existing := numbered("old", 10)
	incoming := numbered("new", 50)

	got := AppendAndTrim(existing, incoming, 40)

	if len(got) != 40 {
		t.Fatalf("expected 40 messages, got %d", len(got))
	}
	if got[0].Content != "new-10" {
		t.Errorf("expected first message 'new-10', got %q", got[0].Content)
	}
	if got[39].Content != "new-49" {
		t.Errorf("expected last message 'new-49', got %q", got[39].Content)
	}
}

func TestAppendAndTrimBoundHolds(t *testing.T) {
	var history []llm.ChatMessage
	for turn := 0; turn < 60; turn++ {
		history = AppendAndTrim(history, numbered(fmt.Sprintf("t%d", turn), 2), 40)
		if len(history) > 40 {
			t.Fatalf("turn %d: window exceeded, got %d", turn, len(history))
		}
	}
	if history[len(history)-1].Content != "t59-1" {
		t.Errorf("expected newest message last, got %q", history[len(history)-1].Content)
	}
}

func TestAppendAndTrimDefaultMax(t *testing.T) {
	got := AppendAndTrim(nil, numbered("m", 45), 0)
	if len(got) != DefaultMaxMessages {
		t.Errorf("expected %d messages, got %d", DefaultMaxMessages, len(got))
	}
}

func TestAppendAndTrimAssignsIDsWithoutMutatingInputs(t *testing.T) {
	existing := []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}
	incoming := []llm.ChatMessage{{Role: llm.RoleAssistant, Content: "hello"}}

	got := AppendAndTrim(existing, incoming, 40)

	for i, m := range got {
		if m.ID == "" {
			t.Errorf("message %d has no id", i)
		}
	}
	if existing[0].ID != "" || incoming[0].ID != "" {
		t.Error("inputs were modified")
	}
}

func TestAppendAndTrimKeepsExistingIDs(t *testing.T) {
	existing := []llm.ChatMessage{{ID: "keep-me", Role: llm.RoleUser, Content: "hi"}}

	got := AppendAndTrim(existing, nil, 40)

	if got[0].ID != "keep-me" {
		t.Errorf("expected id 'keep-me', got %q", got[0].ID)
	}
}

func TestAppendAndTrimRemoveByID(t *testing.T) {
	existing := []llm.ChatMessage{
		{ID: "a", Role: llm.RoleUser, Content: "one"},
		{ID: "b", Role: llm.RoleAssistant, Content: "two"},
		{ID: "c", Role: llm.RoleUser, Content: "three"},
	}

	got := AppendAndTrim(existing, []llm.ChatMessage{
		RemoveMessage("b"),
		{ID: "d", Role: llm.RoleAssistant, Content: "four"},
	}, 40)

	want := []string{"one", "three", "four"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, contents(got))
	}
	for i, c := range contents(got) {
		if c != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], c)
		}
	}
	for _, m := range got {
		if IsRemoval(m) {
			t.Error("removal marker leaked into history")
		}
	}
}

func TestAppendAndTrimRemoveAll(t *testing.T) {
	existing := numbered("old", 8)

	got := AppendAndTrim(existing, []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "dropped too"},
		RemoveAllMessages(),
		{Role: llm.RoleUser, Content: "fresh"},
	}, 40)

	if len(got) != 1 || got[0].Content != "fresh" {
		t.Errorf("expected only 'fresh', got %v", contents(got))
	}
}

func TestAppendAndTrimRemoveUnknownIDIsNoop(t *testing.T) {
	existing := numbered("old", 3)

	got := AppendAndTrim(existing, []llm.ChatMessage{RemoveMessage("missing")}, 40)

	if len(got) != 3 {
		t.Errorf("expected 3 messages, got %d", len(got))
	}
}

func TestPromptViewStartsAtUserTurn(t *testing.T) {
	history := []llm.ChatMessage{
		{Role: llm.RoleTool, Content: "orphan result", ToolCallID: "x"},
		{Role: llm.RoleAssistant, Content: "answer to trimmed question"},
		{Role: llm.RoleUser, Content: "next"},
		{Role: llm.RoleAssistant, Content: "reply"},
	}

	view := PromptView(history)

	if len(view) != 2 || view[0].Content != "next" {
		t.Errorf("expected view to start at 'next', got %v", contents(view))
	}
	if len(history) != 4 {
		t.Error("history was modified")
	}
}

func TestPromptViewWithoutUserTurnDropsOrphanToolResults(t *testing.T) {
	history := []llm.ChatMessage{
		{Role: llm.RoleTool, Content: "orphan"},
		{Role: llm.RoleAssistant, Content: "a", ToolCalls: []llm.ToolCall{{ID: "1", Name: "t"}}},
		{Role: llm.RoleTool, Content: "r", ToolCallID: "1"},
	}

	view := PromptView(history)

	if len(view) != 2 || view[0].Role != llm.RoleAssistant {
		t.Errorf("expected view to start at assistant, got %v", contents(view))
	}
}

func TestWindowSize(t *testing.T) {
	if (Window{}).Size() != DefaultMaxMessages {
		t.Errorf("expected zero window to use default size")
	}
	if (Window{Max: 4}).Size() != 4 {
		t.Errorf("expected window size 4")
	}
	got := Window{Max: 4}.Apply(numbered("a", 3), numbered("b", 3))
	if len(got) != 4 || got[0].Content != "a-2" {
		t.Errorf("unexpected window result: %v", contents(got))
	}
}
