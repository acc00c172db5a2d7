// Package conversation keeps per-thread chat history bounded by a sliding
// window and commits agent turns atomically.
package conversation

import (
	"github.com/google/uuid"

	"github.com/richinex/basetag/llm"
)

// DefaultMaxMessages is the window size: about 20 user/assistant exchanges.
const DefaultMaxMessages = 40

// DefaultThreadID is used when a caller does not name a thread.
const DefaultThreadID = "default"

// RoleRemove marks a message that deletes history instead of adding to it.
const RoleRemove = "remove"

// RemoveAll is the marker ID that clears every earlier message.
const RemoveAll = "__remove_all__"

// RemoveMessage returns a marker that deletes the message with the given id.
func RemoveMessage(id string) llm.ChatMessage {
	return llm.ChatMessage{ID: id, Role: RoleRemove}
}

// RemoveAllMessages returns a marker that clears the whole history.
func RemoveAllMessages() llm.ChatMessage {
	return RemoveMessage(RemoveAll)
}

// IsRemoval reports whether m is a removal marker.
func IsRemoval(m llm.ChatMessage) bool {
	return m.Role == RoleRemove
}

// AppendAndTrim merges incoming into existing and keeps the last max
// messages. Removal markers in incoming are applied in order against
// everything before them and are never part of the result. Messages
// without an ID get one. Neither input is modified.
//
// A max of zero or less selects DefaultMaxMessages.
func AppendAndTrim(existing, incoming []llm.ChatMessage, max int) []llm.ChatMessage {
	if max <= 0 {
		max = DefaultMaxMessages
	}

	merged := make([]llm.ChatMessage, 0, len(existing)+len(incoming))
	for _, m := range existing {
		merged = append(merged, withID(m.Clone()))
	}

	for _, m := range incoming {
		if IsRemoval(m) {
			if m.ID == RemoveAll {
				merged = merged[:0]
			} else {
				merged = dropID(merged, m.ID)
			}
			continue
		}
		merged = append(merged, withID(m.Clone()))
	}

	if len(merged) <= max {
		return merged
	}

	out := make([]llm.ChatMessage, max)
	copy(out, merged[len(merged)-max:])
	return out
}

// Window applies AppendAndTrim with a fixed size.
type Window struct {
	Max int
}

// Size returns the effective window size.
func (w Window) Size() int {
	if w.Max <= 0 {
		return DefaultMaxMessages
	}
	return w.Max
}

// Apply merges incoming into existing under the window.
func (w Window) Apply(existing, incoming []llm.ChatMessage) []llm.ChatMessage {
	return AppendAndTrim(existing, incoming, w.Size())
}

// PromptView returns the part of history that is safe to send to a model.
// Truncation can cut an exchange in half, leaving tool results or an
// assistant reply without the user turn that started them; PromptView
// starts at the first user message. If there is none, only leading tool
// results are dropped. The stored history is not changed.
func PromptView(history []llm.ChatMessage) []llm.ChatMessage {
	for i, m := range history {
		if m.Role == llm.RoleUser {
			return history[i:]
		}
	}

	start := 0
	for start < len(history) && history[start].Role == llm.RoleTool {
		start++
	}
	return history[start:]
}

func withID(m llm.ChatMessage) llm.ChatMessage {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return m
}

func dropID(messages []llm.ChatMessage, id string) []llm.ChatMessage {
	out := messages[:0]
	for _, m := range messages {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
