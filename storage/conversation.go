// Package storage provides the checkpoint store for conversation threads.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
// - Each implementation owns its copies; callers never share slices with it

package storage

import (
	"context"

	"github.com/richinex/basetag/llm"
)

// ConversationStorage stores conversation history keyed by thread id.
type ConversationStorage interface {
	// Save replaces the history of a thread.
	Save(ctx context.Context, threadID string, history []llm.ChatMessage) error

	// Load loads the history of a thread.
	// Returns empty slice (not nil) if the thread doesn't exist.
	// Returns error only for storage failures, not missing threads.
	Load(ctx context.Context, threadID string) ([]llm.ChatMessage, error)

	// Delete deletes the history of a thread.
	Delete(ctx context.Context, threadID string) error

	// ListSessions lists all thread ids.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists checks if a thread exists.
	Exists(ctx context.Context, threadID string) (bool, error)
}
