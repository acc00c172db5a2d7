package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/richinex/basetag/llm"
	"github.com/richinex/basetag/storage"
)

// TurnFunc produces the messages of one turn from the current history.
// Returning an error discards everything the turn produced.
type TurnFunc func(ctx context.Context, history []llm.ChatMessage) ([]llm.ChatMessage, error)

// Checkpointer persists windowed history per thread. Turns on the same
// thread are serialized; different threads never share a lock.
type Checkpointer struct {
	store  storage.ConversationStorage
	window Window

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCheckpointer creates a checkpointer over store with the given window
// size (zero selects DefaultMaxMessages).
func NewCheckpointer(store storage.ConversationStorage, maxMessages int) *Checkpointer {
	return &Checkpointer{
		store:  store,
		window: Window{Max: maxMessages},
		locks:  make(map[string]*sync.Mutex),
	}
}

// Window returns the window applied on every commit.
func (c *Checkpointer) Window() Window {
	return c.window
}

func (c *Checkpointer) lock(threadID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[threadID] = l
	}
	return l
}

// Load returns the stored history for a thread, empty if it has none.
func (c *Checkpointer) Load(ctx context.Context, threadID string) ([]llm.ChatMessage, error) {
	history, err := c.store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread %q: %w", threadID, err)
	}
	return history, nil
}

// Append commits messages to a thread outside of an agent turn.
func (c *Checkpointer) Append(ctx context.Context, threadID string, messages ...llm.ChatMessage) ([]llm.ChatMessage, error) {
	return c.Turn(ctx, threadID, func(context.Context, []llm.ChatMessage) ([]llm.ChatMessage, error) {
		return messages, nil
	})
}

// Turn runs fn under the thread lock and commits its output through the
// window. Nothing is saved when fn fails. The committed history is returned.
func (c *Checkpointer) Turn(ctx context.Context, threadID string, fn TurnFunc) ([]llm.ChatMessage, error) {
	l := c.lock(threadID)
	l.Lock()
	defer l.Unlock()

	history, err := c.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	produced, err := fn(ctx, llm.CloneMessages(history))
	if err != nil {
		return nil, err
	}

	next := c.window.Apply(history, produced)
	if err := c.store.Save(ctx, threadID, next); err != nil {
		return nil, fmt.Errorf("save thread %q: %w", threadID, err)
	}
	return next, nil
}

// Delete removes a thread's history.
func (c *Checkpointer) Delete(ctx context.Context, threadID string) error {
	l := c.lock(threadID)
	l.Lock()
	defer l.Unlock()

	if err := c.store.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("delete thread %q: %w", threadID, err)
	}
	return nil
}

// Threads lists known thread ids.
func (c *Checkpointer) Threads(ctx context.Context) ([]string, error) {
	threads, err := c.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}
