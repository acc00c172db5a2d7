package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/richinex/basetag/llm"
	"github.com/richinex/basetag/storage"
)

func exchange(input string) TurnFunc {
	return func(_ context.Context, history []llm.ChatMessage) ([]llm.ChatMessage, error) {
		return []llm.ChatMessage{
			llm.UserMessage(input),
			llm.AssistantMessage(fmt.Sprintf("reply to %s (seen %d)", input, len(history))),
		}, nil
	}
}

func TestCheckpointerTurnCommits(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointer(storage.NewInMemoryStorage(), 0)

	if _, err := cp.Turn(ctx, "t1", exchange("湖南十八洞村")); err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	history, err := cp.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[1].Content != "reply to 湖南十八洞村 (seen 0)" {
		t.Errorf("unexpected reply: %q", history[1].Content)
	}
}

func TestCheckpointerFailedTurnSavesNothing(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryStorage()
	cp := NewCheckpointer(store, 0)

	if _, err := cp.Turn(ctx, "t1", exchange("first")); err != nil {
		t.Fatalf("Turn failed: %v", err)
	}

	boom := errors.New("model unavailable")
	_, err := cp.Turn(ctx, "t1", func(context.Context, []llm.ChatMessage) ([]llm.ChatMessage, error) {
		return []llm.ChatMessage{llm.UserMessage("second")}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected turn error, got %v", err)
	}

	history, _ := cp.Load(ctx, "t1")
	if len(history) != 2 {
		t.Errorf("expected failed turn to leave 2 messages, got %d", len(history))
	}
}

func TestCheckpointerTurnCannotMutateStoredHistory(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointer(storage.NewInMemoryStorage(), 0)
	_, _ = cp.Append(ctx, "t1", llm.UserMessage("original"))

	_, err := cp.Turn(ctx, "t1", func(_ context.Context, history []llm.ChatMessage) ([]llm.ChatMessage, error) {
		history[0].Content = "tampered"
		return nil, errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	history, _ := cp.Load(ctx, "t1")
	if history[0].Content != "original" {
		t.Errorf("stored history mutated: %q", history[0].Content)
	}
}

func TestCheckpointerWindowAppliedOnCommit(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointer(storage.NewInMemoryStorage(), 6)

	for i := 0; i < 10; i++ {
		if _, err := cp.Turn(ctx, "t1", exchange(fmt.Sprintf("q%d", i))); err != nil {
			t.Fatalf("Turn %d failed: %v", i, err)
		}
	}

	history, _ := cp.Load(ctx, "t1")
	if len(history) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(history))
	}
	if history[0].Content != "q7" {
		t.Errorf("expected oldest kept message 'q7', got %q", history[0].Content)
	}
}

func TestCheckpointerInterleavedThreadsStayIsolated(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointer(storage.NewInMemoryStorage(), 0)

	for i := 0; i < 5; i++ {
		if _, err := cp.Turn(ctx, "A", exchange(fmt.Sprintf("A%d", i))); err != nil {
			t.Fatal(err)
		}
		if _, err := cp.Turn(ctx, "B", exchange(fmt.Sprintf("B%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	for _, thread := range []string{"A", "B"} {
		history, _ := cp.Load(ctx, thread)
		if len(history) != 10 {
			t.Errorf("thread %s: expected 10 messages, got %d", thread, len(history))
		}
		for _, m := range history {
			if m.Role == llm.RoleUser && !strings.HasPrefix(m.Content, thread) {
				t.Errorf("thread %s contains foreign message %q", thread, m.Content)
			}
		}
	}
}

func TestCheckpointerConcurrentThreads(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointer(storage.NewInMemoryStorage(), 1000)

	const threads, turns = 8, 25
	var wg sync.WaitGroup
	for th := 0; th < threads; th++ {
		for w := 0; w < 2; w++ {
			wg.Add(1)
			go func(th, w int) {
				defer wg.Done()
				id := fmt.Sprintf("thread-%d", th)
				for i := 0; i < turns; i++ {
					if _, err := cp.Turn(ctx, id, exchange(fmt.Sprintf("%s/%d/%d", id, w, i))); err != nil {
						t.Errorf("Turn failed: %v", err)
						return
					}
				}
			}(th, w)
		}
	}
	wg.Wait()

	for th := 0; th < threads; th++ {
		id := fmt.Sprintf("thread-%d", th)
		history, _ := cp.Load(ctx, id)
		// Two writers per thread, serialized: no turn may be lost.
		if len(history) != 2*turns*2 {
			t.Errorf("%s: expected %d messages, got %d", id, 2*turns*2, len(history))
		}
		for _, m := range history {
			if m.Role == llm.RoleUser && !strings.HasPrefix(m.Content, id+"/") {
				t.Errorf("%s contains foreign message %q", id, m.Content)
			}
		}
	}
}

func TestCheckpointerDeleteAndThreads(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointer(storage.NewInMemoryStorage(), 0)

	_, _ = cp.Append(ctx, "keep", llm.UserMessage("x"))
	_, _ = cp.Append(ctx, "drop", llm.UserMessage("y"))

	if err := cp.Delete(ctx, "drop"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	threads, err := cp.Threads(ctx)
	if err != nil {
		t.Fatalf("Threads failed: %v", err)
	}
	if len(threads) != 1 || threads[0] != "keep" {
		t.Errorf("expected only 'keep', got %v", threads)
	}

	history, _ := cp.Load(ctx, "drop")
	if len(history) != 0 {
		t.Errorf("expected deleted thread to be empty, got %d", len(history))
	}
}

func TestCheckpointerAppendRemoveAllClearsThread(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointer(storage.NewInMemoryStorage(), 0)

	_, _ = cp.Turn(ctx, "t1", exchange("q"))
	history, err := cp.Append(ctx, "t1", RemoveAllMessages())
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d", len(history))
	}
}
