// Tool-calling loop.
//
// One user turn runs inside Checkpointer.Turn: the model sees the system
// prompt plus the windowed history, may request tools, and the turn ends
// with a single assistant reply. Only completed turns are committed.

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/richinex/basetag/conversation"
	"github.com/richinex/basetag/llm"
	"github.com/richinex/basetag/tools"
)

var errMaxIterations = errors.New("max iterations reached")

// Agent answers user turns with a provider and a fixed tool table.
type Agent struct {
	config       Config
	provider     llm.Provider
	toolRegistry *tools.Registry
	toolExecutor *tools.Executor
	checkpointer *conversation.Checkpointer
	onChunk      func(string)
	logger       *slog.Logger
}

// New creates an agent whose history lives in checkpointer.
func New(config Config, provider llm.Provider, checkpointer *conversation.Checkpointer) *Agent {
	registry := tools.NewRegistry()
	for _, tool := range config.Tools {
		if err := registry.Register(tool); err != nil {
			slog.Warn("skipping tool", "agent", config.Name, "error", err)
		}
	}

	return &Agent{
		config:       config,
		provider:     provider,
		toolRegistry: registry,
		toolExecutor: tools.NewExecutor(config.ToolConfig),
		checkpointer: checkpointer,
		logger:       slog.Default().With("agent", config.Name),
	}
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Description returns the agent's description.
func (a *Agent) Description() string {
	return a.config.Description
}

// Tools returns the agent's tool registry.
func (a *Agent) Tools() *tools.Registry {
	return a.toolRegistry
}

// Checkpointer returns the history store the agent commits to.
func (a *Agent) Checkpointer() *conversation.Checkpointer {
	return a.checkpointer
}

// OnChunk registers a callback for streamed reply text. It only takes
// effect when the provider implements llm.Streamer.
func (a *Agent) OnChunk(fn func(string)) *Agent {
	a.onChunk = fn
	return a
}

// WithLogger replaces the agent's logger.
func (a *Agent) WithLogger(logger *slog.Logger) *Agent {
	a.logger = logger
	a.toolExecutor.WithLogger(logger)
	return a
}

// History returns the stored history of a thread.
func (a *Agent) History(ctx context.Context, threadID string) ([]llm.ChatMessage, error) {
	return a.checkpointer.Load(ctx, threadOrDefault(threadID))
}

// Reset clears the history of a thread.
func (a *Agent) Reset(ctx context.Context, threadID string) error {
	return a.checkpointer.Delete(ctx, threadOrDefault(threadID))
}

// run accumulates the bookkeeping of one turn.
type run struct {
	steps     []Step
	toolCalls []ToolCall
	usage     llm.TokenUsage
	llmCalls  int
	reply     string
	replied   bool
}

// Invoke runs one user turn on threadID. An empty thread id selects
// conversation.DefaultThreadID.
func (a *Agent) Invoke(ctx context.Context, threadID, input string) Response {
	threadID = threadOrDefault(threadID)
	start := time.Now()
	r := &run{}

	_, err := a.checkpointer.Turn(ctx, threadID, func(ctx context.Context, history []llm.ChatMessage) ([]llm.ChatMessage, error) {
		return a.loop(ctx, r, history, input)
	})

	elapsed := uint64(time.Since(start).Milliseconds())

	var resp Response
	switch {
	case err == nil:
		resp = NewSuccessResponse(r.reply, r.steps, r.toolCalls, elapsed, a.config.Name, &r.usage, r.llmCalls)
	case r.replied:
		a.logger.Warn("reply not saved", "thread", threadID, "error", err)
		resp = NewSuccessResponse(r.reply, r.steps, r.toolCalls, elapsed, a.config.Name, &r.usage, r.llmCalls)
	case errors.Is(err, errMaxIterations):
		a.logger.Warn("turn exhausted iterations", "thread", threadID, "max_iterations", a.config.maxIterations())
		resp = NewTimeoutResponse(r.steps, r.toolCalls, elapsed, &r.usage, r.llmCalls)
	default:
		a.logger.Error("turn failed", "thread", threadID, "error", err)
		resp = NewFailureResponse(err.Error(), r.steps, elapsed)
		resp.Metadata.LLMCalls = r.llmCalls
	}

	resp.Metadata.ThreadID = threadID
	return resp
}

func (a *Agent) loop(ctx context.Context, r *run, history []llm.ChatMessage, input string) ([]llm.ChatMessage, error) {
	pending := []llm.ChatMessage{llm.UserMessage(input)}
	window := a.checkpointer.Window()
	defs := a.toolRegistry.Definitions()

	for iteration := 0; iteration < a.config.maxIterations(); iteration++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
		}

		view := conversation.PromptView(window.Apply(history, pending))
		messages := make([]llm.ChatMessage, 0, len(view)+1)
		messages = append(messages, llm.SystemMessage(a.config.SystemPrompt))
		messages = append(messages, view...)

		resp, err := a.complete(ctx, messages, defs)
		if err != nil {
			return nil, fmt.Errorf("LLM chat failed: %w", err)
		}
		r.llmCalls++
		r.usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			r.reply = resp.Content
			r.replied = true
			return append(pending, llm.AssistantMessage(resp.Content)), nil
		}

		calls := make([]llm.ToolCall, len(resp.ToolCalls))
		for i, call := range resp.ToolCalls {
			if call.ID == "" {
				call.ID = fmt.Sprintf("call_%d_%d", iteration, i)
			}
			calls[i] = call
		}
		pending = append(pending, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: calls,
		})

		for _, call := range calls {
			observation := a.executeTool(ctx, r, call)
			pending = append(pending, llm.ToolResultMessage(call, observation))

			action := call.Name
			r.steps = append(r.steps, Step{
				Iteration:   iteration,
				Thought:     resp.Content,
				Action:      &action,
				Observation: &observation,
			})
		}
	}

	return nil, errMaxIterations
}

// complete calls the provider, streaming when a chunk callback is set and
// the provider supports it.
func (a *Agent) complete(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	if a.onChunk != nil {
		if streamer, ok := a.provider.(llm.Streamer); ok {
			return a.stream(ctx, streamer, messages, defs)
		}
	}
	return a.provider.ChatWithTools(ctx, messages, defs)
}

type streamResult struct {
	resp llm.LLMResponse
	err  error
}

func (a *Agent) stream(ctx context.Context, streamer llm.Streamer, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	chunks := make(chan string, 100)
	resultCh := make(chan streamResult, 1)

	go func() {
		defer close(chunks)
		resp, err := streamer.StreamWithTools(ctx, messages, defs, chunks)
		resultCh <- streamResult{resp: resp, err: err}
	}()

	for chunk := range chunks {
		a.onChunk(chunk)
	}

	result := <-resultCh
	return result.resp, result.err
}

// executeTool runs one call and returns the text handed back to the model.
func (a *Agent) executeTool(ctx context.Context, r *run, call llm.ToolCall) string {
	tool, exists := a.toolRegistry.Get(call.Name)
	if !exists {
		a.logger.Warn("model requested unknown tool", "tool", call.Name)
		r.toolCalls = append(r.toolCalls, ToolCall{Name: call.Name, InputSize: len(call.Arguments)})
		return fmt.Sprintf("Error: tool '%s' not found. Available tools: %s",
			call.Name, strings.Join(a.toolRegistry.Names(), ", "))
	}

	result, metrics := a.toolExecutor.Execute(ctx, tool, call.Arguments)
	r.toolCalls = append(r.toolCalls, metrics)
	return result.Text()
}

func threadOrDefault(threadID string) string {
	if strings.TrimSpace(threadID) == "" {
		return conversation.DefaultThreadID
	}
	return threadID
}
