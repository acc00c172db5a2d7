// Command execution for CLI commands.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richinex/basetag/agent"
	"github.com/richinex/basetag/config"
	"github.com/richinex/basetag/conversation"
	"github.com/richinex/basetag/llm"
	"github.com/richinex/basetag/search"
	"github.com/richinex/basetag/storage"
	"github.com/richinex/basetag/tools"
)

// Options holds CLI execution options. Zero values defer to the agent file
// and environment.
type Options struct {
	Provider    string
	Model       string
	AgentFile   string
	DBPath      string
	MaxIter     int
	MaxMessages int
	Stream      bool
	Raw         bool
	Verbose     bool
}

// errorPrefix introduces a failed turn in chat output.
const errorPrefix = "处理时出错："

// Session drives turns against one thread and writes replies to out.
type Session struct {
	agent    *agent.Agent
	threadID string
	out      io.Writer
	render   func(string) string
	stream   bool
	verbose  bool
}

// NewSession prepares a session on threadID.
func NewSession(a *agent.Agent, threadID string, out io.Writer, opts Options) *Session {
	s := &Session{
		agent:    a,
		threadID: threadID,
		out:      out,
		render:   func(s string) string { return s },
		stream:   opts.Stream,
		verbose:  opts.Verbose,
	}
	if !opts.Raw && !opts.Stream {
		s.render = newMarkdownRenderer()
	}
	if s.stream {
		a.OnChunk(func(chunk string) { fmt.Fprint(out, chunk) })
	}
	return s
}

// Turn runs one user turn and prints the outcome. The response is returned
// for callers that need its status.
func (s *Session) Turn(ctx context.Context, input string) agent.Response {
	resp := s.agent.Invoke(ctx, s.threadID, input)

	switch resp.Type {
	case agent.ResponseSuccess:
		if s.verbose {
			printAgentSteps(s.out, resp.Steps)
		}
		if s.stream {
			fmt.Fprint(s.out, "\n\n")
		} else {
			fmt.Fprintf(s.out, "\n%s\n\n", strings.TrimRight(s.render(resp.Result), "\n"))
		}
		if s.verbose {
			printUsage(s.out, resp.Metadata)
		}
	case agent.ResponseFailure:
		fmt.Fprintf(s.out, "\n%s%s\n\n", errorPrefix, resp.Error)
	case agent.ResponseTimeout:
		fmt.Fprintf(s.out, "\n%s%s\n\n", errorPrefix, resp.PartialResult)
	}

	return resp
}

// Chat reads utterances from in until EOF or exit/quit. "/clear" drops the
// thread's history and "/history" reports its size.
func Chat(ctx context.Context, app *App, threadID string, in io.Reader, out io.Writer, opts Options) error {
	session := NewSession(app.Agent, threadID, out, opts)

	history, err := app.Agent.History(ctx, threadID)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		fmt.Fprintf(out, "继续会话 '%s'（%d 条消息）\n", threadOrDefault(threadID), len(history))
	}
	fmt.Fprintln(out, "请输入实践基地名称，例如：湖南十八洞村。输入 exit 退出，/clear 清除对话历史。")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/clear":
			if err := app.Agent.Reset(ctx, threadID); err != nil {
				fmt.Fprintf(out, "%s%v\n\n", errorPrefix, err)
				continue
			}
			fmt.Fprintln(out, "对话历史已清除。")
			fmt.Fprintln(out)
			continue
		case "/history":
			history, err := app.Agent.History(ctx, threadID)
			if err != nil {
				fmt.Fprintf(out, "%s%v\n\n", errorPrefix, err)
				continue
			}
			fmt.Fprintf(out, "%d 条消息（窗口上限 %d）\n\n", len(history), app.Agent.Checkpointer().Window().Size())
			continue
		}

		session.Turn(ctx, input)
	}

	return scanner.Err()
}

// Ask runs a single turn and fails unless it succeeded.
func Ask(ctx context.Context, app *App, threadID, question string, out io.Writer, opts Options) error {
	resp := NewSession(app.Agent, threadID, out, opts).Turn(ctx, question)

	switch resp.Type {
	case agent.ResponseSuccess:
		return nil
	case agent.ResponseTimeout:
		return fmt.Errorf("task timed out")
	default:
		return fmt.Errorf("task failed: %s", resp.Error)
	}
}

// Lookup runs one search tool directly, without a model.
func Lookup(ctx context.Context, toolName, baseName string, out io.Writer) error {
	settings, err := config.SearchFromEnv()
	if err != nil {
		return err
	}
	client, err := search.New(search.Config{
		Provider: settings.Provider,
		APIKey:   settings.APIKey,
		Timeout:  settings.Timeout,
	})
	if err != nil {
		return err
	}

	report, err := tools.Lookup(ctx, client, toolName, baseName)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, report)
	return nil
}

// ListTools lists the tools offered to the model.
func ListTools(out io.Writer, verbose bool) {
	registry, _ := tools.NewSearchRegistry(search.Func(nil))

	fmt.Fprintln(out, "Available tools:")
	fmt.Fprintln(out)

	for _, meta := range registry.List() {
		fmt.Fprintf(out, "  %s\n", meta.Name)
		fmt.Fprintf(out, "    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Fprintln(out, "    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(out, "      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Fprintln(out)
	}
}

// OpenStore opens the checkpoint store at dbPath, or at BASETAG_DB when
// dbPath is empty.
func OpenStore(dbPath string) (storage.ConversationStorage, func() error) {
	if dbPath == "" {
		dbPath = os.Getenv("BASETAG_DB")
	}
	return storage.Resolve(dbPath)
}

// ListSessions prints stored thread ids with their message counts.
func ListSessions(ctx context.Context, store storage.ConversationStorage, out io.Writer) error {
	threads, err := store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(threads) == 0 {
		fmt.Fprintln(out, "No sessions.")
		return nil
	}
	for _, id := range threads {
		history, err := store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("load session %q: %w", id, err)
		}
		fmt.Fprintf(out, "  %s  (%d messages)\n", id, len(history))
	}
	return nil
}

// ShowSession prints a thread's stored history.
func ShowSession(ctx context.Context, store storage.ConversationStorage, threadID string, out io.Writer) error {
	history, err := store.Load(ctx, threadOrDefault(threadID))
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	for _, m := range history {
		switch {
		case m.Role == llm.RoleTool:
			fmt.Fprintf(out, "[tool:%s] %s\n", m.Name, truncateString(m.Content, maxToolPreviewLen))
		case m.HasToolCalls():
			names := make([]string, len(m.ToolCalls))
			for i, c := range m.ToolCalls {
				names[i] = c.Name
			}
			fmt.Fprintf(out, "[%s] -> %s\n", m.Role, strings.Join(names, ", "))
		default:
			fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
		}
	}
	return nil
}

// ClearSession deletes a thread's stored history.
func ClearSession(ctx context.Context, store storage.ConversationStorage, threadID string) error {
	if err := store.Delete(ctx, threadOrDefault(threadID)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

const (
	maxObservationLen = 400
	maxToolPreviewLen = 120
)

func printAgentSteps(out io.Writer, steps []agent.Step) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(out, "--- Steps ---")
	for _, step := range steps {
		fmt.Fprintf(out, "[%d] %s\n", step.Iteration, step.Thought)
		if step.Action != nil {
			fmt.Fprintf(out, "    Action: %s\n", *step.Action)
		}
		if step.Observation != nil {
			fmt.Fprintf(out, "    Observation: %s\n", truncateString(*step.Observation, maxObservationLen))
		}
	}
	fmt.Fprintln(out, "-------------")
}

func printUsage(out io.Writer, meta agent.Metadata) {
	fmt.Fprintf(out, "(%d LLM calls, %d tool calls, %d ms", meta.LLMCalls, len(meta.ToolCalls), meta.ExecutionTimeMs)
	if meta.TokenUsage != nil && meta.TokenUsage.TotalTokens > 0 {
		fmt.Fprintf(out, ", %d tokens", meta.TokenUsage.TotalTokens)
	}
	fmt.Fprintln(out, ")")
	fmt.Fprintln(out)
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

func threadOrDefault(threadID string) string {
	if strings.TrimSpace(threadID) == "" {
		return conversation.DefaultThreadID
	}
	return threadID
}
