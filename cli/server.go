// HTTP surface: a JSON turn API plus the tool layer exposed over MCP.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"

	"github.com/richinex/basetag/agent"
	"github.com/richinex/basetag/llm"
	"github.com/richinex/basetag/storage"
	"github.com/richinex/basetag/tools"
)

// Version is reported to MCP clients.
var Version = "0.1.0"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

// ChatResponse is the body returned by a successful turn.
type ChatResponse struct {
	ThreadID  string           `json:"thread_id"`
	Reply     string           `json:"reply"`
	ToolCalls []agent.ToolCall `json:"tool_calls"`
	LLMCalls  int              `json:"llm_calls"`
}

type errorResponse struct {
	ThreadID string `json:"thread_id,omitempty"`
	Error    string `json:"error"`
}

type threadResponse struct {
	ThreadID string            `json:"thread_id"`
	Messages []llm.ChatMessage `json:"messages"`
}

type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Server serves the turn API and the MCP endpoint.
type Server struct {
	agent    *agent.Agent
	store    storage.ConversationStorage
	executor *tools.Executor
	logger   *slog.Logger
	handler  http.Handler
}

// NewServer builds the HTTP handler tree for a.
func NewServer(a *agent.Agent, store storage.ConversationStorage) *Server {
	s := &Server{
		agent:    a,
		store:    store,
		executor: tools.NewDefaultExecutor(),
		logger:   slog.Default(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/threads", s.handleListThreads)
	mux.HandleFunc("GET /api/threads/{id}", s.handleGetThread)
	mux.HandleFunc("DELETE /api/threads/{id}", s.handleDeleteThread)
	mux.HandleFunc("GET /api/tools", s.handleTools)
	mux.Handle("/mcp", s.mcpHandler())

	s.handler = cors.AllowAll().Handler(mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{ThreadID: req.ThreadID, Error: "message is required"})
		return
	}

	resp := s.agent.Invoke(r.Context(), req.ThreadID, req.Message)
	threadID := resp.Metadata.ThreadID

	switch resp.Type {
	case agent.ResponseSuccess:
		calls := resp.Metadata.ToolCalls
		if calls == nil {
			calls = []agent.ToolCall{}
		}
		writeJSON(w, http.StatusOK, ChatResponse{
			ThreadID:  threadID,
			Reply:     resp.Result,
			ToolCalls: calls,
			LLMCalls:  resp.Metadata.LLMCalls,
		})
	case agent.ResponseTimeout:
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{ThreadID: threadID, Error: errorPrefix + resp.PartialResult})
	default:
		writeJSON(w, http.StatusBadGateway, errorResponse{ThreadID: threadID, Error: errorPrefix + resp.Error})
	}
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.store.ListSessions(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if threads == nil {
		threads = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"threads": threads})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	history, err := s.agent.History(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{ThreadID: id, Error: err.Error()})
		return
	}
	if history == nil {
		history = []llm.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, threadResponse{ThreadID: id, Messages: history})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.agent.Reset(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{ThreadID: id, Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	list := s.agent.Tools().List()
	out := make([]toolInfo, 0, len(list))
	for _, meta := range list {
		out = append(out, toolInfo{Name: meta.Name, Description: meta.Description, InputSchema: meta.Schema()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) mcpHandler() http.Handler {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    AgentName,
		Version: Version,
	}, nil)

	for _, meta := range s.agent.Tools().List() {
		tool, _ := s.agent.Tools().Get(meta.Name)
		server.AddTool(&mcp.Tool{
			Name:        meta.Name,
			Description: meta.Description,
			InputSchema: meta.Schema(),
		}, s.mcpToolHandler(tool))
	}

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		Stateless: true,
	})
}

// mcpToolHandler runs tool through the executor. Lookup problems come back
// as report text, so only argument errors are flagged IsError.
func (s *Server) mcpToolHandler(tool tools.Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}

		result, _ := s.executor.Execute(ctx, tool, args)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Text()}},
			IsError: !result.Success(),
		}, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}
