// Package main provides the basetag CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/basetag/cli"
	"github.com/richinex/basetag/tools"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider    string
	agentFile   string
	model       string
	maxIter     int
	maxMessages int
	dbPath      string
	verbose     bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "basetag",
		Short: "Classify practice bases into three-level tags",
		Long: `A conversational assistant that assigns practice bases (红色教育实践基地)
their province, theme and notable-visit tags, backed by web search tools.

Conversation history is kept per thread and trimmed to a sliding window.
Set --db (or BASETAG_DB) to persist threads in SQLite.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini, compatible)")
	rootCmd.PersistentFlags().StringVarP(&agentFile, "agent-file", "f", "", "Agent configuration file (JSON or YAML); built-in default when empty")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Override the model named in the agent file")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 0, "Maximum model calls per turn")
	rootCmd.PersistentFlags().IntVar(&maxMessages, "max-messages", 0, "Sliding window size (messages kept per thread)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database for thread history (in-memory when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show tool rounds and debug logs")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(sessionsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func options() cli.Options {
	return cli.Options{
		Provider:    provider,
		AgentFile:   agentFile,
		Model:       model,
		DBPath:      dbPath,
		MaxIter:     maxIter,
		MaxMessages: maxMessages,
		Verbose:     verbose,
	}
}

func chatCmd() *cobra.Command {
	var threadID string
	var stream bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive classification session",
		Long: `Start an interactive session. Each line is one user turn on the thread.

Commands inside the session:
  /clear    drop this thread's history
  /history  show how many messages the thread holds
  exit      leave the session`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.Stream = stream
			opts.Raw = raw

			app, err := cli.NewApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return cli.Chat(cmd.Context(), app, threadID, os.Stdin, os.Stdout, opts)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Thread id (default thread when empty)")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream replies as they are generated")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print replies without markdown rendering")

	return cmd
}

func askCmd() *cobra.Command {
	var threadID string
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask [base name or question]",
		Short: "Run a single turn and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.Raw = raw

			app, err := cli.NewApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return cli.Ask(cmd.Context(), app, threadID, args[0], os.Stdout, opts)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Thread id (default thread when empty)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the reply without markdown rendering")

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API and the tools over MCP",
		Long: `Serve over HTTP:

  POST   /api/chat          {"thread_id": "...", "message": "..."}
  GET    /api/threads       list threads
  GET    /api/threads/{id}  thread history
  DELETE /api/threads/{id}  clear a thread
  GET    /api/tools         tool table
  /mcp                      the search tools as an MCP server (streamable HTTP)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.NewApp(options())
			if err != nil {
				return err
			}
			defer app.Close()

			return cli.NewServer(app.Agent, app.Store).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Listen address")

	return cmd
}

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [tool] [base name]",
		Short: "Run one search tool directly, without a model",
		Long: fmt.Sprintf(`Run one search tool directly and print its report.

Tools: %s, %s, %s`, tools.ToolBaseInfo, tools.ToolProvince, tools.ToolVisit),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Lookup(cmd.Context(), args[0], args[1], os.Stdout)
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the model",
		Run: func(cmd *cobra.Command, args []string) {
			cli.ListTools(os.Stdout, verbose)
		},
	}
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored threads",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore := cli.OpenStore(dbPath)
			defer closeStore()
			return cli.ListSessions(cmd.Context(), store, os.Stdout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [thread]",
		Short: "Print a thread's history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore := cli.OpenStore(dbPath)
			defer closeStore()
			return cli.ShowSession(cmd.Context(), store, firstArg(args), os.Stdout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [thread]",
		Short: "Delete a thread's history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore := cli.OpenStore(dbPath)
			defer closeStore()
			return cli.ClearSession(cmd.Context(), store, firstArg(args))
		},
	})

	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
