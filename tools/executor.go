package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/basetag/model"
)

// Executor runs tools with validation, a per-call timeout and panic
// containment. Each call is attempted exactly once.
type Executor struct {
	config ToolConfig
	logger *slog.Logger
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ToolConfig) *Executor {
	return &Executor{config: config, logger: slog.Default()}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(ToolConfig{})
}

// WithLogger replaces the executor's logger.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	e.logger = logger
	return e
}

// Execute runs tool once and reports call metrics alongside the result.
// Validation failures, tool errors and panics all become failed results.
func (e *Executor) Execute(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, model.ToolCall) {
	start := time.Now()
	name := tool.Metadata().Name

	result := e.run(ctx, tool, args)

	call := model.ToolCall{
		Name:       name,
		InputSize:  len(args),
		OutputSize: len(result.Output),
		DurationMs: uint64(time.Since(start).Milliseconds()),
		Success:    result.Success(),
	}

	if result.Success() {
		e.logger.Debug("tool call", "tool", name, "duration_ms", call.DurationMs, "output_bytes", call.OutputSize)
	} else {
		e.logger.Warn("tool call failed", "tool", name, "error", result.Error)
	}

	return result, call
}

func (e *Executor) run(ctx context.Context, tool Tool, args json.RawMessage) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = FailureResultf("tool '%s' panicked: %v", tool.Metadata().Name, r)
		}
	}()

	if err := tool.Validate(args); err != nil {
		return FailureResult(fmt.Errorf("validation failed: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout())
	defer cancel()

	res, err := tool.Execute(ctx, args)
	if err != nil {
		return FailureResult(fmt.Errorf("tool '%s' failed: %w", tool.Metadata().Name, err))
	}
	return res
}
