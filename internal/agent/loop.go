package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/nyzhi-com/nyzhi/internal/client"
	"github.com/nyzhi-com/nyzhi/internal/event"
	"github.com/nyzhi-com/nyzhi/internal/log"
	"github.com/nyzhi-com/nyzhi/internal/message"
	"github.com/nyzhi-com/nyzhi/internal/provider"
	"github.com/nyzhi-com/nyzhi/internal/system"
	"github.com/nyzhi-com/nyzhi/internal/thread"
	"github.com/nyzhi-com/nyzhi/internal/tool"
)

const previewWidth = 120

// Loop drives one agent: it interleaves model streaming with tool dispatch
// against a single thread it owns exclusively.
type Loop struct {
	Client   client.Interface
	Registry *tool.Registry
	Config   Config
	Thread   *thread.Thread
	Events   event.Sink
	ToolCtx  *tool.Context

	// compacted tracks whether a context-overflow compaction already ran
	// this turn; a second overflow is fatal.
	compacted bool
}

// RunTurn drives one user input to a stable assistant answer, dispatching
// tools as the model requests them. It returns on natural completion, step
// budget exhaustion, or fatal error; every recoverable fault is fed back to
// the model as a tool result instead.
func (l *Loop) RunTurn(ctx context.Context, userInput string) error {
	cfg := l.Config.withDefaults()

	l.Thread.Push(message.UserMessage(userInput))
	l.compacted = false

	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			l.cancelTurn()
			return err
		}

		acc, err := l.streamOnce(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				l.cancelTurn()
				return ctx.Err()
			}
			if provider.IsContextOverflow(err) && !l.compacted {
				if cerr := l.compact(ctx, cfg); cerr == nil {
					l.compacted = true
					continue
				}
			}
			event.Emit(l.Events, event.Event{Type: event.Error, Text: err.Error()})
			return err
		}

		l.Client.AddUsage(message.Usage{
			InputTokens:  acc.Usage.InputTokens,
			OutputTokens: acc.Usage.OutputTokens,
		})

		if !acc.HasToolCalls() {
			l.Thread.Push(message.AssistantMessage(acc.Text, acc.Thinking, nil))
			event.Emit(l.Events, event.Event{Type: event.TurnComplete})
			return nil
		}

		l.Thread.Push(message.AssistantMessage(acc.Text, acc.Thinking, acc.ToolCalls))
		l.dispatchCalls(ctx, cfg, acc)

		if err := ctx.Err(); err != nil {
			l.cancelTurn()
			return err
		}

		if step+1 >= cfg.MaxSteps {
			event.Emit(l.Events, event.Event{Type: event.Error, Text: "step budget exhausted"})
			return nil
		}
	}
}

// streamOnce performs one model round-trip, feeding the accumulator and
// emitting deltas as they arrive.
func (l *Loop) streamOnce(ctx context.Context, cfg Config) (*message.Accumulator, error) {
	msgs := l.Thread.Snapshot()
	tools := l.Registry.Definitions()

	var acc message.Accumulator
	for chunk := range l.Client.Stream(ctx, msgs, tools, cfg.SystemPrompt) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		acc.Feed(chunk)

		switch chunk.Type {
		case message.ChunkTypeText:
			event.Emit(l.Events, event.Event{Type: event.TextDelta, Text: chunk.Text})
		case message.ChunkTypeToolInput:
			event.Emit(l.Events, event.Event{
				Type:    event.ToolCallDelta,
				ToolID:  chunk.ToolID,
				Preview: preview(chunk.Text),
			})
		case message.ChunkTypeError:
			return nil, chunk.Error
		}
	}

	if acc.Err != nil {
		return nil, acc.Err
	}
	return &acc, nil
}

// dispatchCalls executes the accumulated tool calls. Independent read-only
// calls run concurrently; approval-bound calls run serially in model order.
// Results are appended to the thread in the order the model emitted the
// calls, regardless of which finished first.
func (l *Loop) dispatchCalls(ctx context.Context, cfg Config, acc *message.Accumulator) {
	calls := acc.ToolCalls
	results := make([]tool.Result, len(calls))

	invalid := make(map[int]bool)
	for _, i := range acc.InvalidCalls() {
		invalid[i] = true
	}

	var wg sync.WaitGroup
	var serial []int

	for i, tc := range calls {
		if invalid[i] {
			results[i] = tool.Result{
				Output:  "Error: tool arguments were not valid JSON",
				Title:   tc.Name,
				IsError: true,
			}
			continue
		}

		if l.isConcurrent(tc.Name) {
			wg.Add(1)
			go func(i int, tc message.ToolCall) {
				defer wg.Done()
				results[i] = l.executeCall(ctx, tc)
			}(i, tc)
		} else {
			serial = append(serial, i)
		}
	}

	for _, i := range serial {
		if ctx.Err() != nil {
			results[i] = tool.Result{Output: "Error: cancelled", Title: calls[i].Name, IsError: true}
			continue
		}
		results[i] = l.executeCall(ctx, calls[i])
	}
	wg.Wait()

	for i, tc := range calls {
		r := results[i]
		l.Thread.Push(message.ToolResultMessage(message.ToolResult{
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
			Content:    resultContent(r),
			IsError:    r.IsError,
		}))

		if l.Thread.EstimatedTokens(cfg.SystemPrompt) > cfg.AutoCompactThreshold {
			if err := l.compact(ctx, cfg); err != nil {
				log.Logger().Warn("auto-compaction failed", zap.Error(err))
			}
		}
	}
}

// isConcurrent reports whether a call may run in parallel with its siblings.
func (l *Loop) isConcurrent(name string) bool {
	t, ok := l.Registry.Get(name)
	return ok && t.Permission() == tool.ReadOnly
}

// executeCall runs one tool call with its start/done event envelope.
func (l *Loop) executeCall(ctx context.Context, tc message.ToolCall) tool.Result {
	args, err := message.ParseToolInput(tc.Input)
	if err != nil {
		return tool.Result{Output: "Error parsing tool input: " + err.Error(), Title: tc.Name, IsError: true}
	}

	event.Emit(l.Events, event.Event{
		Type:     event.ToolCallStart,
		ToolID:   tc.ID,
		ToolName: tc.Name,
		Preview:  preview(tc.Input),
	})

	start := time.Now()
	result := l.Registry.Execute(ctx, tc.Name, args, l.ToolCtx)

	status := event.StatusOK
	if result.IsError {
		status = event.StatusError
		if denied, ok := result.Metadata["denied"].(bool); ok && denied {
			status = event.StatusDenied
		}
	}
	event.Emit(l.Events, event.Event{
		Type:      event.ToolCallDone,
		ToolID:    tc.ID,
		ToolName:  tc.Name,
		Preview:   preview(result.Output),
		Status:    status,
		ElapsedMS: time.Since(start).Milliseconds(),
	})

	return result
}

// compact summarizes the thread via a short-prompt model call and replaces
// older content, re-injecting recently-touched changed files.
func (l *Loop) compact(ctx context.Context, cfg Config) error {
	snapshot := l.Thread.Snapshot()
	conversationText := message.BuildConversationText(snapshot)

	resp, err := l.Client.Complete(ctx, system.CompactPrompt(),
		[]message.Message{message.UserMessage(conversationText)}, 2048)
	if err != nil {
		return fmt.Errorf("failed to generate summary: %w", err)
	}
	summary := strings.TrimSpace(resp.Content)

	var restore []string
	if l.ToolCtx != nil && l.ToolCtx.Tracker != nil {
		restore = thread.RecentlyMentionedFiles(
			snapshot, l.ToolCtx.Tracker.ChangedFiles(),
			compactKeepRecent*4, compactRestoreCap)
	}

	l.Thread.Compact(summary, compactKeepRecent, restore)
	log.Logger().Info("thread compacted",
		zap.Int("kept", compactKeepRecent),
		zap.Int("restored_files", len(restore)))
	return nil
}

// cancelTurn appends the synthetic cancellation marker.
func (l *Loop) cancelTurn() {
	l.Thread.Push(message.AssistantMessage("[cancelled]", "", nil))
}

// LastAssistantText returns the content of the most recent assistant
// message with text.
func (l *Loop) LastAssistantText() string {
	msgs := l.Thread.Snapshot()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == message.RoleAssistant && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return ""
}

// resultContent renders a tool result for the model.
func resultContent(r tool.Result) string {
	if r.IsError && !strings.HasPrefix(r.Output, "Error") && !strings.HasPrefix(r.Output, "Denied") {
		return "Error: " + r.Output
	}
	return r.Output
}

// preview truncates text to one display line for event consumers.
func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, previewWidth, "...")
}
