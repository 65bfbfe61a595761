// Package thread holds the ordered conversation history for one agent.
// A thread is owned exclusively by its turn loop; other components read
// snapshots between turns.
package thread

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nyzhi-com/nyzhi/internal/message"
)

// ContinuationMessage is appended after a compaction so the model resumes
// where it left off instead of treating the summary as a fresh request.
const ContinuationMessage = "The conversation above was compacted to fit the context window. " +
	"Continue working on the task described in the summary. Do not re-explain what happened; " +
	"pick up exactly where you left off."

// restoreFileLimit caps how much of each restored file is re-injected.
const restoreFileLimit = 8000

// Thread is an append-only ordered list of messages.
type Thread struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	messages []message.Message
}

// New creates an empty thread with a fresh id.
func New() *Thread {
	return &Thread{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Push appends a message.
func (t *Thread) Push(m message.Message) {
	t.messages = append(t.messages, m)
}

// Len returns the number of messages.
func (t *Thread) Len() int {
	return len(t.messages)
}

// Snapshot returns a copy of the messages. Callers may hold the copy across
// suspension points without observing later mutations.
func (t *Thread) Snapshot() []message.Message {
	out := make([]message.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the last message, or a zero message when empty.
func (t *Thread) Last() (message.Message, bool) {
	if len(t.messages) == 0 {
		return message.Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Clear removes all messages.
func (t *Thread) Clear() {
	t.messages = nil
}

// EstimatedTokens estimates token usage across all messages plus the system
// prompt using the bytes/4 heuristic.
func (t *Thread) EstimatedTokens(systemPrompt string) int {
	total := len(systemPrompt)
	for _, m := range t.messages {
		total += len(m.Content) + len(m.Thinking)
		for _, tc := range m.ToolCalls {
			total += len(tc.Name) + len(tc.Input)
		}
		if m.ToolResult != nil {
			total += len(m.ToolResult.Content)
		}
	}
	return total / 4
}

// Compact replaces older messages with a summary, keeping the most recent
// keepRecent messages. Each path in restoreFiles is re-read (truncated) and
// injected as a single aggregated message, followed by the continuation
// prompt, then the preserved tail.
func (t *Thread) Compact(summary string, keepRecent int, restoreFiles []string) {
	if len(t.messages) <= keepRecent {
		return
	}

	split := len(t.messages) - keepRecent
	recent := make([]message.Message, keepRecent)
	copy(recent, t.messages[split:])
	t.messages = nil

	t.Push(message.UserMessage("[Conversation summary]\n" + summary))

	var restoration string
	for _, path := range restoreFiles {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := string(content)
		if len(text) > restoreFileLimit {
			text = text[:restoreFileLimit] + fmt.Sprintf("...[truncated to %d chars]", restoreFileLimit)
		}
		restoration += fmt.Sprintf("\n--- %s ---\n%s\n", path, text)
	}
	if restoration != "" {
		t.Push(message.UserMessage("[Recently accessed files restored after compaction]" + restoration))
	}

	t.Push(message.UserMessage(ContinuationMessage))
	t.messages = append(t.messages, recent...)
}

// RecentlyMentionedFiles scans the trailing turns for file paths referenced
// by tool calls and returns those that intersect changedFiles, capped.
func RecentlyMentionedFiles(msgs []message.Message, changedFiles []string, lastN, cap int) []string {
	changed := make(map[string]bool, len(changedFiles))
	for _, p := range changedFiles {
		changed[p] = true
	}

	start := len(msgs) - lastN
	if start < 0 {
		start = 0
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range msgs[start:] {
		for _, tc := range m.ToolCalls {
			params, err := message.ParseToolInput(tc.Input)
			if err != nil {
				continue
			}
			for _, key := range []string{"file_path", "file", "path"} {
				if p, ok := params[key].(string); ok && changed[p] && !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
		}
	}
	sort.Strings(out)
	if len(out) > cap {
		out = out[:cap]
	}
	return out
}

// threadJSON is the serialized form; messages are exported for round-tripping.
type threadJSON struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Messages  []message.Message `json:"messages"`
}

// MarshalJSON implements json.Marshaler.
func (t *Thread) MarshalJSON() ([]byte, error) {
	return json.Marshal(threadJSON{
		ID:        t.ID,
		CreatedAt: t.CreatedAt,
		Messages:  t.messages,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Thread) UnmarshalJSON(data []byte) error {
	var tj threadJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return err
	}
	t.ID = tj.ID
	t.CreatedAt = tj.CreatedAt
	t.messages = tj.Messages
	return nil
}
