package thread

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nyzhi-com/nyzhi/internal/message"
)

func TestPushAppends(t *testing.T) {
	th := New()
	if th.ID == "" {
		t.Error("thread should get an id")
	}

	th.Push(message.UserMessage("hello"))
	if th.Len() != 1 {
		t.Fatalf("len = %d, want 1", th.Len())
	}
	last, ok := th.Last()
	if !ok || last.Content != "hello" {
		t.Errorf("last = %+v", last)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	th := New()
	th.Push(message.UserMessage("one"))

	snap := th.Snapshot()
	th.Push(message.UserMessage("two"))

	if len(snap) != 1 {
		t.Errorf("snapshot observed later mutation: len=%d", len(snap))
	}
}

func TestCompact(t *testing.T) {
	dir := t.TempDir()
	restored := filepath.Join(dir, "a.go")
	if err := os.WriteFile(restored, []byte("package a\n"), 0644); err != nil {
		t.Fatal(err)
	}

	th := New()
	for i := 0; i < 20; i++ {
		th.Push(message.UserMessage(fmt.Sprintf("msg-%d", i)))
	}
	tail := th.Snapshot()[16:]

	th.Compact("things happened", 4, []string{restored})

	// 1 summary + 1 restored block + 1 continuation + 4 tail.
	if th.Len() != 7 {
		t.Fatalf("len = %d, want 7", th.Len())
	}

	msgs := th.Snapshot()
	if msgs[0].Content != "[Conversation summary]\nthings happened" {
		t.Errorf("summary message wrong: %q", msgs[0].Content)
	}
	if want := "[Recently accessed files restored after compaction]"; len(msgs[1].Content) < len(want) || msgs[1].Content[:len(want)] != want {
		t.Errorf("restore message wrong: %q", msgs[1].Content)
	}
	if msgs[2].Content != ContinuationMessage {
		t.Errorf("continuation message wrong")
	}
	for i, m := range msgs[3:] {
		if m.Content != tail[i].Content {
			t.Errorf("tail[%d] = %q, want %q", i, m.Content, tail[i].Content)
		}
	}
}

func TestCompactNoOpWhenSmall(t *testing.T) {
	th := New()
	th.Push(message.UserMessage("only"))
	th.Compact("summary", 4, nil)
	if th.Len() != 1 {
		t.Errorf("small thread should not compact, len=%d", th.Len())
	}
}

func TestCompactWithoutRestoreFiles(t *testing.T) {
	th := New()
	for i := 0; i < 10; i++ {
		th.Push(message.UserMessage(fmt.Sprintf("m%d", i)))
	}
	th.Compact("s", 4, nil)
	// 1 summary + 1 continuation + 4 tail.
	if th.Len() != 6 {
		t.Errorf("len = %d, want 6", th.Len())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	th := New()
	th.Push(message.UserMessage("hello"))
	th.Push(message.AssistantMessage("hi", "", []message.ToolCall{{ID: "1", Name: "Read", Input: "{}"}}))
	th.Push(message.ToolResultMessage(message.ToolResult{ToolCallID: "1", ToolName: "Read", Content: "data"}))

	data, err := json.Marshal(th)
	if err != nil {
		t.Fatal(err)
	}

	var got Thread
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	if got.ID != th.ID || got.Len() != th.Len() {
		t.Fatalf("round trip lost structure: %s/%d vs %s/%d", got.ID, got.Len(), th.ID, th.Len())
	}
	a, b := th.Snapshot(), got.Snapshot()
	for i := range a {
		aj, _ := json.Marshal(a[i])
		bj, _ := json.Marshal(b[i])
		if string(aj) != string(bj) {
			t.Errorf("message %d differs after round trip", i)
		}
	}
}

func TestEstimatedTokens(t *testing.T) {
	th := New()
	th.Push(message.UserMessage("aaaa")) // 4 bytes
	if got := th.EstimatedTokens("bbbb"); got != 2 {
		t.Errorf("estimated tokens = %d, want 2", got)
	}
}

func TestRecentlyMentionedFiles(t *testing.T) {
	msgs := []message.Message{
		message.AssistantMessage("", "", []message.ToolCall{
			{ID: "1", Name: "Edit", Input: `{"file_path": "/tmp/a.go"}`},
			{ID: "2", Name: "Edit", Input: `{"file_path": "/tmp/b.go"}`},
		}),
	}
	changed := []string{"/tmp/a.go", "/tmp/c.go"}

	got := RecentlyMentionedFiles(msgs, changed, 10, 5)
	if len(got) != 1 || got[0] != "/tmp/a.go" {
		t.Errorf("got %v, want [/tmp/a.go]", got)
	}

	if got := RecentlyMentionedFiles(msgs, changed, 10, 0); len(got) != 0 {
		t.Errorf("cap 0 should return nothing, got %v", got)
	}
}
