package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nyzhi-com/nyzhi/internal/message"
	"github.com/nyzhi-com/nyzhi/internal/thread"
)

func seedThread() *thread.Thread {
	th := thread.New()
	th.Push(message.UserMessage("hello"))
	th.Push(message.AssistantMessage("hi", "", []message.ToolCall{{ID: "1", Name: "Read", Input: `{"file_path":"a"}`}}))
	th.Push(message.ToolResultMessage(message.ToolResult{ToolCallID: "1", ToolName: "Read", Content: "data"}))
	return th
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	th := seedThread()
	sess := &Session{Thread: th}
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}
	if sess.Metadata.ID == "" {
		t.Fatal("save must assign an id")
	}
	if sess.Metadata.MessageCount != 3 {
		t.Errorf("message count = %d", sess.Metadata.MessageCount)
	}

	loaded, err := store.Load(sess.Metadata.ID)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := json.Marshal(th)
	b, _ := json.Marshal(loaded.Thread)
	if string(a) != string(b) {
		t.Error("load(save(thread)) must be identity")
	}
}

func TestListNewestFirst(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first := &Session{Thread: seedThread()}
	store.Save(first)
	time.Sleep(10 * time.Millisecond)
	second := &Session{Thread: seedThread()}
	store.Save(second)

	sessions, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d", len(sessions))
	}
	if sessions[0].ID != second.Metadata.ID {
		t.Error("newest session should list first")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	sess := &Session{Thread: seedThread()}
	store.Save(sess)

	if err := store.Delete(sess.Metadata.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(sess.Metadata.ID); err != nil {
		t.Errorf("second delete should be a no-op: %v", err)
	}
	if _, err := store.Load(sess.Metadata.ID); err == nil {
		t.Error("deleted session must not load")
	}
}

func TestLatest(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Latest(); err == nil {
		t.Error("empty store has no latest")
	}

	sess := &Session{Thread: seedThread()}
	store.Save(sess)

	latest, err := store.Latest()
	if err != nil || latest.Metadata.ID != sess.Metadata.ID {
		t.Errorf("latest = %+v (%v)", latest, err)
	}
}
