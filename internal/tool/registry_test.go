package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nyzhi-com/nyzhi/internal/config"
	"github.com/nyzhi-com/nyzhi/internal/event"
)

// collectSink buffers emitted events for assertions.
type collectSink struct {
	events chan event.Event
}

func newCollectSink() *collectSink {
	return &collectSink{events: make(chan event.Event, 64)}
}

func (s *collectSink) Emit(e event.Event) {
	select {
	case s.events <- e:
	default:
	}
}

func settingsWithTrust(mode config.TrustMode) *config.Settings {
	s := config.NewSettings()
	s.Trust = mode
	return s
}

func TestRegistry_UnknownToolSyntheticResult(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustFull), 0)
	tc := testContext(t)

	result := r.Execute(context.Background(), "Nope", map[string]any{}, tc)
	if !result.IsError {
		t.Error("unknown tool should produce an error result, not a panic")
	}
}

func TestRegistry_DuplicateReplaces(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustFull), 0)
	r.Register(&ReadTool{})
	r.Register(&ReadTool{})
	if got := len(r.Names()); got != 1 {
		t.Errorf("names = %d, want 1", got)
	}
}

func TestRegistry_TrustFullExecutesApprovalTool(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustFull), 0)
	r.Register(&WriteTool{})
	tc := testContext(t)

	result := r.Execute(context.Background(), "Write", map[string]any{
		"file_path": "f.txt",
		"content":   "x",
	}, tc)
	if result.IsError {
		t.Fatalf("write should execute under full trust: %+v", result)
	}
	if _, err := os.Stat(filepath.Join(tc.Cwd, "f.txt")); err != nil {
		t.Error("file not written")
	}
}

func TestRegistry_TrustNoneDenies(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustNone), 0)
	r.Register(&WriteTool{})
	tc := testContext(t)

	result := r.Execute(context.Background(), "Write", map[string]any{
		"file_path": "f.txt",
		"content":   "x",
	}, tc)
	if !result.IsError || result.Metadata["denied"] != true {
		t.Errorf("expected denial, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(tc.Cwd, "f.txt")); err == nil {
		t.Error("tool must not execute when denied")
	}
	if tc.Tracker.Len() != 0 {
		t.Error("denied tool must not record changes")
	}
}

func TestRegistry_AskDeniedByResponder(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustAsk), 0)
	r.Register(&WriteTool{})
	tc := testContext(t)

	sink := newCollectSink()
	tc.Events = sink

	go func() {
		for e := range sink.events {
			if e.Type == event.ApprovalRequest && e.Approval != nil {
				e.Approval.Respond <- false
				return
			}
		}
	}()

	result := r.Execute(context.Background(), "Write", map[string]any{
		"file_path": "f.txt",
		"content":   "x",
	}, tc)

	if !result.IsError || result.Metadata["denied"] != true {
		t.Errorf("expected user denial, got %+v", result)
	}
	if tc.Tracker.Len() != 0 {
		t.Error("denied write must leave no change records")
	}
}

func TestRegistry_AskApprovedExecutes(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustAsk), 0)
	r.Register(&WriteTool{})
	tc := testContext(t)

	sink := newCollectSink()
	tc.Events = sink

	go func() {
		for e := range sink.events {
			if e.Type == event.ApprovalRequest && e.Approval != nil {
				e.Approval.Respond <- true
				return
			}
		}
	}()

	result := r.Execute(context.Background(), "Write", map[string]any{
		"file_path": "f.txt",
		"content":   "x",
	}, tc)
	if result.IsError {
		t.Fatalf("approved write should execute: %+v", result)
	}
}

func TestRegistry_ApprovalTimeoutDenies(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustAsk), 50*time.Millisecond)
	r.Register(&WriteTool{})
	tc := testContext(t)
	tc.Events = newCollectSink() // nobody responds

	result := r.Execute(context.Background(), "Write", map[string]any{
		"file_path": "f.txt",
		"content":   "x",
	}, tc)
	if !result.IsError || result.Metadata["timeout"] != true {
		t.Errorf("expected timeout denial, got %+v", result)
	}
}

func TestRegistry_NoSinkDeniesAsk(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustAsk), 0)
	r.Register(&WriteTool{})
	tc := testContext(t)
	tc.Events = nil

	result := r.Execute(context.Background(), "Write", map[string]any{
		"file_path": "f.txt",
		"content":   "x",
	}, tc)
	if !result.IsError || result.Metadata["denied"] != true {
		t.Errorf("ask without approver should deny, got %+v", result)
	}
}

func TestRegistry_PathConfinement(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustFull), 0)
	r.Register(&WriteTool{})
	tc := testContext(t)

	outside := filepath.Join(os.TempDir(), "nyzhi-escape.txt")
	defer os.Remove(outside)

	result := r.Execute(context.Background(), "Write", map[string]any{
		"file_path": outside,
		"content":   "x",
	}, tc)
	if !result.IsError || result.Metadata["denied"] != true {
		t.Errorf("write outside cwd should be denied, got %+v", result)
	}
	if _, err := os.Stat(outside); err == nil {
		t.Error("file outside cwd must not be written")
	}
}

func TestRegistry_DenyRuleBeatsTrust(t *testing.T) {
	s := settingsWithTrust(config.TrustFull)
	s.Permissions.Deny = []string{"Write(**/.env)"}
	r := NewRegistry(s, 0)
	r.Register(&WriteTool{})
	tc := testContext(t)

	result := r.Execute(context.Background(), "Write", map[string]any{
		"file_path": "config/.env",
		"content":   "SECRET=1",
	}, tc)
	if !result.IsError {
		t.Errorf("deny rule should win over full trust: %+v", result)
	}
}

func TestRegistry_Without(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustFull), 0)
	r.Register(&ReadTool{})
	r.Register(&WriteTool{})

	child := r.Without([]string{"Write"})
	if _, ok := child.Get("Write"); ok {
		t.Error("Write should be excluded from child")
	}
	if _, ok := child.Get("Read"); !ok {
		t.Error("Read should survive in child")
	}
	// Parent is untouched.
	if _, ok := r.Get("Write"); !ok {
		t.Error("parent registry must not lose tools")
	}
}

// panicTool always panics; used to prove panic containment.
type panicTool struct{}

func (p *panicTool) Name() string           { return "Panic" }
func (p *panicTool) Description() string    { return "panics" }
func (p *panicTool) Permission() Permission { return ReadOnly }
func (p *panicTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (p *panicTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	panic("boom")
}

func TestRegistry_PanicBecomesErrorResult(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustFull), 0)
	r.Register(&panicTool{})
	tc := testContext(t)

	result := r.Execute(context.Background(), "Panic", map[string]any{}, tc)
	if !result.IsError {
		t.Error("panic should convert to an error result")
	}
}

func TestRegistry_DefinitionsSorted(t *testing.T) {
	r := NewRegistry(settingsWithTrust(config.TrustFull), 0)
	r.Register(&WriteTool{})
	r.Register(&ReadTool{})

	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Name != "Read" || defs[1].Name != "Write" {
		t.Errorf("definitions not sorted: %+v", defs)
	}
	if defs[0].Description == "" || defs[0].Parameters == nil {
		t.Error("definitions must carry description and schema")
	}
}
