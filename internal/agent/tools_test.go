package agent

import (
	"context"
	"testing"
	"time"

	"github.com/nyzhi-com/nyzhi/internal/client"
	"github.com/nyzhi-com/nyzhi/internal/message"
)

func TestSpawnAgentTool_EndToEnd(t *testing.T) {
	fake := &client.Fake{
		Responses: []message.CompletionResponse{
			{Content: "findings here", StopReason: "end_turn"},
		},
	}
	m, registry, tc, cfg := testManagerSetup(t, fake)
	RegisterTools(registry, m, cfg, nil)

	spawn, _ := registry.Get("SpawnAgent")
	result, err := spawn.Execute(context.Background(), map[string]any{
		"message":    "explore the repo",
		"agent_type": "explorer",
	}, tc)
	if err != nil || result.IsError {
		t.Fatalf("spawn failed: %v %+v", err, result)
	}

	id, _ := result.Metadata["agent_id"].(string)
	if id == "" {
		t.Fatal("no agent id returned")
	}
	if result.Metadata["role"] != "explorer" {
		t.Errorf("role = %v", result.Metadata["role"])
	}

	waitForKind(t, m, id, StatusCompleted, 2*time.Second)

	wait, _ := registry.Get("Wait")
	waitResult, err := wait.Execute(context.Background(), map[string]any{
		"ids": []any{id},
	}, tc)
	if err != nil || waitResult.IsError {
		t.Fatalf("wait failed: %v %+v", err, waitResult)
	}
	if waitResult.Metadata["timed_out"] != false {
		t.Errorf("timed_out = %v", waitResult.Metadata["timed_out"])
	}
}

func TestSpawnAgentTool_EmptyMessage(t *testing.T) {
	fake := &client.Fake{}
	m, registry, tc, cfg := testManagerSetup(t, fake)
	RegisterTools(registry, m, cfg, nil)

	spawn, _ := registry.Get("SpawnAgent")
	result, _ := spawn.Execute(context.Background(), map[string]any{
		"message": "   ",
	}, tc)
	if !result.IsError || result.Metadata["error"] != "empty_message" {
		t.Errorf("expected empty_message error, got %+v", result)
	}
}

func TestWaitTool_EmptyIDs(t *testing.T) {
	fake := &client.Fake{}
	m, registry, tc, cfg := testManagerSetup(t, fake)
	RegisterTools(registry, m, cfg, nil)

	wait, _ := registry.Get("Wait")
	result, _ := wait.Execute(context.Background(), map[string]any{}, tc)
	if !result.IsError {
		t.Error("wait without ids must error")
	}
}

func TestCloseAndResumeTools(t *testing.T) {
	fake := &client.Fake{
		Responses: []message.CompletionResponse{
			{Content: "done", StopReason: "end_turn"},
			{Content: "again", StopReason: "end_turn"},
		},
	}
	m, registry, tc, cfg := testManagerSetup(t, fake)
	RegisterTools(registry, m, cfg, nil)

	spawn, _ := registry.Get("SpawnAgent")
	result, _ := spawn.Execute(context.Background(), map[string]any{"message": "work"}, tc)
	id, _ := result.Metadata["agent_id"].(string)
	waitForKind(t, m, id, StatusCompleted, 2*time.Second)

	resume, _ := registry.Get("ResumeAgent")
	resumeResult, _ := resume.Execute(context.Background(), map[string]any{"id": id}, tc)
	if resumeResult.IsError {
		t.Fatalf("resume failed: %+v", resumeResult)
	}
	if resumeResult.Metadata["status"] != string(StatusWaitingInput) {
		t.Errorf("status = %v", resumeResult.Metadata["status"])
	}

	send, _ := registry.Get("SendInput")
	sendResult, _ := send.Execute(context.Background(), map[string]any{"id": id, "message": "more"}, tc)
	if sendResult.IsError {
		t.Fatalf("send failed: %+v", sendResult)
	}
	waitForKind(t, m, id, StatusCompleted, 2*time.Second)

	closeTool, _ := registry.Get("CloseAgent")
	closeResult, _ := closeTool.Execute(context.Background(), map[string]any{"id": id}, tc)
	if closeResult.IsError {
		t.Fatalf("close failed: %+v", closeResult)
	}
}
