package team

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Message is one mailbox entry. Text may carry a serialized Payload.
type Message struct {
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
	Color     string `json:"color,omitempty"`
}

// PayloadType discriminates typed message payloads.
type PayloadType string

const (
	PayloadMessage          PayloadType = "message"
	PayloadBroadcast        PayloadType = "broadcast"
	PayloadTaskAssignment   PayloadType = "task_assignment"
	PayloadShutdownRequest  PayloadType = "shutdown_request"
	PayloadShutdownResponse PayloadType = "shutdown_response"
	PayloadTaskCompleted    PayloadType = "task_completed"
	PayloadIdleNotification PayloadType = "idle_notification"
)

// Payload is a typed JSON message carried in a Message's text field.
type Payload struct {
	Type PayloadType    `json:"type"`
	Data map[string]any `json:"-"`
}

// MarshalJSON flattens Data next to the type discriminator.
func (p Payload) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(p.Data)+1)
	for k, v := range p.Data {
		flat[k] = v
	}
	flat["type"] = string(p.Type)
	return json.Marshal(flat)
}

// UnmarshalJSON splits the type discriminator back out of the flat object.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if t, ok := flat["type"].(string); ok {
		p.Type = PayloadType(t)
	}
	delete(flat, "type")
	p.Data = flat
	return nil
}

// NewMessage creates an unread message stamped now.
func NewMessage(from, text, color string) Message {
	return Message{
		From:      from,
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Color:     color,
	}
}

// NewPayloadMessage creates a message carrying a serialized payload.
func NewPayloadMessage(from string, payload Payload, color string) Message {
	text, err := json.Marshal(payload)
	if err != nil {
		text = []byte("{}")
	}
	return NewMessage(from, string(text), color)
}

// SendMessage appends one message to the recipient's inbox under its lock.
func SendMessage(teamName, recipient string, msg Message) error {
	path := inboxPath(teamName, recipient)
	lock, err := acquireLock(path + ".lock")
	if err != nil {
		return err
	}
	defer lock.Unlock()

	messages, err := loadInbox(path)
	if err != nil {
		return err
	}
	messages = append(messages, msg)
	return writeInbox(path, messages)
}

// Broadcast sends text to every member except the sender. Delivery is
// per-recipient and not atomic across the team; partial delivery is
// observable when a send fails midway.
func Broadcast(teamName, from, text, color string) error {
	cfg, err := LoadConfig(teamName)
	if err != nil {
		return err
	}
	for _, member := range cfg.Members {
		if member.Name == from {
			continue
		}
		if err := SendMessage(teamName, member.Name, NewMessage(from, text, color)); err != nil {
			return fmt.Errorf("broadcast to %s failed: %w", member.Name, err)
		}
	}
	return nil
}

// ReadUnread returns all unread messages in insertion order and marks them
// read in the same critical section. Clients must treat read as "delivered
// at least once": a crash between the write and the return can mark
// messages read without them having been seen.
func ReadUnread(teamName, recipient string) ([]Message, error) {
	path := inboxPath(teamName, recipient)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	lock, err := acquireLock(path + ".lock")
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	messages, err := loadInbox(path)
	if err != nil {
		return nil, err
	}

	var unread []Message
	for i := range messages {
		if !messages[i].Read {
			unread = append(unread, messages[i])
			messages[i].Read = true
		}
	}

	if len(unread) > 0 {
		if err := writeInbox(path, messages); err != nil {
			return nil, err
		}
	}
	return unread, nil
}

// FormatForInjection renders messages as XML blocks for injection into an
// agent's conversation.
func FormatForInjection(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, msg := range messages {
		colorAttr := ""
		if msg.Color != "" {
			colorAttr = fmt.Sprintf(" color=%q", msg.Color)
		}
		fmt.Fprintf(&sb, "<teammate_message from=%q%s>%s</teammate_message>\n",
			msg.From, colorAttr, msg.Text)
	}
	return sb.String()
}

// loadInbox reads an inbox file; a missing or empty file is an empty inbox.
// A corrupt file is returned as an error so it is never overwritten.
func loadInbox(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "[]" {
		return nil, nil
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse inbox %s: %w", path, err)
	}
	return messages, nil
}

func writeInbox(path string, messages []Message) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
