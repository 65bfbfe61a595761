package agent

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nyzhi-com/nyzhi/internal/client"
	"github.com/nyzhi-com/nyzhi/internal/config"
	"github.com/nyzhi-com/nyzhi/internal/event"
	"github.com/nyzhi-com/nyzhi/internal/log"
	"github.com/nyzhi-com/nyzhi/internal/thread"
	"github.com/nyzhi-com/nyzhi/internal/tool"
)

const (
	// MaxDepth bounds sub-agent nesting.
	MaxDepth = 4

	// DefaultConcurrentAgents is the global concurrent-agent cap.
	DefaultConcurrentAgents = 8

	// Wait timeout bounds in milliseconds.
	DefaultWaitTimeoutMS = 30_000
	MinWaitTimeoutMS     = 10_000
	MaxWaitTimeoutMS     = 300_000

	// statusPollInterval paces WaitAny's terminal-state checks.
	statusPollInterval = 50 * time.Millisecond
)

// StatusKind is an agent's lifecycle state.
type StatusKind string

const (
	StatusStarting     StatusKind = "starting"
	StatusRunning      StatusKind = "running"
	StatusWaitingInput StatusKind = "waiting_input"
	StatusCompleted    StatusKind = "completed"
	StatusErrored      StatusKind = "errored"
	StatusCancelled    StatusKind = "cancelled"
)

// Status is a lifecycle state with its payload: the final message for
// Completed, the error text for Errored.
type Status struct {
	Kind   StatusKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
}

// Terminal reports whether the status is final until a resume.
func (s Status) Terminal() bool {
	switch s.Kind {
	case StatusCompleted, StatusErrored, StatusCancelled:
		return true
	}
	return false
}

// String renders the status with its payload.
func (s Status) String() string {
	if s.Detail == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s: %s", s.Kind, s.Detail)
}

// Agent is one supervised execution context: a turn loop, its thread, and
// its lifecycle state.
type Agent struct {
	ID       string
	Nickname string
	Depth    int

	mu           sync.Mutex
	status       Status
	lastStatusAt time.Time

	input  chan string
	events *Broadcaster
	loop   *Loop
	cancel context.CancelFunc

	slotReleased sync.Once
}

func (a *Agent) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	a.lastStatusAt = time.Now()
	a.mu.Unlock()
}

// Status returns the agent's current status.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Events returns the agent's event broadcaster.
func (a *Agent) Events() *Broadcaster {
	return a.events
}

// Manager owns every agent above the root: spawn, supervision, input
// delivery, rendezvous, and termination. One instance exists per process
// and is shared by reference; its shape is immutable after startup.
type Manager struct {
	Client client.Interface

	mu      sync.Mutex
	agents  map[string]*Agent
	counter int

	slots chan struct{}
}

// NewManager creates a manager with the default concurrency cap.
func NewManager(c client.Interface) *Manager {
	return NewManagerWithCap(c, DefaultConcurrentAgents)
}

// NewManagerWithCap creates a manager with a custom concurrency cap.
func NewManagerWithCap(c client.Interface, maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultConcurrentAgents
	}
	return &Manager{
		Client: c,
		agents: make(map[string]*Agent),
		slots:  make(chan struct{}, maxConcurrent),
	}
}

// Spawn starts a sub-agent running its own turn loop on a fresh thread
// seeded by prompt, and returns immediately with (id, nickname). The child
// inherits the parent registry minus the config's disallowed tools and gets
// its own context one level deeper with a fresh change tracker.
//
// Spawn blocks while the concurrent-agent cap is saturated; the slot is
// released when the agent first reaches a terminal state.
func (m *Manager) Spawn(ctx context.Context, prompt string, parentRegistry *tool.Registry, parentCtx *tool.Context, cfg Config) (string, string, error) {
	if parentCtx.Depth >= MaxDepth {
		return "", "", fmt.Errorf("agent depth limit (%d) reached", MaxDepth)
	}

	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return "", "", ctx.Err()
	}

	m.mu.Lock()
	id := agentID()
	name := nickname(m.counter)
	m.counter++
	m.mu.Unlock()

	cfg = cfg.withDefaults()
	agentCtx, cancel := context.WithCancel(context.Background())

	events := NewBroadcaster()
	childToolCtx := parentCtx.Child()
	childToolCtx.Events = events

	childRegistry := parentRegistry.Without(cfg.DisallowedTools)
	switch cfg.Trust {
	case config.TrustFull:
		// Spawned agents with full trust run unattended; approval
		// round-trips would stall them with nobody watching.
		childRegistry.SetPolicy(nil)
	case config.TrustNone:
		childRegistry.SetPolicy(denyAllPolicy{})
	}

	a := &Agent{
		ID:       id,
		Nickname: name,
		Depth:    childToolCtx.Depth,
		status:   Status{Kind: StatusStarting},
		input:    make(chan string, 16),
		events:   events,
		cancel:   cancel,
		loop: &Loop{
			Client:   m.Client,
			Registry: childRegistry,
			Config:   cfg,
			Thread:   thread.New(),
			Events:   events,
			ToolCtx:  childToolCtx,
		},
	}
	a.input <- prompt

	m.mu.Lock()
	m.agents[id] = a
	m.mu.Unlock()

	go m.supervise(agentCtx, a)

	log.Logger().Info("spawned agent",
		zap.String("id", id),
		zap.String("nickname", name),
		zap.Int("depth", a.Depth))

	return id, name, nil
}

// supervise is the agent's goroutine: it consumes queued inputs one at a
// time, running one turn per input, and maintains the status machine.
func (m *Manager) supervise(ctx context.Context, a *Agent) {
	defer m.releaseSlot(a)

	for {
		select {
		case <-ctx.Done():
			if !a.Status().Terminal() {
				a.setStatus(Status{Kind: StatusCancelled})
			}
			return

		case text := <-a.input:
			a.setStatus(Status{Kind: StatusRunning})

			err := a.loop.RunTurn(ctx, text)

			switch {
			case ctx.Err() != nil:
				a.setStatus(Status{Kind: StatusCancelled})
				return
			case err != nil:
				a.setStatus(Status{Kind: StatusErrored, Detail: err.Error()})
				m.releaseSlot(a)
			case len(a.input) > 0:
				// More queued input; stay running.
			default:
				a.setStatus(Status{Kind: StatusCompleted, Detail: a.loop.LastAssistantText()})
				m.releaseSlot(a)
			}
		}
	}
}

func (m *Manager) releaseSlot(a *Agent) {
	a.slotReleased.Do(func() {
		<-m.slots
	})
}

// get looks an agent up by id.
func (m *Manager) get(id string) (*Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	return a, ok
}

// SendInput delivers text to the agent's input queue in FIFO order. An
// agent in a terminal state rejects input without mutating state.
func (m *Manager) SendInput(id, text string) error {
	a, ok := m.get(id)
	if !ok {
		return fmt.Errorf("unknown agent: %s", id)
	}

	a.mu.Lock()
	status := a.status
	if status.Terminal() {
		a.mu.Unlock()
		return fmt.Errorf("agent %s is %s and cannot receive input", id, status.Kind)
	}
	if status.Kind == StatusWaitingInput {
		a.status = Status{Kind: StatusRunning}
		a.lastStatusAt = time.Now()
	}
	a.mu.Unlock()

	select {
	case a.input <- text:
		return nil
	default:
		return fmt.Errorf("agent %s input queue is full", id)
	}
}

// WaitAny blocks until at least one of the named agents reaches a terminal
// state or the deadline passes. The timeout is clamped to
// [MinWaitTimeoutMS, MaxWaitTimeoutMS]; zero means the default. Agents that
// are already terminal return immediately. The returned map carries the
// statuses of every named agent that is terminal at return time; the bool
// reports whether the wait timed out with none terminal.
func (m *Manager) WaitAny(ctx context.Context, ids []string, timeoutMS int64) (map[string]Status, bool, error) {
	if len(ids) == 0 {
		return nil, false, fmt.Errorf("ids must be non-empty")
	}
	if timeoutMS <= 0 {
		timeoutMS = DefaultWaitTimeoutMS
	}
	if timeoutMS < MinWaitTimeoutMS {
		timeoutMS = MinWaitTimeoutMS
	}
	if timeoutMS > MaxWaitTimeoutMS {
		timeoutMS = MaxWaitTimeoutMS
	}

	for _, id := range ids {
		if _, ok := m.get(id); !ok {
			return nil, false, fmt.Errorf("unknown agent: %s", id)
		}
	}

	collect := func() map[string]Status {
		done := make(map[string]Status)
		for _, id := range ids {
			if a, ok := m.get(id); ok {
				if s := a.Status(); s.Terminal() {
					done[id] = s
				}
			}
		}
		return done
	}

	deadline := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		if done := collect(); len(done) > 0 {
			return done, false, nil
		}
		if time.Now().After(deadline) {
			return map[string]Status{}, true, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close forces the agent to a terminal state. Once terminal, repeated
// closes return the same status.
func (m *Manager) Close(id string) (Status, error) {
	a, ok := m.get(id)
	if !ok {
		return Status{}, fmt.Errorf("unknown agent: %s", id)
	}

	if s := a.Status(); s.Terminal() {
		return s, nil
	}

	a.cancel()
	a.setStatus(Status{Kind: StatusCancelled})
	m.releaseSlot(a)
	return a.Status(), nil
}

// Resume transitions a Completed or Errored agent back to WaitingInput so
// it can receive new input. Cancelled is final.
func (m *Manager) Resume(id string) (Status, error) {
	a, ok := m.get(id)
	if !ok {
		return Status{}, fmt.Errorf("unknown agent: %s", id)
	}

	a.mu.Lock()
	switch a.status.Kind {
	case StatusCompleted, StatusErrored:
	case StatusCancelled:
		a.mu.Unlock()
		return a.Status(), fmt.Errorf("agent %s is cancelled and cannot be resumed", id)
	default:
		a.mu.Unlock()
		return a.Status(), fmt.Errorf("agent %s is not in a terminal state", id)
	}
	a.status = Status{Kind: StatusWaitingInput}
	a.lastStatusAt = time.Now()
	a.mu.Unlock()

	a.events.Emit(event.Event{Type: event.Resumed, AgentID: id})
	return a.Status(), nil
}

// Info returns an agent's nickname and status without blocking.
func (m *Manager) Info(id string) (string, Status, error) {
	a, ok := m.get(id)
	if !ok {
		return "", Status{}, fmt.Errorf("unknown agent: %s", id)
	}
	return a.Nickname, a.Status(), nil
}

// List returns the ids of all managed agents.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.agents))
	for id := range m.agents {
		ids = append(ids, id)
	}
	return ids
}

// denyAllPolicy rejects every approval-bound call; read-only roles get it
// alongside their trimmed tool set.
type denyAllPolicy struct{}

func (denyAllPolicy) CheckPermission(string, map[string]any) config.PermissionResult {
	return config.PermissionDeny
}

// agentID creates a short opaque agent id.
func agentID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "agent-0"
	}
	return hex.EncodeToString(b)
}
