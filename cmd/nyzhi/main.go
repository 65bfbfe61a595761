package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nyzhi-com/nyzhi/internal/agent"
	"github.com/nyzhi-com/nyzhi/internal/client"
	"github.com/nyzhi-com/nyzhi/internal/config"
	"github.com/nyzhi-com/nyzhi/internal/event"
	"github.com/nyzhi-com/nyzhi/internal/log"
	"github.com/nyzhi-com/nyzhi/internal/provider"
	"github.com/nyzhi-com/nyzhi/internal/provider/anthropic"
	"github.com/nyzhi-com/nyzhi/internal/provider/google"
	"github.com/nyzhi-com/nyzhi/internal/provider/moonshot"
	"github.com/nyzhi-com/nyzhi/internal/provider/openai"
	"github.com/nyzhi-com/nyzhi/internal/session"
	"github.com/nyzhi-com/nyzhi/internal/system"
	"github.com/nyzhi-com/nyzhi/internal/thread"
	"github.com/nyzhi-com/nyzhi/internal/tool"
	"github.com/nyzhi-com/nyzhi/internal/verify"
)

var version = "0.1.0"

func init() {
	_ = godotenv.Load()
	_ = log.Init()

	provider.RegisterFactory(provider.Anthropic, anthropic.NewAPIKeyClient)
	provider.RegisterFactory(provider.OpenAI, openai.NewAPIKeyClient)
	provider.RegisterFactory(provider.Google, google.NewAPIKeyClient)
	provider.RegisterFactory(provider.Moonshot, moonshot.NewAPIKeyClient)

	rootCmd.Flags().StringVar(&modelFlag, "model", "", "model id override")
	rootCmd.Flags().StringVar(&providerFlag, "provider", "", "provider override (anthropic, openai, google, moonshot)")
	rootCmd.Flags().BoolVar(&yesFlag, "yes", false, "auto-approve all tool calls")
	rootCmd.AddCommand(verifyCmd, sessionsCmd, versionCmd)
}

func main() {
	defer log.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	modelFlag    string
	providerFlag string
	yesFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "nyzhi [message]",
	Short: "nyzhi - terminal coding assistant",
	Long: `nyzhi drives a tool-using coding agent against the current directory.

  nyzhi "your message"       Run a task
  echo "message" | nyzhi     Run a task from stdin`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		message := inputMessage(args)
		if message == "" {
			return fmt.Errorf("no message provided; pass one as an argument or via stdin")
		}
		return runAgent(cmd.Context(), message)
	},
}

// inputMessage joins argv, falling back to piped stdin.
func inputMessage(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// runAgent wires the runtime together and drives one root turn.
func runAgent(ctx context.Context, message string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	settings, err := config.NewLoader(cwd).Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if yesFlag {
		settings.Trust = config.TrustFull
	}
	if modelFlag != "" {
		settings.Model = modelFlag
	}
	if providerFlag != "" {
		settings.Provider = providerFlag
	}
	if settings.Provider == "" {
		settings.Provider = string(provider.Anthropic)
	}

	llm, err := provider.New(ctx, provider.Name(settings.Provider))
	if err != nil {
		return err
	}
	retry := provider.RetrySettings{
		MaxAttempts: settings.Retry.MaxAttempts,
		Initial:     time.Duration(settings.Retry.InitialMS) * time.Millisecond,
	}
	llm = provider.WithRetry(llm, retry)

	model := settings.Model
	if model == "" {
		if models, err := llm.ListModels(ctx); err == nil && len(models) > 0 {
			model = models[0].ID
		}
	}

	c := &client.Client{Provider: llm, Model: model}
	th := thread.New()
	events := agent.NewBroadcaster()
	tracker := tool.NewChangeTracker()

	toolCtx := &tool.Context{
		SessionID:   th.ID,
		Cwd:         cwd,
		ProjectRoot: cwd,
		Events:      events,
		Tracker:     tracker,
	}

	registry := buildRegistry(settings)
	manager := agent.NewManager(c)

	cfg := agent.DefaultConfig()
	cfg.SystemPrompt = system.BuildPrompt(system.Config{Cwd: cwd, IsGit: system.IsGitRepo(cwd)})
	cfg.Trust = settings.Trust
	if settings.MaxSteps > 0 {
		cfg.MaxSteps = settings.MaxSteps
	}
	if settings.AutoCompactThreshold > 0 {
		cfg.AutoCompactThreshold = settings.AutoCompactThreshold
	}

	agent.RegisterTools(registry, manager, cfg, agent.LoadUserRoles(cwd))

	loop := &agent.Loop{
		Client:   c,
		Registry: registry,
		Config:   cfg,
		Thread:   th,
		Events:   events,
		ToolCtx:  toolCtx,
	}

	ch, cancel := events.Subscribe()
	defer cancel()
	go renderEvents(ch)

	if err := loop.RunTurn(ctx, message); err != nil {
		return err
	}

	if store, err := session.NewStore(); err == nil {
		_ = store.Save(&session.Session{Thread: th})
	}

	usage := c.Tokens()
	fmt.Fprintf(os.Stderr, "\n[%s] %d in / %d out tokens\n", model, usage.InputTokens, usage.OutputTokens)
	return nil
}

// buildRegistry assembles the root tool registry from settings.
func buildRegistry(settings *config.Settings) *tool.Registry {
	registry := tool.NewRegistry(settings, settings.ApprovalTimeout())
	instruments := tool.NewInstrumentStore()

	all := []tool.Tool{
		&tool.ReadTool{},
		&tool.WriteTool{},
		&tool.EditTool{},
		&tool.BashTool{},
		&tool.GlobTool{},
		&tool.GrepTool{},
		&tool.FuzzyFindTool{},
		&tool.WebFetchTool{},
		&tool.AskUserTool{},
		&tool.VerifyTool{},
		&tool.UndoTool{},
		&tool.InstrumentTool{Store: instruments},
		&tool.RemoveInstrumentationTool{Store: instruments},
	}
	for _, t := range all {
		if settings.DisabledTools[t.Name()] {
			continue
		}
		registry.Register(t)
	}
	return registry
}

// renderEvents writes the event stream to the terminal.
func renderEvents(ch <-chan event.Event) {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for e := range ch {
		switch e.Type {
		case event.TextDelta:
			fmt.Fprint(out, e.Text)
			out.Flush()
		case event.ToolCallStart:
			fmt.Fprintf(out, "\n[%s] %s\n", e.ToolName, e.Preview)
			out.Flush()
		case event.ToolCallDone:
			fmt.Fprintf(out, "[%s] %s (%dms) %s\n", e.ToolName, e.Status, e.ElapsedMS, e.Preview)
			out.Flush()
		case event.ApprovalRequest:
			if e.Approval != nil {
				fmt.Fprintf(out, "\napprove %s? [y/N] %s\n", e.Approval.ToolName, e.Approval.Summary)
				out.Flush()
				e.Approval.Respond <- readYes()
			}
		case event.UserQuestion:
			if e.Question != nil {
				fmt.Fprintf(out, "\n%s\n", e.Question.Question)
				for i, opt := range e.Question.Options {
					fmt.Fprintf(out, "  %d) %s\n", i+1, opt.Label)
				}
				out.Flush()
				e.Question.Respond <- readChoice(e.Question.Options)
			}
		case event.Error:
			fmt.Fprintf(out, "\nerror: %s\n", e.Text)
			out.Flush()
		case event.TurnComplete:
			fmt.Fprintln(out)
			out.Flush()
		}
	}
}

func readYes() bool {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

func readChoice(options []event.Option) string {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return event.CancelledReply
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return event.CancelledReply
	}
	for i, opt := range options {
		if line == fmt.Sprintf("%d", i+1) || line == opt.Value {
			return opt.Value
		}
	}
	return line
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run detected project checks (build, test, lint)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		checks := verify.DetectChecks(cwd)
		if len(checks) == 0 {
			fmt.Println("No verification checks detected.")
			return nil
		}
		report := verify.RunAll(cmd.Context(), checks, cwd)
		fmt.Println(report.Summary())
		if !report.AllPassed() {
			os.Exit(1)
		}
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}
		sessions, err := store.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		for _, meta := range sessions {
			fmt.Printf("%s  %s  %d messages\n",
				meta.ID, meta.UpdatedAt.Format("2006-01-02 15:04"), meta.MessageCount)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("nyzhi " + version)
	},
}
