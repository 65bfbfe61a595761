package agent

import (
	"github.com/nyzhi-com/nyzhi/internal/config"
	"github.com/nyzhi-com/nyzhi/internal/provider"
)

const (
	defaultMaxSteps             = 50
	defaultAutoCompactThreshold = 150_000

	// compactKeepRecent is how many trailing messages survive a compaction.
	compactKeepRecent = 4

	// compactRestoreCap bounds how many changed files are re-injected.
	compactRestoreCap = 5
)

// Config is the plain-value configuration for one agent. Role overlays
// produce new values; a Config is never mutated after the agent starts.
type Config struct {
	Name                 string
	SystemPrompt         string
	MaxSteps             int
	AutoCompactThreshold int
	Trust                config.TrustMode
	Retry                provider.RetrySettings
	DisallowedTools      []string
}

// DefaultConfig returns the root agent configuration.
func DefaultConfig() Config {
	return Config{
		Name:                 "build",
		MaxSteps:             defaultMaxSteps,
		AutoCompactThreshold: defaultAutoCompactThreshold,
		Trust:                config.TrustAsk,
		Retry:                provider.DefaultRetrySettings(),
	}
}

// withDefaults fills zero fields so a partially-specified config behaves.
func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaultMaxSteps
	}
	if c.AutoCompactThreshold <= 0 {
		c.AutoCompactThreshold = defaultAutoCompactThreshold
	}
	return c
}
