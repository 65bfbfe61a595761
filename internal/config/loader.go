package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Loader handles loading and merging settings from multiple sources.
type Loader struct {
	userDir    string // user-level config directory (e.g., ~/.nyzhi)
	projectDir string // project-level config directory (e.g., .nyzhi)
}

// NewLoader creates a settings loader rooted at the given project directory.
func NewLoader(projectRoot string) *Loader {
	homeDir, _ := os.UserHomeDir()
	return &Loader{
		userDir:    filepath.Join(homeDir, ".nyzhi"),
		projectDir: filepath.Join(projectRoot, ".nyzhi"),
	}
}

// NewLoaderWithDirs creates a loader with explicit directories (tests).
func NewLoaderWithDirs(userDir, projectDir string) *Loader {
	return &Loader{userDir: userDir, projectDir: projectDir}
}

// Load loads and merges settings from all sources, later overriding earlier.
func (l *Loader) Load() (*Settings, error) {
	settings := NewSettings()

	sources := []string{
		filepath.Join(l.userDir, "settings.json"),
		filepath.Join(l.projectDir, "settings.json"),
		filepath.Join(l.projectDir, "settings.local.json"),
	}

	for _, path := range sources {
		layer, err := readSettingsFile(path)
		if err != nil {
			return nil, err
		}
		if layer != nil {
			merge(settings, layer)
		}
	}

	return settings, nil
}

// readSettingsFile reads one settings file; a missing file is not an error.
func readSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// merge overlays src onto dst. Scalar fields replace when set; list fields
// append; maps merge key-by-key.
func merge(dst, src *Settings) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Trust != "" {
		dst.Trust = src.Trust
	}
	if src.MaxSteps > 0 {
		dst.MaxSteps = src.MaxSteps
	}
	if src.AutoCompactThreshold > 0 {
		dst.AutoCompactThreshold = src.AutoCompactThreshold
	}
	if src.ApprovalTimeoutMS > 0 {
		dst.ApprovalTimeoutMS = src.ApprovalTimeoutMS
	}
	if src.Retry.MaxAttempts > 0 {
		dst.Retry.MaxAttempts = src.Retry.MaxAttempts
	}
	if src.Retry.InitialMS > 0 {
		dst.Retry.InitialMS = src.Retry.InitialMS
	}

	dst.Permissions.Allow = append(dst.Permissions.Allow, src.Permissions.Allow...)
	dst.Permissions.Deny = append(dst.Permissions.Deny, src.Permissions.Deny...)
	dst.Permissions.Ask = append(dst.Permissions.Ask, src.Permissions.Ask...)

	for name, disabled := range src.DisabledTools {
		dst.DisabledTools[name] = disabled
	}
	for k, v := range src.Env {
		dst.Env[k] = v
	}
}
