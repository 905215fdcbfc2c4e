// Package template expands {{placeholder}} variables in prompt content.
package template

import (
	"strconv"
	"strings"

	"github.com/mark3labs/commitloop/internal/logger"
)

// Variables holds the data injected into template placeholders.
type Variables struct {
	Session     string // Session name
	Iteration   string // Current iteration number
	Fingerprint string // Repository fingerprint before this iteration
	File        string // Base name of the prompt file
	Hooks       string // Pre-iteration hook output
}

// Render replaces {{variable}} placeholders in template with actual values.
// Supported: {{session}}, {{iteration}}, {{fingerprint}}, {{file}}, {{hooks}}.
// Unknown placeholders are left as-is.
func Render(template string, vars Variables) string {
	return strings.NewReplacer(
		"{{session}}", vars.Session,
		"{{iteration}}", vars.Iteration,
		"{{fingerprint}}", vars.Fingerprint,
		"{{file}}", vars.File,
		"{{hooks}}", formatHooks(vars.Hooks),
	).Replace(template)
}

// BuildConfig holds the inputs for one prompt.
type BuildConfig struct {
	Content     string
	Session     string
	Iteration   int
	Fingerprint string
	File        string
	HookOutput  string
}

// BuildPrompt renders cfg.Content with the iteration's variables.
func BuildPrompt(cfg BuildConfig) string {
	result := Render(cfg.Content, Variables{
		Session:     cfg.Session,
		Iteration:   strconv.Itoa(cfg.Iteration),
		Fingerprint: cfg.Fingerprint,
		File:        cfg.File,
		Hooks:       cfg.HookOutput,
	})
	logger.Debug("Prompt rendered for iteration %d: %d characters", cfg.Iteration, len(result))
	return result
}

// formatHooks trims hook output so an empty result leaves no blank lines.
func formatHooks(output string) string {
	return strings.TrimSpace(output)
}
