// Package surface drives the input surface of the target program: a tmux
// pane, with the system clipboard as a side channel.
package surface

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mark3labs/commitloop/internal/config"
	"github.com/mark3labs/commitloop/internal/delivery"
	"github.com/mark3labs/commitloop/internal/logger"
	"github.com/mark3labs/commitloop/internal/tmux"
)

// keyName matches tmux key names that send-keys must not type literally.
var keyName = regexp.MustCompile(`^(Enter|Escape|Tab|BTab|BSpace|Space|Up|Down|Left|Right|Home|End|PageUp|PageDown|[CM]-.+|F[0-9]{1,2})$`)

// windowID matches a numeric X window id, decimal or hex.
var windowID = regexp.MustCompile(`^([0-9]+|0x[0-9a-fA-F]+)$`)

// ErrNoWindow is returned by the xdotool mechanism when no X window is
// configured for the terminal showing the target pane.
var ErrNoWindow = errors.New("no X window configured for xdotool")

// Options configures a Pane.
type Options struct {
	Target      string
	CleanupKeys []string
	Clipboard   bool

	// Window is the X window of the terminal showing Target, as an id or a
	// window name to search for. The xdotool mechanism fails without it.
	Window string
}

// Pane implements the surface primitives against a tmux pane.
type Pane struct {
	tmux *tmux.Client
	exec tmux.Executor
	opts Options
	clip func(string) error
}

// NewPane returns a Pane that runs commands through exec.
func NewPane(exec tmux.Executor, opts Options) *Pane {
	return &Pane{
		tmux: tmux.NewClient(exec),
		exec: exec,
		opts: opts,
		clip: clipboard.WriteAll,
	}
}

// Check resolves the target pane, failing if it does not exist.
func (p *Pane) Check(ctx context.Context) (string, error) {
	return p.tmux.PaneID(ctx, p.opts.Target)
}

// Focus brings the target pane to the front.
func (p *Pane) Focus(ctx context.Context) error {
	return p.tmux.SelectPane(ctx, p.opts.Target)
}

// Publish stages text for the trigger. The clipboard copy is a convenience
// for the operator and its failure is only logged; the tmux buffer load is
// required.
func (p *Pane) Publish(ctx context.Context, text string) error {
	if p.opts.Clipboard && p.clip != nil {
		if err := p.clip(text); err != nil {
			logger.Debug("Clipboard unavailable: %v", err)
		}
	}
	if err := p.tmux.SetBuffer(ctx, tmux.BufferName, text); err != nil {
		return fmt.Errorf("publishing content: %w", err)
	}
	return nil
}

// Trigger pastes the staged text into the pane.
func (p *Pane) Trigger(ctx context.Context) error {
	return p.tmux.PasteBuffer(ctx, tmux.BufferName, p.opts.Target)
}

// Cleanup sends the configured cleanup keys in order. Entries that look like
// tmux key names are sent as keys; everything else is typed literally.
func (p *Pane) Cleanup(ctx context.Context) error {
	for _, k := range p.opts.CleanupKeys {
		if err := p.tmux.SendKeys(ctx, p.opts.Target, k, !keyName.MatchString(k), false); err != nil {
			return fmt.Errorf("cleanup key %q: %w", k, err)
		}
	}
	return nil
}

// Mechanisms builds the submit mechanisms named in chain, in order.
func (p *Pane) Mechanisms(chain []string) ([]delivery.Mechanism, error) {
	mechanisms := make([]delivery.Mechanism, 0, len(chain))
	for _, name := range chain {
		var attempt func(ctx context.Context) error
		switch name {
		case config.MechanismXdotool:
			attempt = p.submitXdotool
		case config.MechanismType:
			attempt = p.submitKey("Enter")
		case config.MechanismAccept:
			attempt = p.submitKey("C-j")
		default:
			return nil, fmt.Errorf("unknown submit mechanism %q", name)
		}
		mechanisms = append(mechanisms, delivery.Mechanism{Name: name, Attempt: attempt})
	}
	return mechanisms, nil
}

// submitXdotool raises the terminal's X window and injects Return at the OS
// level, which works even when the pane ignores synthetic tmux input.
func (p *Pane) submitXdotool(ctx context.Context) error {
	window, err := p.xWindow(ctx)
	if err != nil {
		return err
	}

	cmd := fmt.Sprintf("xdotool windowactivate --sync %s key --clearmodifiers Return", window)
	if _, stderr, err := p.exec.Exec(ctx, cmd); err != nil {
		return fmt.Errorf("xdotool: %w: %s", err, strings.TrimSpace(string(stderr)))
	}
	return nil
}

// xWindow resolves Options.Window to a window id. Ids are used as given,
// anything else is looked up by name.
func (p *Pane) xWindow(ctx context.Context) (string, error) {
	w := strings.TrimSpace(p.opts.Window)
	if w == "" {
		return "", ErrNoWindow
	}
	if windowID.MatchString(w) {
		return w, nil
	}

	stdout, stderr, err := p.exec.Exec(ctx, "xdotool search --limit 1 --name "+tmux.QuoteArg(w))
	if err != nil {
		return "", fmt.Errorf("xdotool search %q: %w: %s", w, err, strings.TrimSpace(string(stderr)))
	}
	id, _, _ := strings.Cut(strings.TrimSpace(string(stdout)), "\n")
	if !windowID.MatchString(id) {
		return "", fmt.Errorf("no X window named %q", w)
	}
	return id, nil
}

func (p *Pane) submitKey(key string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return p.tmux.SendKeys(ctx, p.opts.Target, key, false, false)
	}
}
