package surface

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/commitloop/internal/delivery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	commands []string
	inputs   []string
	failOn   string
	stdout   map[string]string
}

func (f *fakeExecutor) Exec(ctx context.Context, cmd string) ([]byte, []byte, error) {
	f.commands = append(f.commands, cmd)
	if f.failOn != "" && strings.Contains(cmd, f.failOn) {
		return nil, []byte("failed"), errors.New("exit status 1")
	}
	for substr, out := range f.stdout {
		if strings.Contains(cmd, substr) {
			return []byte(out), nil, nil
		}
	}
	return []byte("%7\n"), nil, nil
}

func (f *fakeExecutor) ExecInput(ctx context.Context, cmd string, stdin []byte) ([]byte, []byte, error) {
	f.inputs = append(f.inputs, string(stdin))
	return f.Exec(ctx, cmd)
}

func newTestPane(exec *fakeExecutor, clipped *string) *Pane {
	p := NewPane(exec, Options{
		Target:      "agent:0.0",
		CleanupKeys: []string{"/clear", "Enter"},
		Clipboard:   true,
	})
	p.clip = func(s string) error {
		*clipped = s
		return nil
	}
	return p
}

func TestPane_PublishAndTrigger(t *testing.T) {
	exec := &fakeExecutor{}
	var clipped string
	p := newTestPane(exec, &clipped)
	ctx := context.Background()

	require.NoError(t, p.Focus(ctx))
	require.NoError(t, p.Publish(ctx, "do the next task"))
	require.NoError(t, p.Trigger(ctx))

	assert.Equal(t, "do the next task", clipped)
	require.Len(t, exec.commands, 3)
	assert.Contains(t, exec.commands[0], "select-pane")
	assert.Contains(t, exec.commands[1], "load-buffer")
	assert.Equal(t, []string{"do the next task"}, exec.inputs)
	assert.Contains(t, exec.commands[2], "paste-buffer")
}

func TestPane_PublishSurvivesClipboardFailure(t *testing.T) {
	exec := &fakeExecutor{}
	p := NewPane(exec, Options{Target: "agent", Clipboard: true})
	p.clip = func(string) error { return errors.New("no xclip") }

	assert.NoError(t, p.Publish(context.Background(), "text"))
}

func TestPane_PublishFailsWithoutTmux(t *testing.T) {
	exec := &fakeExecutor{failOn: "load-buffer"}
	var clipped string
	p := newTestPane(exec, &clipped)

	assert.Error(t, p.Publish(context.Background(), "text"))
}

func TestPane_CleanupKeys(t *testing.T) {
	exec := &fakeExecutor{}
	var clipped string
	p := newTestPane(exec, &clipped)

	require.NoError(t, p.Cleanup(context.Background()))
	require.Len(t, exec.commands, 2)
	assert.Contains(t, exec.commands[0], "-l '/clear'", "text is typed literally")
	assert.NotContains(t, exec.commands[1], "-l")
	assert.Contains(t, exec.commands[1], "'Enter'")
}

func TestPane_Mechanisms(t *testing.T) {
	exec := &fakeExecutor{failOn: "xdotool"}
	var clipped string
	p := newTestPane(exec, &clipped)
	p.opts.Window = "4194311"

	mechanisms, err := p.Mechanisms([]string{"xdotool", "type", "accept"})
	require.NoError(t, err)
	require.Len(t, mechanisms, 3)

	name, err := delivery.FirstSuccess(context.Background(), mechanisms)
	require.NoError(t, err)
	assert.Equal(t, "type", name)
	assert.Len(t, exec.commands, 2)
	assert.Contains(t, exec.commands[1], "send-keys")
	assert.Contains(t, exec.commands[1], "'Enter'")

	_, err = p.Mechanisms([]string{"telepathy"})
	assert.Error(t, err)
}

func TestPane_Check(t *testing.T) {
	exec := &fakeExecutor{}
	var clipped string
	p := newTestPane(exec, &clipped)

	id, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "%7", id)
}

func TestKeyName(t *testing.T) {
	for _, k := range []string{"Enter", "Escape", "C-c", "M-x", "F5", "BSpace"} {
		assert.True(t, keyName.MatchString(k), k)
	}
	for _, k := range []string{"/clear", "hello", "Enterprise", "C"} {
		assert.False(t, keyName.MatchString(k), k)
	}
}

func TestPane_XdotoolTargetsWindow(t *testing.T) {
	exec := &fakeExecutor{}
	p := NewPane(exec, Options{Target: "agent", Window: "0x400007"})

	mechanisms, err := p.Mechanisms([]string{"xdotool", "type"})
	require.NoError(t, err)

	name, err := delivery.FirstSuccess(context.Background(), mechanisms)
	require.NoError(t, err)
	assert.Equal(t, "xdotool", name)
	assert.Equal(t, []string{"xdotool windowactivate --sync 0x400007 key --clearmodifiers Return"}, exec.commands)
}

func TestPane_XdotoolResolvesWindowName(t *testing.T) {
	exec := &fakeExecutor{stdout: map[string]string{"xdotool search": "71303175\n71303190\n"}}
	p := NewPane(exec, Options{Target: "agent", Window: "agent terminal"})

	require.NoError(t, p.submitXdotool(context.Background()))
	require.Len(t, exec.commands, 2)
	assert.Equal(t, "xdotool search --limit 1 --name 'agent terminal'", exec.commands[0])
	assert.Contains(t, exec.commands[1], "windowactivate --sync 71303175 key")
}

func TestPane_XdotoolFallsThroughWithoutWindow(t *testing.T) {
	tests := []struct {
		name   string
		window string
		exec   *fakeExecutor
	}{
		{"not configured", "", &fakeExecutor{}},
		{"name not found", "agent terminal", &fakeExecutor{failOn: "xdotool search"}},
		{"search prints nothing", "agent terminal", &fakeExecutor{stdout: map[string]string{"xdotool search": ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPane(tt.exec, Options{Target: "agent", Window: tt.window})
			mechanisms, err := p.Mechanisms([]string{"xdotool", "type"})
			require.NoError(t, err)

			name, err := delivery.FirstSuccess(context.Background(), mechanisms)
			require.NoError(t, err)
			assert.Equal(t, "type", name)
			for _, cmd := range tt.exec.commands {
				assert.NotContains(t, cmd, "key --clearmodifiers", "Return must not go to an unknown window")
			}
		})
	}

	_, err := NewPane(&fakeExecutor{}, Options{Target: "agent"}).xWindow(context.Background())
	assert.ErrorIs(t, err, ErrNoWindow)
}
