package tmux

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeExecutor struct {
	stdout   []byte
	stderr   []byte
	err      error
	errQueue []error
	lastCmd  string
	lastIn   []byte
	commands []string
}

func (f *fakeExecutor) Exec(ctx context.Context, cmd string) ([]byte, []byte, error) {
	f.lastCmd = cmd
	f.commands = append(f.commands, cmd)

	err := f.err
	if len(f.errQueue) > 0 {
		err = f.errQueue[0]
		f.errQueue = f.errQueue[1:]
	}
	return f.stdout, f.stderr, err
}

func (f *fakeExecutor) ExecInput(ctx context.Context, cmd string, stdin []byte) ([]byte, []byte, error) {
	f.lastIn = stdin
	return f.Exec(ctx, cmd)
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}

func TestPaneID(t *testing.T) {
	exec := &fakeExecutor{stdout: []byte("%3\n")}
	client := NewClient(exec)

	id, err := client.PaneID(context.Background(), "agent:0.1")
	if err != nil {
		t.Fatalf("PaneID failed: %v", err)
	}
	if id != "%3" {
		t.Errorf("expected %%3, got %q", id)
	}
	if !containsAll(exec.lastCmd, "display-message", "-t 'agent:0.1'", "#{pane_id}") {
		t.Errorf("unexpected command: %s", exec.lastCmd)
	}
}

func TestPaneID_Errors(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"no server", "no server running on /tmp/tmux-0/default", ErrNoServer},
		{"missing pane", "can't find pane: 9", ErrPaneNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(&fakeExecutor{stderr: []byte(tt.stderr), err: errors.New("exit status 1")})
			_, err := client.PaneID(context.Background(), "agent:0.9")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := NewClient(&fakeExecutor{}).PaneID(context.Background(), " "); !errors.Is(err, ErrTargetRequired) {
		t.Errorf("expected ErrTargetRequired, got %v", err)
	}
}

func TestSendKeys(t *testing.T) {
	exec := &fakeExecutor{}
	client := NewClient(exec)

	if err := client.SendKeys(context.Background(), "%1", "echo hello", true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsAll(exec.lastCmd, "send-keys", "-t", "-l", "'echo hello'") {
		t.Errorf("unexpected command: %s", exec.lastCmd)
	}
}

func TestSendKeys_WithEnter(t *testing.T) {
	exec := &fakeExecutor{}
	client := NewClient(exec)

	if err := client.SendKeys(context.Background(), "%1", "/clear", true, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.commands) != 2 {
		t.Fatalf("expected 2 command calls (send-keys + Enter), got %d", len(exec.commands))
	}
	if !strings.HasSuffix(exec.commands[1], "Enter") {
		t.Errorf("expected Enter as second command, got %s", exec.commands[1])
	}
}

func TestSetBuffer_TextOnStdin(t *testing.T) {
	exec := &fakeExecutor{}
	client := NewClient(exec)

	text := "it's done\n" + strings.Repeat("x", 200*1024)
	if err := client.SetBuffer(context.Background(), BufferName, text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsAll(exec.lastCmd, "load-buffer", "-b 'commitloop'", " -") {
		t.Errorf("unexpected command: %s", exec.lastCmd)
	}
	if strings.Contains(exec.lastCmd, "it's done") {
		t.Errorf("text leaked into the command line: %.80s", exec.lastCmd)
	}
	if string(exec.lastIn) != text {
		t.Errorf("stdin carried %d bytes, want %d", len(exec.lastIn), len(text))
	}
}

func TestSetBuffer_NoServer(t *testing.T) {
	exec := &fakeExecutor{stderr: []byte("no server running on /tmp/tmux-0/default"), err: errors.New("exit status 1")}
	if err := NewClient(exec).SetBuffer(context.Background(), BufferName, "x"); !errors.Is(err, ErrNoServer) {
		t.Errorf("expected ErrNoServer, got %v", err)
	}
}

func TestLocalExecutor_LargeInput(t *testing.T) {
	payload := []byte(strings.Repeat("commitloop ", 20*1024))

	stdout, _, err := (&LocalExecutor{}).ExecInput(context.Background(), "cat", payload)
	if err != nil {
		t.Fatalf("ExecInput failed: %v", err)
	}
	if len(stdout) != len(payload) {
		t.Errorf("expected %d bytes back, got %d", len(payload), len(stdout))
	}
}

func TestPasteBuffer(t *testing.T) {
	exec := &fakeExecutor{}
	client := NewClient(exec)

	if err := client.PasteBuffer(context.Background(), BufferName, "%2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsAll(exec.lastCmd, "paste-buffer", "-p", "-t '%2'") {
		t.Errorf("unexpected command: %s", exec.lastCmd)
	}
}

func TestSelectPane(t *testing.T) {
	exec := &fakeExecutor{}
	client := NewClient(exec)

	if err := client.SelectPane(context.Background(), "agent:1.0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsAll(exec.lastCmd, "select-window", "select-pane", "'agent:1.0'") {
		t.Errorf("unexpected command: %s", exec.lastCmd)
	}
}
