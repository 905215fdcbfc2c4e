package main

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
)

func TestPlainOutput(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{Use: "run"}
		cmd.Flags().Bool("plain", false, "")
		if err := cmd.Flags().Parse(args); err != nil {
			t.Fatalf("parse flags: %v", err)
		}
		return cmd
	}

	t.Setenv("NO_COLOR", "")
	os.Unsetenv("NO_COLOR")
	if plainOutput(newCmd()) {
		t.Error("plainOutput() = true with no flag and no NO_COLOR")
	}
	if !plainOutput(newCmd("--plain")) {
		t.Error("plainOutput() = false with --plain")
	}

	t.Setenv("NO_COLOR", "1")
	if !plainOutput(newCmd()) {
		t.Error("plainOutput() = false with NO_COLOR set")
	}
}

func TestConfigFileCheck(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(dir)

	fileCheck := checks[0]
	if fileCheck.name != "config file" || !fileCheck.optional {
		t.Fatalf("first check = %q (optional=%v), want optional config file check", fileCheck.name, fileCheck.optional)
	}
	if _, err := fileCheck.run(t.Context(), nil); err == nil {
		t.Error("expected a warning when no config file exists")
	}

	if err := os.WriteFile("commitloop.yml", []byte("target: agent\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if detail, err := fileCheck.run(t.Context(), nil); err != nil || detail != "found" {
		t.Errorf("run() = %q, %v; want found", detail, err)
	}
}
