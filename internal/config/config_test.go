package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points XDG_CONFIG_HOME and the working directory at a temp dir so
// no real config leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Chdir(tmpDir)
	return tmpDir
}

func TestGlobalPath(t *testing.T) {
	tests := []struct {
		name        string
		xdgConfig   string
		wantContain string
	}{
		{
			name:        "with XDG_CONFIG_HOME set",
			xdgConfig:   "/custom/config",
			wantContain: "/custom/config/commitloop/commitloop.yml",
		},
		{
			name:        "without XDG_CONFIG_HOME",
			xdgConfig:   "",
			wantContain: ".config/commitloop/commitloop.yml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfig)

			got := GlobalPath()
			if tt.xdgConfig != "" {
				if got != tt.wantContain {
					t.Errorf("GlobalPath() = %v, want %v", got, tt.wantContain)
				}
			} else {
				if !filepath.IsAbs(got) {
					t.Errorf("GlobalPath() should return absolute path, got %v", got)
				}
				if filepath.Base(got) != "commitloop.yml" {
					t.Errorf("GlobalPath() should end with commitloop.yml, got %v", got)
				}
			}
		})
	}
}

func TestExists(t *testing.T) {
	isolate(t)

	if Exists() {
		t.Error("Exists() = true, want false when no config files exist")
	}

	if err := os.WriteFile(ProjectPath(), []byte("target: agent\n"), 0644); err != nil {
		t.Fatalf("Failed to write project config: %v", err)
	}
	if !Exists() {
		t.Error("Exists() = false, want true when project config exists")
	}
}

func TestLoad_NoConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Pattern, cfg.Pattern)
	assert.Equal(t, def.PollInterval, cfg.PollInterval)
	assert.Equal(t, def.MaxWait, cfg.MaxWait)
	assert.Equal(t, def.PollTick, cfg.PollTick)
	assert.Equal(t, def.SettleDelay, cfg.SettleDelay)
	assert.Equal(t, def.SubmitChain, cfg.SubmitChain)
	assert.Equal(t, def.CleanupKeys, cfg.CleanupKeys)
	assert.True(t, cfg.Clipboard)
	assert.False(t, cfg.AbortOnSubmitFailure)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	global := "target: global:0\npoll_interval: 10s\nsettle_delay: 1s\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(GlobalPath()), 0755))
	require.NoError(t, os.WriteFile(GlobalPath(), []byte(global), 0644))

	project := "target: project:0\nmax_wait: 2m\nsubmit_chain: [type, accept]\n"
	require.NoError(t, os.WriteFile(ProjectPath(), []byte(project), 0644))

	t.Setenv("COMMITLOOP_SETTLE_DELAY", "4s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("target", "", "")
	flags.Duration("poll-interval", 0, "")
	require.NoError(t, flags.Parse([]string{"--target", "flag:1"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "flag:1", cfg.Target, "flag beats project config")
	assert.Equal(t, 10*time.Second, cfg.PollInterval, "unset flag does not mask global config")
	assert.Equal(t, 2*time.Minute, cfg.MaxWait, "project config merged over global")
	assert.Equal(t, 4*time.Second, cfg.SettleDelay, "env beats config files")
	assert.Equal(t, []string{"type", "accept"}, cfg.SubmitChain)
}

func TestWriteProject_RoundTrip(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Target = "agent:0.1"
	cfg.SettleDelay = 1500 * time.Millisecond
	cfg.AbortOnSubmitFailure = true
	cfg.XdotoolWindow = "0x400007"
	require.NoError(t, WriteProject(cfg))

	data, err := os.ReadFile(ProjectPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "settle_delay: 1.5s")

	loaded, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "agent:0.1", loaded.Target)
	assert.Equal(t, 1500*time.Millisecond, loaded.SettleDelay)
	assert.True(t, loaded.AbortOnSubmitFailure)
	assert.Equal(t, "0x400007", loaded.XdotoolWindow)
}

func TestWriteGlobal(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Target = "global:0"
	require.NoError(t, WriteGlobal(cfg))

	_, err := os.Stat(GlobalPath())
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Target = "agent:0"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults with target", mutate: func(c *Config) {}},
		{name: "missing target", mutate: func(c *Config) { c.Target = " " }, wantErr: "target is required"},
		{name: "zero poll interval", mutate: func(c *Config) { c.PollInterval = 0 }, wantErr: "poll_interval"},
		{name: "tick coarser than poll", mutate: func(c *Config) { c.PollTick = 10 * time.Second }, wantErr: "poll_tick"},
		{name: "negative settle", mutate: func(c *Config) { c.SettleDelay = -time.Second }, wantErr: "settle_delay"},
		{name: "unknown mechanism", mutate: func(c *Config) { c.SubmitChain = []string{"telepathy"} }, wantErr: "unknown submit mechanism"},
		{name: "empty chain", mutate: func(c *Config) { c.SubmitChain = nil }, wantErr: "submit_chain"},
		{name: "negative iterations", mutate: func(c *Config) { c.MaxIterations = -1 }, wantErr: "max_iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
