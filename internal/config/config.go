// Package config provides centralized configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Submit mechanism names accepted in submit_chain.
const (
	MechanismXdotool = "xdotool"
	MechanismType    = "type"
	MechanismAccept  = "accept"
)

// Config holds all configuration values for commitloop.
type Config struct {
	Target        string `mapstructure:"target"`
	Pattern       string `mapstructure:"pattern"`
	MaxCandidates int    `mapstructure:"max_candidates"`
	RepoDir       string `mapstructure:"repo_dir"`
	Session       string `mapstructure:"session"`

	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxWait      time.Duration `mapstructure:"max_wait"`
	PollTick     time.Duration `mapstructure:"poll_tick"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	ActionDelay  time.Duration `mapstructure:"action_delay"`

	CleanupKeys          []string `mapstructure:"cleanup_keys"`
	SubmitChain          []string `mapstructure:"submit_chain"`
	XdotoolWindow        string   `mapstructure:"xdotool_window"`
	AbortOnSubmitFailure bool     `mapstructure:"abort_on_submit_failure"`
	Clipboard            bool     `mapstructure:"clipboard"`
	MaxIterations        int      `mapstructure:"max_iterations"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Target:        "",
		Pattern:       "prompts/*.md",
		MaxCandidates: 50,
		RepoDir:       ".",
		PollInterval:  5 * time.Second,
		MaxWait:       30 * time.Minute,
		PollTick:      250 * time.Millisecond,
		SettleDelay:   3 * time.Second,
		ActionDelay:   300 * time.Millisecond,
		CleanupKeys:   []string{"/clear", "Enter"},
		SubmitChain:   []string{MechanismXdotool, MechanismType, MechanismAccept},
		Clipboard:     true,
		LogLevel:      "info",
	}
}

// keys lists every configuration key; each is bound to COMMITLOOP_<KEY>.
var keys = []string{
	"target", "pattern", "max_candidates", "repo_dir", "session",
	"poll_interval", "max_wait", "poll_tick", "settle_delay", "action_delay",
	"cleanup_keys", "submit_chain", "xdotool_window", "abort_on_submit_failure", "clipboard", "max_iterations",
	"log_level", "log_file",
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults.
// Flags are matched to keys by replacing dashes with underscores; flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("commitloop")

	def := Default()
	v.SetDefault("target", def.Target)
	v.SetDefault("pattern", def.Pattern)
	v.SetDefault("max_candidates", def.MaxCandidates)
	v.SetDefault("repo_dir", def.RepoDir)
	v.SetDefault("session", "")
	v.SetDefault("poll_interval", def.PollInterval)
	v.SetDefault("max_wait", def.MaxWait)
	v.SetDefault("poll_tick", def.PollTick)
	v.SetDefault("settle_delay", def.SettleDelay)
	v.SetDefault("action_delay", def.ActionDelay)
	v.SetDefault("cleanup_keys", def.CleanupKeys)
	v.SetDefault("submit_chain", def.SubmitChain)
	v.SetDefault("xdotool_window", "")
	v.SetDefault("abort_on_submit_failure", def.AbortOnSubmitFailure)
	v.SetDefault("clipboard", def.Clipboard)
	v.SetDefault("max_iterations", def.MaxIterations)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("COMMITLOOP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit ENV bindings for better bool/int parsing
	for _, key := range keys {
		if err := v.BindEnv(key, "COMMITLOOP_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	if flags != nil {
		for _, key := range keys {
			f := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding %s flag: %w", key, err)
			}
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate reports the first problem that would keep the loop from running.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return errors.New("target is required (tmux pane, e.g. agent:0.0)")
	}
	if strings.TrimSpace(c.Pattern) == "" {
		return errors.New("pattern is required")
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be > 0, got %d", c.MaxCandidates)
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"poll_interval", c.PollInterval},
		{"max_wait", c.MaxWait},
		{"poll_tick", c.PollTick},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.d)
		}
	}
	if c.SettleDelay < 0 || c.ActionDelay < 0 {
		return errors.New("settle_delay and action_delay must not be negative")
	}
	if c.PollTick > c.PollInterval {
		return fmt.Errorf("poll_tick (%s) must not exceed poll_interval (%s)", c.PollTick, c.PollInterval)
	}
	if c.MaxIterations < 0 {
		return errors.New("max_iterations must be >= 0 (0 means unlimited)")
	}
	if len(c.SubmitChain) == 0 {
		return errors.New("submit_chain must name at least one mechanism")
	}
	for _, name := range c.SubmitChain {
		switch name {
		case MechanismXdotool, MechanismType, MechanismAccept:
		default:
			return fmt.Errorf("unknown submit mechanism %q", name)
		}
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/commitloop/commitloop.yml or $XDG_CONFIG_HOME/commitloop/commitloop.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "commitloop", "commitloop.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "commitloop", "commitloop.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "commitloop.yml"
}

// fileConfig is the on-disk form; durations are written as Go duration strings.
type fileConfig struct {
	Target               string   `yaml:"target"`
	Pattern              string   `yaml:"pattern"`
	MaxCandidates        int      `yaml:"max_candidates"`
	RepoDir              string   `yaml:"repo_dir"`
	Session              string   `yaml:"session,omitempty"`
	PollInterval         string   `yaml:"poll_interval"`
	MaxWait              string   `yaml:"max_wait"`
	PollTick             string   `yaml:"poll_tick"`
	SettleDelay          string   `yaml:"settle_delay"`
	ActionDelay          string   `yaml:"action_delay"`
	CleanupKeys          []string `yaml:"cleanup_keys"`
	SubmitChain          []string `yaml:"submit_chain"`
	XdotoolWindow        string   `yaml:"xdotool_window,omitempty"`
	AbortOnSubmitFailure bool     `yaml:"abort_on_submit_failure"`
	Clipboard            bool     `yaml:"clipboard"`
	MaxIterations        int      `yaml:"max_iterations"`
	LogLevel             string   `yaml:"log_level"`
	LogFile              string   `yaml:"log_file"`
}

func (c *Config) toFile() fileConfig {
	return fileConfig{
		Target:               c.Target,
		Pattern:              c.Pattern,
		MaxCandidates:        c.MaxCandidates,
		RepoDir:              c.RepoDir,
		Session:              c.Session,
		PollInterval:         c.PollInterval.String(),
		MaxWait:              c.MaxWait.String(),
		PollTick:             c.PollTick.String(),
		SettleDelay:          c.SettleDelay.String(),
		ActionDelay:          c.ActionDelay.String(),
		CleanupKeys:          c.CleanupKeys,
		SubmitChain:          c.SubmitChain,
		XdotoolWindow:        c.XdotoolWindow,
		AbortOnSubmitFailure: c.AbortOnSubmitFailure,
		Clipboard:            c.Clipboard,
		MaxIterations:        c.MaxIterations,
		LogLevel:             c.LogLevel,
		LogFile:              c.LogFile,
	}
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg.toFile())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
