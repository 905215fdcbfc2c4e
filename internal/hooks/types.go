package hooks

// Config is the hooks file layout.
type Config struct {
	Version int         `yaml:"version"`
	Hooks   HooksConfig `yaml:"hooks"`
}

// HooksConfig lists the hooks for each loop event.
type HooksConfig struct {
	// PreIteration runs before content is resolved. Piped output is exposed
	// to the prompt template as {{hooks}}.
	PreIteration []*HookConfig `yaml:"pre_iteration"`
	// OnCommit runs after a commit was detected and the cleanup keys were sent.
	OnCommit []*HookConfig `yaml:"on_commit"`
}

// HookConfig defines a single hook command.
type HookConfig struct {
	Command    string `yaml:"command"`
	Timeout    int    `yaml:"timeout"` // seconds
	PipeOutput bool   `yaml:"pipe_output"`
}

// DefaultTimeout is used when a hook has no timeout set, in seconds.
const DefaultTimeout = 30
