package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/commitloop/internal/config"
	"github.com/spf13/cobra"
)

var setupFlags struct {
	project bool
	force   bool
	target  string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create a commitloop configuration file",
	Long: `Create a commitloop configuration file with defaults.

By default, writes the global config at ~/.config/commitloop/commitloop.yml.
Use --project to write ./commitloop.yml instead.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	setupCmd.Flags().StringVarP(&setupFlags.target, "target", "t", "", "tmux target pane to store in the config")
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := config.GlobalPath()
	if setupFlags.project {
		path = config.ProjectPath()
	}

	if !setupFlags.force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", path)
		}
	}

	cfg := config.Default()
	cfg.Target = setupFlags.target

	var err error
	if setupFlags.project {
		err = config.WriteProject(cfg)
	} else {
		err = config.WriteGlobal(cfg)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
	if cfg.Target == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Set 'target' to the tmux pane running your agent before running commitloop.")
	}
	return nil
}
