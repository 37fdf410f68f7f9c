// Package main provides the taskhub CLI: an HTTP API server for
// department task tracking plus admin commands for users, tasks,
// due-date sweeps and SMTP credentials.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub/internal/model"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskhub",
	Short: "Department task tracking with role-based access",
	Long: `taskhub tracks tasks across departments with hierarchical numbering
and role-based permissions. Run "taskhub serve" to start the HTTP API,
or use the user/task subcommands for local administration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/taskhub/config.yaml)")
}

func loadConfig() (*model.AppConfig, error) {
	path := configPath
	if path == "" {
		path = model.DefaultConfigPath()
	}
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
