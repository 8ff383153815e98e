package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/space/internal/config"
)

func configCmd(configPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file and
environment overrides have been applied.

Examples:
  space config
  space config --format=yaml
  space config -c deploy/space.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			data, err := cfg.Marshal(config.Format(format))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.Path() != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "loaded %s\n", cfg.Path())
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json or yaml)")

	return cmd
}

// loadConfig loads path when set, otherwise the working directory config.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(".")
}
