package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/space/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "space",
		Short: "A fine-grained reactive runtime for Go",
		Long: `Space is a fine-grained reactive runtime.

Signals hold values, computations track the signals they read and
re-run when those signals change. Updates are batched into a single
flush per microtask turn.

Use "space demo" to run the reference scenarios and "space serve"
to run a live runtime with the inspector attached.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: space.json or space.yaml in the working directory)")

	cmd.AddCommand(
		demoCmd(),
		serveCmd(&configPath),
		configCmd(&configPath),
		versionCmd(),
	)

	return cmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
