// Command kcl is the compiler toolchain's CLI surface: run, fmt, vet and
// version, the minimum surface named in §6. Subcommands are split across
// cmd_*.go files, following codenerd's cmd/nerd layout
// (root command + one file per command group).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kcl",
	Short: "kcl - the KCL configuration language compiler",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		cfg.OutputPaths = []string{"stderr"}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd, fmtCmd, vetCmd, versionCmd)
}

// exitUsage reports a usage error and exits with code 2 (§6).
func exitUsage(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the usage error; §6 reserves 1 for
		// compile/check errors raised by the subcommands themselves,
		// so an Execute() failure (bad flags, unknown command) is 2.
		os.Exit(2)
	}
}
