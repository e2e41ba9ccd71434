// Package cmd is the cobra/viper CLI: a root command that loads
// cfg.Config, wires internal/logger, constructs the internal/kernel
// facade, mounts internal/memfs at "/" and runs a scripted demo of the
// syscall surface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aejsmith/kiwi-sub001/cfg"
	"github.com/aejsmith/kiwi-sub001/internal/logger"
)

var (
	v       = viper.New()
	verbose bool
)

// rootCmd binds flags at construction time; config errors are surfaced
// from RunE rather than from init(), so cobra's own error formatting
// applies uniformly.
var rootCmd = &cobra.Command{
	Use:   "kiwikernel",
	Short: "Drive the slab allocator and VFS node cache over an in-memory filesystem",
	Long: `kiwikernel is a demo harness for the magazine-enabled slab
allocator and filesystem node cache described by this module: it mounts
the bundled in-memory reference filesystem at / and runs a scripted demo
of the syscall surface (mount, create, open, write, seek, read).`,
	RunE: func(c *cobra.Command, args []string) error {
		config, err := cfg.Load(v)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		if err := logger.Init(logger.Config{
			Format:     string(config.Logging.Format),
			Severity:   string(config.Logging.Severity),
			FilePath:   config.Logging.FilePath,
			MaxSizeMB:  config.Logging.MaxSizeMB,
			MaxBackups: config.Logging.MaxBackups,
			MaxAgeDays: config.Logging.MaxAgeDays,
		}); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		return runDemo(*config)
	},
}

// Execute runs the root command, the single entry point main() calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flagSet := rootCmd.Flags()
	if err := cfg.BindFlags(v, flagSet); err != nil {
		fmt.Fprintln(os.Stderr, "binding flags:", err)
		os.Exit(1)
	}
	flagSet.BoolVar(&verbose, "verbose", false, "Print each demo step's result.")
}
