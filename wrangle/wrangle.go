package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apparentlymart/adl-meta/log"
)

type globalFlags struct {
	configFile string
	logLevel   string
	mute       string
	core       string
	strict     bool
}

func main() {
	var flags globalFlags

	var rootCmd = &cobra.Command{
		Use:           "wrangle",
		Short:         "Extract compiler-backend models from ADL architecture descriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.InitLogger(os.Stderr, flags.logLevel); err != nil {
				return err
			}
			for _, m := range strings.Split(flags.mute, ",") {
				if m = strings.TrimSpace(m); m != "" {
					log.DisableModule(m)
				}
			}
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML naming-override table")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error, crit)")
	pf.StringVar(&flags.mute, "mute", "", "comma-separated log modules to keep quiet at debug level")
	pf.StringVar(&flags.core, "core", "", "only process the named core")
	pf.BoolVar(&flags.strict, "strict", false, "fail when any instruction cannot be resolved")

	rootCmd.AddCommand(
		newDumpCmd(&flags),
		newTreeCmd(&flags),
		newSnapshotCmd(&flags),
		newDiffCmd(&flags),
		newCheckCmd(&flags),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wrangle: %s\n", err)
		os.Exit(1)
	}
}
