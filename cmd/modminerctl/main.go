// modminerctl is a thin diagnostic shell over the driver core: attach to
// candidate serial paths, report status, and nudge a board's clock by hand.
// It never generates work or talks to a pool; that is host scheduler scope.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "modminerctl: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "modminerctl",
		Short:         "diagnostic shell for ModMiner-class FPGA boards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML/TOML/JSON)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newDetectCmd(), newStatusCmd(), newSetClockCmd())
	return root
}

func newLogger() logrus.FieldLogger {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
