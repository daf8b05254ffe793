package main

import (
	"fmt"
	"os"

	"github.com/MixinNetwork/fractional/config"
	"github.com/MixinNetwork/mixin/logger"
	"github.com/spf13/cobra"
)

const programName = "fractional"

var (
	globalFlags = struct {
		config string
		debug  bool
	}{}
	conf *config.Configuration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Lock NFTs into custody and trade them as fungible fractions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().
		StringVarP(&globalFlags.config, "config", "c", config.DefaultConfigPath, "configuration file path")
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable verbose logging")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c, err := config.Setup(globalFlags.config)
		if err != nil {
			return err
		}
		level := c.LogLevel
		if globalFlags.debug {
			level = logger.VERBOSE
		}
		logger.SetLevel(level)
		conf = c
		return nil
	}

	rootCmd.AddCommand(initCommand())
	rootCmd.AddCommand(mintCommand())
	rootCmd.AddCommand(approveCommand())
	rootCmd.AddCommand(fractionalizeCommand())
	rootCmd.AddCommand(transferCommand())
	rootCmd.AddCommand(unfractionalizeCommand())
	rootCmd.AddCommand(queryCommand())
	rootCmd.AddCommand(transactionsCommand())
	rootCmd.AddCommand(serveCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
