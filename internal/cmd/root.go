// Package cmd implements the stockwatch command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/config"
	"github.com/restock-systems/stockwatch/pkg/output"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0"

var (
	cfgFile      string
	outputFormat string
	cfg          *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stockwatch",
	Short: "Stock alerting pipeline",
	Long: `stockwatch watches inventory levels of small shops and pushes
alerts when items are about to run out.

Run the HTTP functions with "serve", or use the subcommands to
manage the development database and exercise push delivery.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		output.Error(rootCmd.ErrOrStderr(), "%v", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or /etc/stockwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", output.FormatTable, "output format: table, json, yaml")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load config: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *logging.Logger {
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)
	return logger
}

func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	return output.NewPrinter(cmd.OutOrStdout(), outputFormat)
}
