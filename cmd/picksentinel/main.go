package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "picksentinel",
		Short:         "Classify backend stock picks and alert on recommendation changes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CONFIG_PATH or configs/config.yaml)")

	root.AddCommand(runCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(classifyCmd())
	root.AddCommand(thresholdsCmd())

	return root
}

func runCmd() *cobra.Command {
	var mock bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler, Telegram bot and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(mock)
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "poll built-in demo picks instead of the backend (same as backend.mock)")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server without polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func classifyCmd() *cobra.Command {
	var (
		score          string
		mode           string
		symbol         string
		instrumentType string
		optionType     string
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a single blend score and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if cmd.Flags().Changed("score") {
				raw = score
			}
			return runClassify(cmd.OutOrStdout(), raw, mode, symbol, instrumentType, optionType)
		},
	}

	cmd.Flags().StringVar(&score, "score", "", "blend score on the 0-100 scale (omit for a missing score)")
	cmd.Flags().StringVar(&mode, "mode", "intraday", "trading mode (scalping, intraday, futures, swing)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "instrument symbol")
	cmd.Flags().StringVar(&instrumentType, "instrument-type", "", "instrument type, e.g. OPTIDX")
	cmd.Flags().StringVar(&optionType, "option-type", "", "option type (CE/PE)")
	return cmd
}

func thresholdsCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Print the score thresholds of a mode as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThresholds(cmd.OutOrStdout(), mode)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "intraday", "trading mode")
	return cmd
}
