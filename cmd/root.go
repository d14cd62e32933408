package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/logger"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Private question answering over your local documents",
	Long: `docqa answers natural-language questions about a private document
collection using locally-run models. Documents are chunked, embedded
and indexed on your machine, and answers come back with source
citations and a confidence score. Nothing leaves your computer.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
