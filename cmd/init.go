package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up docqa with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the local model backends and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
