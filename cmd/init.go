package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/botkit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a botkit configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for the platform host and bot credentials and writes botkit.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("%d bot account(s) configured. Start the bot with `botkit serve`.\n", len(cfg.Accounts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
