package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/botkit/internal/progress"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Check the credentials of every configured bot account",
	Long:  `Requests a platform token for each bot account in the config and reports which accounts were accepted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}

		bot, closeStore, err := buildBot(cfg, log, nil, nil)
		if err != nil {
			return err
		}
		defer closeStore()
		defer bot.Shutdown(context.Background())

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTP.Timeout+5*time.Second)
		defer cancel()

		accs := bot.Accounts()
		reporter := progress.NewReporter("Fetching tokens")
		reporter.Start(len(accs))

		results := make([]error, len(accs))
		for i, acc := range accs {
			reporter.Update(i+1, acc.ID.String())
			_, results[i] = bot.API().GetToken(ctx, acc.ID)
		}
		reporter.Finish()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BOT ID\tHOST\tSTATUS")
		failed := 0
		for i, acc := range accs {
			status := "ok"
			if results[i] != nil {
				status = results[i].Error()
				failed++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", acc.ID, acc.Host, status)
		}
		w.Flush()

		if failed > 0 {
			return fmt.Errorf("%d of %d accounts failed", failed, len(accs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}
