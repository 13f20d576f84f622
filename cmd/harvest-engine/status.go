package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/harvest-engine/internal/tracker"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete completion records older than the retention period",
	Long: `Prune removes completion records older than --retention-days from the
history database. The run command does this automatically at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tracker.Open(viper.GetString("database_path"))
		if err != nil {
			return err
		}
		defer store.Close()

		days, _ := cmd.Flags().GetInt("retention-days")
		n, err := store.Prune(cmd.Context(), days)
		if err != nil {
			return err
		}
		logger.Info().Int64("deleted", n).Int("retention_days", days).Msg("pruned history")
		fmt.Printf("Deleted %d record(s) older than %d day(s)\n", n, days)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List completion records",
	Long: `Status prints every completion record, newest first. Pairs marked
"gated" finished inside the current completion window and will be skipped
by the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tracker.Open(viper.GetString("database_path"))
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		hours, _ := cmd.Flags().GetInt("min-hours")
		cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMPLETED\tSITE\tKEYWORD\tSTATE\tDIRECTORY")
		for _, r := range records {
			state := "expired"
			if !r.CompletedAt.Before(cutoff) {
				state = "gated"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.CompletedAt.Local().Format(time.DateTime), r.Site, r.Keyword, state, r.Directory)
		}
		return w.Flush()
	},
}

func init() {
	pruneCmd.Flags().Int("retention-days", defaultRetentionDays, "delete records older than this many days")
	statusCmd.Flags().Int("min-hours", defaultMinHours, "completion window in hours")

	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statusCmd)
}
