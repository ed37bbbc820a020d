package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the credit leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var entries []struct {
			UserID  int64
			Credits int64
		}
		if err := client.Dispatch("creditsleaderboard", commandArgs{}, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("no users hold credits")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tUSER\tCREDITS")
		for i, e := range entries {
			fmt.Fprintf(w, "%d\t%d\t%d\n", i+1, e.UserID, e.Credits)
		}
		return w.Flush()
	},
}
