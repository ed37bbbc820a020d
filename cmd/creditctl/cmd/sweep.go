package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sweepRoleID int64
	sweepYes    bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run and inspect bulk rank resets",
}

var sweepStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Reset every member to a target role",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !sweepYes {
			return fmt.Errorf("refusing to reset all ranks without --yes")
		}

		client := newClient()

		var runID string
		if err := client.Dispatch("rankall", commandArgs{RoleID: sweepRoleID, Confirm: true}, &runID); err != nil {
			return err
		}

		fmt.Printf("sweep enqueued, run id %s\n", runID)
		fmt.Println("follow progress with: creditctl sweep status")
		return nil
	},
}

var sweepStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest sweep report",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var report struct {
			RunID        string     `json:"run_id"`
			TargetRoleID int64      `json:"target_role_id"`
			Status       string     `json:"status"`
			Scanned      int        `json:"scanned"`
			Changed      int        `json:"changed"`
			Failed       int        `json:"failed"`
			AbortReason  string     `json:"abort_reason"`
			StartedAt    time.Time  `json:"started_at"`
			FinishedAt   *time.Time `json:"finished_at"`
		}
		if err := client.GetSweepStatus(&report); err != nil {
			return err
		}

		fmt.Printf("run:      %s\n", report.RunID)
		fmt.Printf("target:   role %d\n", report.TargetRoleID)
		fmt.Printf("status:   %s\n", report.Status)
		fmt.Printf("progress: scanned %d, changed %d, failed %d\n", report.Scanned, report.Changed, report.Failed)
		if report.AbortReason != "" {
			fmt.Printf("aborted:  %s\n", report.AbortReason)
		}
		fmt.Printf("started:  %s\n", report.StartedAt.Format(time.RFC3339))
		if report.FinishedAt != nil {
			fmt.Printf("finished: %s\n", report.FinishedAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	sweepStartCmd.Flags().Int64Var(&sweepRoleID, "role-id", 0, "Target role ID (defaults to the lowest assignable role)")
	sweepStartCmd.Flags().BoolVar(&sweepYes, "yes", false, "Confirm the sweep")

	sweepCmd.AddCommand(sweepStartCmd)
	sweepCmd.AddCommand(sweepStatusCmd)
}
