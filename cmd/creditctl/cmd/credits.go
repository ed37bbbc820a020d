package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	creditsUserID int64
	creditsAmount int64
	creditsYes    bool
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Manage credit balances",
}

var creditsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a user's credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var balance int64
		if err := client.Dispatch("credits", commandArgs{TargetID: creditsUserID}, &balance); err != nil {
			return err
		}

		if creditsUserID != 0 {
			fmt.Printf("user %d has %d credits\n", creditsUserID, balance)
		} else {
			fmt.Printf("you have %d credits\n", balance)
		}
		return nil
	},
}

var creditsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add credits to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var balance int64
		if err := client.Dispatch("addcredits", commandArgs{TargetID: creditsUserID, Amount: creditsAmount}, &balance); err != nil {
			return err
		}

		fmt.Printf("user %d now has %d credits\n", creditsUserID, balance)
		return nil
	},
}

var creditsSubCmd = &cobra.Command{
	Use:   "sub",
	Short: "Subtract credits from a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var balance int64
		if err := client.Dispatch("subcredits", commandArgs{TargetID: creditsUserID, Amount: creditsAmount}, &balance); err != nil {
			return err
		}

		fmt.Printf("user %d now has %d credits\n", creditsUserID, balance)
		return nil
	},
}

var creditsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a user's credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var balance int64
		if err := client.Dispatch("setcredits", commandArgs{TargetID: creditsUserID, Amount: creditsAmount}, &balance); err != nil {
			return err
		}

		fmt.Printf("user %d now has %d credits\n", creditsUserID, balance)
		return nil
	},
}

var creditsWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Wipe all credit balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !creditsYes {
			return fmt.Errorf("refusing to wipe all balances without --yes")
		}

		client := newClient()
		if err := client.Dispatch("wipecredits", commandArgs{Confirm: true}, nil); err != nil {
			return err
		}

		fmt.Println("all credit balances wiped")
		return nil
	},
}

func init() {
	creditsGetCmd.Flags().Int64Var(&creditsUserID, "user", 0, "Target user ID (defaults to caller)")

	for _, c := range []*cobra.Command{creditsAddCmd, creditsSubCmd, creditsSetCmd} {
		c.Flags().Int64Var(&creditsUserID, "user", 0, "Target user ID")
		c.Flags().Int64Var(&creditsAmount, "amount", 0, "Credit amount")
		_ = c.MarkFlagRequired("user")
		_ = c.MarkFlagRequired("amount")
	}

	creditsWipeCmd.Flags().BoolVar(&creditsYes, "yes", false, "Confirm the wipe")

	creditsCmd.AddCommand(creditsGetCmd)
	creditsCmd.AddCommand(creditsAddCmd)
	creditsCmd.AddCommand(creditsSubCmd)
	creditsCmd.AddCommand(creditsSetCmd)
	creditsCmd.AddCommand(creditsWipeCmd)
}
