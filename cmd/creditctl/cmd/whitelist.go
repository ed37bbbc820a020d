package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	whitelistUserID int64
	whitelistRole   string
)

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Grant an access role to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		err := client.Dispatch("whitelist", commandArgs{TargetID: whitelistUserID, Role: whitelistRole}, nil)
		if err != nil {
			return err
		}

		fmt.Printf("granted role %q to user %d\n", whitelistRole, whitelistUserID)
		return nil
	},
}

var unwhitelistCmd = &cobra.Command{
	Use:   "unwhitelist",
	Short: "Revoke all access roles from a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var removed int64
		if err := client.Dispatch("unwhitelist", commandArgs{TargetID: whitelistUserID}, &removed); err != nil {
			return err
		}

		fmt.Printf("revoked %d role(s) from user %d\n", removed, whitelistUserID)
		return nil
	},
}

func init() {
	whitelistCmd.Flags().Int64Var(&whitelistUserID, "user", 0, "Target user ID")
	whitelistCmd.Flags().StringVar(&whitelistRole, "role", "", "Role to grant (staff, manager, tag_manager, owners)")
	_ = whitelistCmd.MarkFlagRequired("user")
	_ = whitelistCmd.MarkFlagRequired("role")

	unwhitelistCmd.Flags().Int64Var(&whitelistUserID, "user", 0, "Target user ID")
	_ = unwhitelistCmd.MarkFlagRequired("user")
}
