package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	rankIdentifier string
	rankRoleID     int64
	ranksForce     bool
)

type roleInfo struct {
	ID   int64
	Name string
	Rank int
}

type rankChangeResult struct {
	UserID      int64
	Previous    roleInfo
	PreviousOK  bool
	New         roleInfo
	NewlyRanked bool
}

var ranksCmd = &cobra.Command{
	Use:   "ranks",
	Short: "List the group's role catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var roles []roleInfo
		if err := client.Dispatch("ranks", commandArgs{Force: ranksForce}, &roles); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tRANK")
		for _, r := range roles {
			fmt.Fprintf(w, "%d\t%s\t%d\n", r.ID, r.Name, r.Rank)
		}
		return w.Flush()
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Inspect and change group ranks",
}

var rankGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a member's current rank",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var member struct {
			UserID    int64
			Role      roleInfo
			RoleKnown bool
		}
		if err := client.Dispatch("getrank", commandArgs{Identifier: rankIdentifier}, &member); err != nil {
			return err
		}

		if member.RoleKnown {
			fmt.Printf("user %d holds role %s (rank %d)\n", member.UserID, member.Role.Name, member.Role.Rank)
		} else {
			fmt.Printf("user %d holds role id %d\n", member.UserID, member.Role.ID)
		}
		return nil
	},
}

var rankSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Assign a role to a member",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var change rankChangeResult
		err := client.Dispatch("setrank", commandArgs{Identifier: rankIdentifier, RoleID: rankRoleID}, &change)
		if err != nil {
			return err
		}

		printRankChange(change)
		return nil
	},
}

var rankUnrankCmd = &cobra.Command{
	Use:   "unrank",
	Short: "Reset a member to the lowest assignable role",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var change rankChangeResult
		if err := client.Dispatch("unrank", commandArgs{Identifier: rankIdentifier}, &change); err != nil {
			return err
		}

		printRankChange(change)
		return nil
	},
}

func printRankChange(c rankChangeResult) {
	if c.NewlyRanked {
		fmt.Printf("user %d newly ranked to %s\n", c.UserID, c.New.Name)
		return
	}
	if c.PreviousOK {
		fmt.Printf("user %d rank changed from %s to %s\n", c.UserID, c.Previous.Name, c.New.Name)
		return
	}
	fmt.Printf("user %d ranked to %s\n", c.UserID, c.New.Name)
}

func init() {
	ranksCmd.Flags().BoolVar(&ranksForce, "force", false, "Bypass the role cache")

	rankGetCmd.Flags().StringVar(&rankIdentifier, "member", "", "Member user ID or username")
	_ = rankGetCmd.MarkFlagRequired("member")

	rankSetCmd.Flags().StringVar(&rankIdentifier, "member", "", "Member user ID or username")
	rankSetCmd.Flags().Int64Var(&rankRoleID, "role-id", 0, "Role ID to assign")
	_ = rankSetCmd.MarkFlagRequired("member")
	_ = rankSetCmd.MarkFlagRequired("role-id")

	rankUnrankCmd.Flags().StringVar(&rankIdentifier, "member", "", "Member user ID or username")
	_ = rankUnrankCmd.MarkFlagRequired("member")

	rankCmd.AddCommand(rankGetCmd)
	rankCmd.AddCommand(rankSetCmd)
	rankCmd.AddCommand(rankUnrankCmd)
}
