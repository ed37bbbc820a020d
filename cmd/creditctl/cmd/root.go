// Package cmd implements the creditctl admin CLI.
package cmd

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Global flags
var (
	flagAPIURL   string
	flagCallerID int64
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "creditctl",
	Short: "Administration CLI for the creditbot service",
	Long: `creditctl drives the creditbot command API from the terminal.

Every invocation acts as a caller identity, so the same access tiers
apply as in chat: configure --caller (or CREDITBOT_CALLER_ID) with a
user id that holds the needed tier.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "creditbot API URL (env: CREDITBOT_API_URL)")
	rootCmd.PersistentFlags().Int64Var(&flagCallerID, "caller", 0, "acting caller user id (env: CREDITBOT_CALLER_ID)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(creditsCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(whitelistCmd)
	rootCmd.AddCommand(unwhitelistCmd)
	rootCmd.AddCommand(ranksCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(sweepCmd)
}

func initConfig() {
	if flagAPIURL == "" {
		flagAPIURL = os.Getenv("CREDITBOT_API_URL")
	}
	if flagAPIURL == "" {
		flagAPIURL = "http://localhost:8080"
	}
	if flagCallerID == 0 {
		if raw := os.Getenv("CREDITBOT_CALLER_ID"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				flagCallerID = id
			}
		}
	}
}

func newClient() *Client {
	return NewClient(flagAPIURL, flagCallerID, flagVerbose)
}
