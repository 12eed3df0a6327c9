package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd builds the crisisctl command tree.
func newRootCmd() *cobra.Command {
	var apiFlag, userFlag string
	cli := &client{}

	rootCmd := &cobra.Command{
		Use:           "crisisctl",
		Short:         "CLI client for the crisis service REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			cli.init(apiFlag, userFlag)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Crisis service base URL")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User ID (required)")

	rootCmd.AddCommand(moodCmd(cli), activityCmd(cli), assessmentsCmd(cli), sessionCmd(cli), planCmd(cli))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
