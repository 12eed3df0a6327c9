package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func sessionCmd(cli *client) *cobra.Command {
	sessionCmd := &cobra.Command{Use: "session", Short: "Crisis session operations"}

	// start
	var severity string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a crisis session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cli, http.MethodPost, "/sessions", map[string]any{"severity": severity})
		},
	}
	startCmd.Flags().StringVarP(&severity, "severity", "s", "medium", "Severity: low, medium, high, critical")
	sessionCmd.AddCommand(startCmd)

	// end
	var reason string
	endCmd := &cobra.Command{
		Use:   "end",
		Short: "End the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cli.do(cmd.Context(), http.MethodPost, "/sessions/active/end", map[string]any{"reason": reason})
			if err != nil {
				return err
			}
			if data == nil {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no active session")
				return err
			}
			return emit(cmd.OutOrStdout(), data)
		},
	}
	endCmd.Flags().StringVarP(&reason, "reason", "r", "", "Resolution reason")
	sessionCmd.AddCommand(endCmd)

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "connect COUNSELOR_ID",
		Short: "Connect a counselor to the waiting session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cli, http.MethodPost, "/sessions/active/counselor", map[string]any{"counselorId": args[0]})
		},
	})

	// message
	var kind, sender string
	messageCmd := &cobra.Command{
		Use:   "message TEXT...",
		Short: "Add a message to the active session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"content": strings.Join(args, " ")}
			if kind != "" {
				payload["kind"] = kind
			}
			if sender != "" {
				payload["senderId"] = sender
			}
			return run(cmd, cli, http.MethodPost, "/sessions/active/messages", payload)
		},
	}
	messageCmd.Flags().StringVarP(&kind, "kind", "k", "", "Message kind: text, system, resource")
	messageCmd.Flags().StringVar(&sender, "sender", "", "Sender ID (defaults to the user)")
	sessionCmd.AddCommand(messageCmd)

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "emergency CONTACT_ID",
		Short: "Contact an emergency contact from the safety plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cli, http.MethodPost, "/sessions/active/emergency", map[string]any{"contactId": args[0]})
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cli, http.MethodGet, "/sessions/active", nil)
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List resolved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cli, http.MethodGet, "/sessions", nil)
		},
	})

	return sessionCmd
}

// run performs one request and prints the response.
func run(cmd *cobra.Command, cli *client, method, suffix string, body any) error {
	data, err := cli.do(cmd.Context(), method, suffix, body)
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), data)
}
