package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func planCmd(cli *client) *cobra.Command {
	planCmd := &cobra.Command{Use: "plan", Short: "Safety plan operations"}

	planCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the safety plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cli, http.MethodGet, "/safety-plan", nil)
		},
	})

	// set
	var file, inline string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Create or partially update the safety plan",
		Long:  "Fields present in the JSON document replace the stored ones; absent fields are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte(inline)
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				raw = b
			}
			if len(raw) == 0 {
				return fmt.Errorf("--file or --json required")
			}
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("safety plan must be a JSON object: %w", err)
			}
			return run(cmd, cli, http.MethodPut, "/safety-plan", doc)
		},
	}
	setCmd.Flags().StringVarP(&file, "file", "f", "", "Path to a JSON safety plan document")
	setCmd.Flags().StringVarP(&inline, "json", "j", "", "Inline JSON safety plan document")
	planCmd.AddCommand(setCmd)

	planCmd.AddCommand(&cobra.Command{
		Use:   "activate",
		Short: "Activate the safety plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cli, http.MethodPost, "/safety-plan/activate", nil)
		},
	})

	return planCmd
}
