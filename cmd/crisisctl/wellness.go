package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func moodCmd(cli *client) *cobra.Command {
	var (
		score, stress, anxiety float64
		notes                  string
		emotions               []string
	)
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Record a mood entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{}
			if cmd.Flags().Changed("score") {
				payload["moodScore"] = score
			}
			if cmd.Flags().Changed("stress") {
				payload["stressLevel"] = stress
			}
			if cmd.Flags().Changed("anxiety") {
				payload["anxietyLevel"] = anxiety
			}
			if notes != "" {
				payload["notes"] = notes
			}
			if len(emotions) > 0 {
				payload["emotions"] = emotions
			}
			data, err := cli.do(cmd.Context(), http.MethodPost, "/moods", payload)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().Float64VarP(&score, "score", "s", 0, "Mood score (1-10)")
	cmd.Flags().Float64Var(&stress, "stress", 0, "Stress level (1-10)")
	cmd.Flags().Float64Var(&anxiety, "anxiety", 0, "Anxiety level (1-10)")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Free-text notes")
	cmd.Flags().StringSliceVarP(&emotions, "emotions", "e", nil, "Emotion tags (comma separated)")
	return cmd
}

func activityCmd(cli *client) *cobra.Command {
	var (
		typ, category, completedAt, scheduled string
		completed                             bool
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Record an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if typ == "" && category == "" {
				return fmt.Errorf("--type or --category required")
			}
			payload := map[string]any{"completed": completed}
			if typ != "" {
				payload["type"] = typ
			}
			if category != "" {
				payload["category"] = category
			}
			for flag, v := range map[string]string{"completedAt": completedAt, "scheduledTime": scheduled} {
				if v == "" {
					continue
				}
				t, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return fmt.Errorf("%s must be RFC3339: %w", flag, err)
				}
				payload[flag] = t
			}
			data, err := cli.do(cmd.Context(), http.MethodPost, "/activities", payload)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Activity type, e.g. medication")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Activity category, e.g. social")
	cmd.Flags().BoolVar(&completed, "completed", false, "Mark the activity completed")
	cmd.Flags().StringVar(&completedAt, "completed-at", "", "Completion time (RFC3339)")
	cmd.Flags().StringVar(&scheduled, "scheduled", "", "Scheduled time (RFC3339)")
	return cmd
}

func assessmentsCmd(cli *client) *cobra.Command {
	var current bool
	cmd := &cobra.Command{
		Use:   "assessments",
		Short: "List assessment history",
		RunE: func(cmd *cobra.Command, args []string) error {
			suffix := "/assessments"
			if current {
				suffix += "/current"
			}
			data, err := cli.do(cmd.Context(), http.MethodGet, suffix, nil)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().BoolVar(&current, "current", false, "Show only the latest assessment")
	return cmd
}
