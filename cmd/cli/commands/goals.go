package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const flagCount = "count"

func init() {
	goalsCmd.AddCommand(listGoalsCmd)
	goalsCmd.AddCommand(scoreGoalsCmd)
	goalsCmd.AddCommand(nextGoalsCmd)

	listGoalsCmd.Flags().Uint(flagProjectID, 0, "Project ID")
	scoreGoalsCmd.Flags().Uint(flagProjectID, 0, "Project ID")
	nextGoalsCmd.Flags().Uint(flagProjectID, 0, "Project ID")
	nextGoalsCmd.Flags().IntP(flagCount, "n", 3, "Number of goals to return")
}

// GetGoalsCmd returns the goals command group
func GetGoalsCmd() *cobra.Command {
	return goalsCmd
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage and prioritize goals",
}

var listGoalsCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's goals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		goals, err := apiClient.ListGoals(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error listing goals: %w", err)
		}
		return printJSON(goals)
	},
}

var scoreGoalsCmd = &cobra.Command{
	Use:   "score",
	Short: "Re-score a project's schedulable goals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		scored, err := apiClient.ScoreGoals(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error scoring goals: %w", err)
		}
		fmt.Printf("Scored %d goals\n", scored)
		return nil
	},
}

var nextGoalsCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the prioritized next goals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		n, err := cmd.Flags().GetInt(flagCount)
		if err != nil {
			return fmt.Errorf("error getting count flag: %w", err)
		}
		goals, err := apiClient.NextGoals(context.Background(), id, n)
		if err != nil {
			return fmt.Errorf("error getting next goals: %w", err)
		}
		return printJSON(goals)
	},
}
