package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

const flagPipeline = "pipeline"

func init() {
	runsCmd.AddCommand(kickoffRunCmd)
	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(getRunCmd)

	kickoffRunCmd.Flags().Uint(flagProjectID, 0, "Project ID")
	kickoffRunCmd.Flags().StringP(flagPipeline, "p", "delivery", "Pipeline to run (delivery or ops)")
	listRunsCmd.Flags().Uint(flagProjectID, 0, "Project ID")
}

// GetRunsCmd returns the runs command group
func GetRunsCmd() *cobra.Command {
	return runsCmd
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Kick off and inspect pipeline runs",
}

var kickoffRunCmd = &cobra.Command{
	Use:   "kickoff",
	Short: "Kick off a pipeline run for a project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		pipeline, err := cmd.Flags().GetString(flagPipeline)
		if err != nil {
			return fmt.Errorf("error getting pipeline flag: %w", err)
		}
		run, err := apiClient.KickoffRun(context.Background(), id, pipeline)
		if err != nil {
			return fmt.Errorf("error kicking off run: %w", err)
		}
		return printJSON(run)
	},
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		runs, err := apiClient.ListRuns(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error listing runs: %w", err)
		}
		return printJSON(runs)
	},
}

var getRunCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Get a run by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		run, err := apiClient.GetRun(context.Background(), uint(id))
		if err != nil {
			return fmt.Errorf("error getting run: %w", err)
		}
		return printJSON(run)
	},
}
