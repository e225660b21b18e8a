package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/atelierhq/atelier/internal/types"
)

// Flag names
const (
	flagKind    = "kind"
	flagPayload = "payload"
	flagStatus  = "status"
)

func init() {
	jobsCmd.AddCommand(enqueueJobCmd)
	jobsCmd.AddCommand(listJobsCmd)
	jobsCmd.AddCommand(getJobCmd)

	enqueueJobCmd.Flags().Uint(flagProjectID, 0, "Project ID")
	enqueueJobCmd.Flags().StringP(flagKind, "k", "", "Job kind (e.g. build, ops.diff)")
	enqueueJobCmd.Flags().StringP(flagPayload, "p", "", "Job payload as JSON")
	if err := enqueueJobCmd.MarkFlagRequired(flagKind); err != nil {
		panic(fmt.Errorf("failed to mark kind flag as required for enqueue job command: %w", err))
	}

	listJobsCmd.Flags().Uint(flagProjectID, 0, "Project ID")
	listJobsCmd.Flags().String(flagStatus, "", "Filter by status (queued, running, done, failed)")
}

// GetJobsCmd returns the jobs command group
func GetJobsCmd() *cobra.Command {
	return jobsCmd
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Enqueue and inspect jobs",
}

var enqueueJobCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue a job for a project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		kind, err := cmd.Flags().GetString(flagKind)
		if err != nil {
			return fmt.Errorf("error getting kind flag: %w", err)
		}
		payload, err := cmd.Flags().GetString(flagPayload)
		if err != nil {
			return fmt.Errorf("error getting payload flag: %w", err)
		}

		req := types.EnqueueJobRequest{Kind: kind}
		if payload != "" {
			if !json.Valid([]byte(payload)) {
				return fmt.Errorf("payload is not valid JSON")
			}
			req.Payload = json.RawMessage(payload)
		}

		job, err := apiClient.EnqueueJob(context.Background(), id, req)
		if err != nil {
			return fmt.Errorf("error enqueueing job: %w", err)
		}
		return printJSON(job)
	},
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		status, err := cmd.Flags().GetString(flagStatus)
		if err != nil {
			return fmt.Errorf("error getting status flag: %w", err)
		}
		jobs, err := apiClient.ListJobs(context.Background(), id, status)
		if err != nil {
			return fmt.Errorf("error listing jobs: %w", err)
		}
		return printJSON(jobs)
	},
}

var getJobCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Get a job by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid job id %q: %w", args[0], err)
		}
		job, err := apiClient.GetJob(context.Background(), uint(id))
		if err != nil {
			return fmt.Errorf("error getting job: %w", err)
		}
		return printJSON(job)
	},
}
