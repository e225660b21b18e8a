package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	proofsCmd.AddCommand(listProofsCmd)
	listProofsCmd.Flags().Uint(flagProjectID, 0, "Project ID")
}

// GetProofsCmd returns the proofs command group
func GetProofsCmd() *cobra.Command {
	return proofsCmd
}

var proofsCmd = &cobra.Command{
	Use:   "proofs",
	Short: "Inspect the evidence attached to jobs",
}

var listProofsCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's proofs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		proofs, err := apiClient.ListProofs(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error listing proofs: %w", err)
		}
		return printJSON(proofs)
	},
}
