// Package commands implements the atelier CLI subcommands.
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atelierhq/atelier/pkg/api/v1/client"
	"github.com/atelierhq/atelier/pkg/api/v1/routes"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagProjectID     = "project"
)

// environment variable names
const (
	envServerAddress = "ATELIER_SERVER_ADDRESS"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
)

// initClient initializes the API client
func initClient() error {
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress

	var err error
	apiClient, err = client.NewClient(opts)
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s",
		routes.DefaultBaseURL, "Address of the atelier API server (env: ATELIER_SERVER_ADDRESS)")

	RootCmd.AddCommand(GetProjectsCmd())
	RootCmd.AddCommand(GetGoalsCmd())
	RootCmd.AddCommand(GetRunsCmd())
	RootCmd.AddCommand(GetJobsCmd())
	RootCmd.AddCommand(GetProofsCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Atelier CLI - a command line interface for the atelier API",
	Long:  `Atelier CLI manages projects, goals, runs, and jobs through the atelier orchestrator API.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Flag > env var > default.
		if !cmd.Flags().Changed(flagServerAddress) {
			if envAddr := os.Getenv(envServerAddress); envAddr != "" {
				serverAddress = envAddr
			}
		}
		if serverAddress == "" {
			return fmt.Errorf("server address cannot be empty")
		}
		return initClient()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// printJSON writes the value to stdout as indented JSON.
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// getProjectID reads the required --project flag.
func getProjectID(cmd *cobra.Command) (uint, error) {
	id, err := cmd.Flags().GetUint(flagProjectID)
	if err != nil {
		return 0, fmt.Errorf("error getting project flag: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("required flag \"%s\" not set", flagProjectID)
	}
	return id, nil
}
