package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atelierhq/atelier/internal/types"
)

// Flag names
const (
	flagName        = "name"
	flagDescription = "description"
	flagPrompt      = "prompt"
)

func init() {
	projectsCmd.AddCommand(createProjectCmd)
	projectsCmd.AddCommand(getProjectCmd)
	projectsCmd.AddCommand(listProjectsCmd)
	projectsCmd.AddCommand(planProjectCmd)

	createProjectCmd.Flags().StringP(flagName, "n", "", "Project name")
	createProjectCmd.Flags().StringP(flagDescription, "d", "", "Project description")
	createProjectCmd.Flags().StringP(flagPrompt, "p", "", "Project prompt for the planner")
	if err := createProjectCmd.MarkFlagRequired(flagName); err != nil {
		panic(fmt.Errorf("failed to mark name flag as required for create project command: %w", err))
	}

	getProjectCmd.Flags().Uint(flagProjectID, 0, "Project ID")
	planProjectCmd.Flags().Uint(flagProjectID, 0, "Project ID")
}

// GetProjectsCmd returns the projects command group
func GetProjectsCmd() *cobra.Command {
	return projectsCmd
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects",
}

var createProjectCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return fmt.Errorf("error getting name flag: %w", err)
		}
		description, err := cmd.Flags().GetString(flagDescription)
		if err != nil {
			return fmt.Errorf("error getting description flag: %w", err)
		}
		prompt, err := cmd.Flags().GetString(flagPrompt)
		if err != nil {
			return fmt.Errorf("error getting prompt flag: %w", err)
		}

		project, err := apiClient.CreateProject(context.Background(), types.CreateProjectRequest{
			Name:        name,
			Description: description,
			Prompt:      prompt,
		})
		if err != nil {
			return fmt.Errorf("error creating project: %w", err)
		}
		return printJSON(project)
	},
}

var getProjectCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a project by ID",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		project, err := apiClient.GetProject(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error getting project: %w", err)
		}
		return printJSON(project)
	},
}

var listProjectsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(_ *cobra.Command, _ []string) error {
		projects, err := apiClient.ListProjects(context.Background())
		if err != nil {
			return fmt.Errorf("error listing projects: %w", err)
		}
		return printJSON(projects)
	},
}

var planProjectCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a project's goals from its prompt",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getProjectID(cmd)
		if err != nil {
			return err
		}
		goals, err := apiClient.PlanProject(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error planning project: %w", err)
		}
		return printJSON(goals)
	},
}
