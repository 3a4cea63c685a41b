package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename [project_id] [display_name]",
	Short: "Change a project's display name",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(cmd)
		if client == nil {
			return
		}

		if err := client.RenameProject(args[0], args[1]); err != nil {
			cmd.Printf("Error renaming project: %s\n", err)
			return
		}
		cmd.Printf("Project %s renamed to %q.\n", args[0], strings.TrimSpace(args[1]))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [project_id]",
	Short: "Delete a project and its uploaded file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(cmd)
		if client == nil {
			return
		}

		if err := client.DeleteProject(args[0]); err != nil {
			cmd.Printf("Error deleting project: %s\n", err)
			return
		}
		cmd.Printf("Project %s deleted.\n", args[0])
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [project_id]",
	Short: "Generate the outputs your current plan unlocks",
	Long: `Start generation of every output your current plan includes that the project
does not have yet, typically after upgrading your plan.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(cmd)
		if client == nil {
			return
		}

		resp, err := client.GenerateMissing(args[0])
		if resp != nil && len(resp.Generated) > 0 {
			cmd.Printf("Started: %s\n", strings.Join(resp.Generated, ", "))
		}
		if err != nil {
			var apiErr *APIError
			if resp != nil && len(resp.Failed) > 0 && errors.As(err, &apiErr) {
				cmd.Printf("Failed to start: %s\n", strings.Join(resp.Failed, ", "))
				cmd.Printf("Retry each with 'castctl retry %s <job>'.\n", args[0])
				return
			}
			cmd.Printf("Error generating features: %s\n", err)
			return
		}
		cmd.Println(resp.Message)
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [project_id] [job]",
	Short: "Re-run a single generation job",
	Long:  `Re-run one output for a project, e.g. keyMoments. The job must be included in your current plan.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(cmd)
		if client == nil {
			return
		}

		if err := client.RetryJob(args[0], args[1]); err != nil {
			cmd.Printf("Error retrying job: %s\n", err)
			return
		}
		cmd.Printf("Job %s queued for project %s.\n", args[1], args[0])
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(retryCmd)
}
