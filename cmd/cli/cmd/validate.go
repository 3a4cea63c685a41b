package cmd

import (
	"castplane/pkg/api"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an upload against your plan limits",
	Long:  `Ask the controller whether a file of the given size (and optional duration in seconds) may be uploaded on your current plan.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(cmd)
		if client == nil {
			return
		}

		size, _ := cmd.Flags().GetInt64("size")
		req := api.ValidateUploadRequest{FileSize: size}
		if cmd.Flags().Changed("duration") {
			d, _ := cmd.Flags().GetFloat64("duration")
			req.Duration = &d
		}

		if err := client.ValidateUpload(req); err != nil {
			cmd.Printf("Upload rejected: %s\n", err)
			return
		}
		cmd.Println("Upload allowed.")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Int64("size", 0, "File size in bytes")
	validateCmd.Flags().Float64("duration", 0, "Duration in seconds")
	validateCmd.MarkFlagRequired("size")
}
