package cmd

import (
	"encoding/json"
	"errors"

	"castplane/pkg/api"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an uploaded file as a new project",
	Long: `Create a project for a file that has already been uploaded to blob storage.
Processing starts immediately with the outputs your current plan includes.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(cmd)
		if client == nil {
			return
		}

		fileURL, _ := cmd.Flags().GetString("file-url")
		name, _ := cmd.Flags().GetString("name")
		size, _ := cmd.Flags().GetInt64("size")
		mime, _ := cmd.Flags().GetString("mime")

		req := api.CreateProjectRequest{
			FileURL:  fileURL,
			FileName: name,
			FileSize: size,
			MimeType: mime,
		}
		if cmd.Flags().Changed("duration") {
			d, _ := cmd.Flags().GetFloat64("duration")
			req.FileDuration = &d
		}

		resp, err := client.CreateProject(req)
		if err != nil {
			// The project exists even when processing could not be started.
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				if id := createdID(apiErr); id != "" {
					cmd.Printf("Project %s created, but processing did not start: %s\n", id, apiErr.Message)
					cmd.Printf("Run 'castctl generate %s' to try again.\n", id)
					return
				}
			}
			cmd.Printf("Error creating project: %s\n", err)
			return
		}

		cmd.Println("Project created successfully!")
		cmd.Printf("Project ID: %s\n", resp.ProjectID)
	},
}

func createdID(apiErr *APIError) string {
	var resp api.CreateProjectResponse
	if err := json.Unmarshal(apiErr.Body, &resp); err != nil {
		return ""
	}
	return resp.ProjectID
}

func init() {
	rootCmd.AddCommand(createCmd)

	// The global --url flag is the controller address, so the file location
	// is taken from --file-url.
	createCmd.Flags().String("file-url", "", "Blob URL of the uploaded file")
	createCmd.Flags().StringP("name", "n", "", "Original file name")
	createCmd.Flags().Int64("size", 0, "File size in bytes")
	createCmd.Flags().String("mime", "", "MIME type, e.g. audio/mpeg")
	createCmd.Flags().Float64("duration", 0, "Duration in seconds")

	createCmd.MarkFlagRequired("file-url")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("size")
	createCmd.MarkFlagRequired("mime")
}
