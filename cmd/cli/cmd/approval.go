package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemaplane/pkg/api"
)

var requestApprovalCmd = &cobra.Command{
	Use:   "request-approval [group_id]",
	Short: "Send a draft group to the admin review queue",
	Long: `Move a draft operation group into the review queue. The group stops
accepting new operations and waits for an admin decision.

Example:
  schemactl request-approval 3f8a... --description "add note column to orders"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		groupID := args[0]
		description, _ := cmd.Flags().GetString("description")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API key not found. Please set it using the --token flag or the SCHEMAPLANE_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		result, err := client.RequestApproval(groupID, api.RequestApprovalRequest{Description: description})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Approval requested!\nGroup: %s\nStatus: %s\n", result.GroupID, result.Status)
	},
}

func init() {
	requestApprovalCmd.Flags().StringP("description", "d", "", "Description shown to the reviewing admin")

	rootCmd.AddCommand(requestApprovalCmd)
}
