package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemaplane/pkg/api"
)

// adminClient builds a client from the admin flags. Returns nil after
// printing an error when the credentials are missing.
func adminClient(cmd *cobra.Command) *Client {
	url := viper.GetString("url")
	secret := viper.GetString("admin_secret")
	user := viper.GetString("admin_user")

	if secret == "" {
		cmd.Println("Admin secret not found. Please set it using the --admin-secret flag or the SCHEMAPLANE_ADMIN_SECRET environment variable")
		return nil
	}
	if user == "" {
		cmd.Println("Admin user not found. Please set it using the --admin-user flag or the SCHEMAPLANE_ADMIN_USER environment variable")
		return nil
	}

	return NewAdminClient(url, secret, user)
}

func reviewRun(action string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		groupID := args[0]
		notes, _ := cmd.Flags().GetString("notes")

		client := adminClient(cmd)
		if client == nil {
			return
		}

		result, err := client.ReviewGroup(groupID, action, api.ReviewGroupRequest{Notes: notes})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if result.Applied {
			cmd.Printf("✓ Group %s is now %s\n", result.GroupID, result.Status)
		} else {
			cmd.Printf("✗ Not applied. Group %s is %s\n", result.GroupID, result.Status)
		}
	}
}

var approveCmd = &cobra.Command{
	Use:   "approve [group_id]",
	Short: "Approve a group for execution",
	Long: `Approve an operation group. A group can be approved from the review
queue, and re-approved after a failed run or an earlier rejection.

Example:
  schemactl approve 3f8a... --notes "reviewed, safe to run"`,
	Args: cobra.ExactArgs(1),
	Run:  reviewRun("approve"),
}

var rejectCmd = &cobra.Command{
	Use:   "reject [group_id]",
	Short: "Reject a group",
	Args:  cobra.ExactArgs(1),
	Run:   reviewRun("reject"),
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [group_id]",
	Short: "Cancel a group and its unexecuted operations",
	Args:  cobra.ExactArgs(1),
	Run:   reviewRun("cancel"),
}

func init() {
	for _, c := range []*cobra.Command{approveCmd, rejectCmd, cancelCmd} {
		c.Flags().String("notes", "", "Notes recorded with the decision")
		rootCmd.AddCommand(c)
	}
}
