package cmd

import (
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List groups awaiting admin review",
	Long: `List the admin review queue: groups whose approval has been requested,
plus rejected and failed groups that can be re-approved.

Example:
  schemactl pending --limit 10`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client := adminClient(cmd)
		if client == nil {
			return
		}

		result, err := client.PendingGroups(limit, offset)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if len(result.Groups) == 0 {
			cmd.Println("Review queue is empty.")
			return
		}

		for _, group := range result.Groups {
			cmd.Printf("%s %s  %s%s%s\n", statusIcon(group.Status), group.ID, colorBold, group.Name, colorReset)
			cmd.Printf("   %sstatus:%s %s  %stenant:%s %s\n", colorDim, colorReset, group.Status, colorDim, colorReset, group.TenantID)
			if group.Description != "" {
				cmd.Printf("   %s%s%s\n", colorDim, group.Description, colorReset)
			}
		}
		cmd.Printf("\n%d group(s), limit %d offset %d\n", len(result.Groups), result.Limit, result.Offset)
	},
}

func init() {
	pendingCmd.Flags().Int("limit", 20, "Maximum number of groups to list")
	pendingCmd.Flags().Int("offset", 0, "Pagination offset")

	rootCmd.AddCommand(pendingCmd)
}
