package cmd

import (
	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute [group_id]",
	Short: "Execute an approved group",
	Long: `Run all operations of an approved group against the tenant's database.

Operations run in submission order. A failing operation is recorded and
execution continues with the next one; the group completes only when
every operation succeeded.

Example:
  schemactl execute 3f8a...`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		groupID := args[0]

		client := adminClient(cmd)
		if client == nil {
			return
		}

		result, err := client.ExecuteGroup(groupID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		icon := statusIcon(result.Status)
		cmd.Printf("%s Group %s finished: %s\n", icon, result.GroupID, colorizeStatus(result.Status))
		cmd.Printf("%d total, %d succeeded, %d failed\n",
			result.TotalOperations, result.SuccessfulOperations, result.FailedOperations)

		for _, op := range result.Results {
			cmd.Printf("%s %s\n", statusIcon(op.Status), op.Name)
			if op.SQL != "" {
				cmd.Printf("   %s%s%s\n", colorDim, op.SQL, colorReset)
			}
			if op.Message != "" && op.Status == "failed" {
				cmd.Printf("   %s%s%s\n", colorRed, op.Message, colorReset)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(executeCmd)
}
