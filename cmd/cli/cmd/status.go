package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemaplane/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [group_id]",
	Short: "Get status of an operation group",
	Long:  `Retrieve detailed status information for an operation group, including its lifecycle state (draft, pending_approval, approved, running, completed, failed, ...), its operations in execution order, and per-operation outcomes.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		groupID := args[0]

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API key not found. Please set it using the --token flag or the SCHEMAPLANE_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		group, err := client.GetGroup(groupID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		printGroup(cmd, group)
	},
}

func printGroup(cmd *cobra.Command, group *api.GroupResponse) {
	icon := statusIcon(group.Status)
	cmd.Printf("%s %sGroup Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s          %s\n", colorDim, colorReset, group.ID)
	cmd.Printf("%sName:%s        %s\n", colorDim, colorReset, group.Name)
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeStatus(group.Status))

	if group.Description != "" {
		cmd.Printf("%sDescription:%s %s\n", colorDim, colorReset, group.Description)
	}
	if group.ApprovedBy != nil {
		cmd.Printf("%sApproved by:%s %s\n", colorDim, colorReset, *group.ApprovedBy)
	}
	if group.AdminNotes != "" {
		cmd.Printf("%sNotes:%s       %s\n", colorDim, colorReset, group.AdminNotes)
	}

	cmd.Printf("%sCreated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&group.CreatedAt))
	if group.StartedAt != nil && group.CompletedAt != nil {
		duration := group.CompletedAt.Sub(*group.StartedAt)
		cmd.Printf("%sFinished:%s    %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(group.CompletedAt),
			colorCyan, formatDuration(duration), colorReset)
	} else if group.StartedAt != nil {
		cmd.Printf("%sStarted:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(group.StartedAt))
	}

	if group.Summary != nil {
		s := group.Summary
		cmd.Printf("%sOperations:%s  %d total, %d success, %d failed, %d draft\n",
			colorDim, colorReset, s.Total, s.Success, s.Failed, s.Draft)
	}

	if len(group.Operations) > 0 {
		cmd.Println("──────────────────────────────")
		for _, op := range group.Operations {
			cmd.Printf("%2d. %s %s %s(%s)%s\n", op.ExecutionOrder, statusIcon(op.Status), op.Name, colorDim, op.Kind, colorReset)
			if op.SQLPreview != "" {
				cmd.Printf("    %s%s%s\n", colorDim, op.SQLPreview, colorReset)
			}
			if op.Error != nil {
				cmd.Printf("    %s%s%s\n", colorRed, *op.Error, colorReset)
			}
		}
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "completed", "success", "approved":
		return colorGreen + "✓" + colorReset
	case "failed", "rejected":
		return colorRed + "✗" + colorReset
	case "running":
		return colorYellow + "⏳" + colorReset
	case "draft", "queued", "pending_approval":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "completed", "success", "approved":
		return icon + " " + colorGreen + status + colorReset
	case "failed", "rejected":
		return icon + " " + colorRed + status + colorReset
	case "running":
		return icon + " " + colorYellow + status + colorReset
	case "draft", "queued", "pending_approval":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
