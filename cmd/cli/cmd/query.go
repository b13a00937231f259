package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemaplane/pkg/api"
)

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run a read-only SQL query",
	Long: `Run a single SELECT statement against the tenant's database.

The statement is validated before execution: only SELECT is allowed, and
a row limit is applied when the query has none.

Example:
  schemactl query "SELECT id, email FROM users WHERE created_at > '2026-01-01'"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sql := args[0]

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API key not found. Please set it using the --token flag or the SCHEMAPLANE_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		result, err := client.RawQuery(api.RawQueryRequest{SQL: sql})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		printRows(cmd, result)
	},
}

func printRows(cmd *cobra.Command, result *api.RawQueryResponse) {
	if len(result.Columns) > 0 {
		cmd.Println(strings.Join(result.Columns, "\t"))
	}
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = *cell
			}
		}
		cmd.Println(strings.Join(cells, "\t"))
	}
	cmd.Printf("\n%d row(s)\n", len(result.Rows))
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
