package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemaplane/pkg/api"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a schema or data operation",
	Long: `Submit a single operation to the platform.

Schema-changing kinds (CREATE_TABLE, ALTER_TABLE, DROP_TABLE, CREATE_INDEX,
DROP_INDEX, ADD_FOREIGN_KEY, DROP_FOREIGN_KEY) join the tenant's open draft
group and wait for approval. Data kinds (SELECT, INSERT, UPDATE, DELETE)
execute instantly.

Examples:
  schemactl submit --kind ALTER_TABLE --table orders \
    --payload '{"drop_column":{"name":"legacy_flag"}}'

  schemactl submit --kind INSERT --table users \
    --payload '{"values":{"id":1,"email":"a@b.com"}}'

  schemactl submit --kind CREATE_INDEX --table users --payload-file index.json`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		kind, _ := flags.GetString("kind")
		table, _ := flags.GetString("table")
		schema, _ := flags.GetString("schema")
		caseID, _ := flags.GetString("case")
		payloadStr, _ := flags.GetString("payload")
		payloadFile, _ := flags.GetString("payload-file")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API key not found. Please set it using the --token flag or the SCHEMAPLANE_TOKEN environment variable")
			return
		}

		if kind == "" {
			cmd.Println("Error: --kind is required")
			return
		}

		if table == "" {
			cmd.Println("Error: --table is required")
			return
		}

		payload := []byte(payloadStr)
		if payloadFile != "" {
			data, err := os.ReadFile(payloadFile)
			if err != nil {
				cmd.Printf("Error reading payload file: %v\n", err)
				return
			}
			payload = data
		}
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		if !json.Valid(payload) {
			cmd.Println("Error: payload is not valid JSON")
			return
		}

		client := NewClient(url, token)
		req := api.CreateOperationRequest{
			CaseID:     caseID,
			Kind:       kind,
			SchemaName: schema,
			TableName:  table,
			Payload:    payload,
		}

		result, err := client.SubmitOperation(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Operation submitted!\nID: %s\nName: %s\nStatus: %s\n", result.OperationID, result.Name, result.Status)
		if result.GroupID != "" {
			cmd.Printf("Group: %s\n", result.GroupID)
		}
		if result.SQLPreview != "" {
			cmd.Printf("SQL: %s\n", result.SQLPreview)
		}
		if len(result.Result) > 0 {
			cmd.Printf("Result: %s\n", string(result.Result))
		}
	},
}

func init() {
	flags := submitCmd.Flags()
	flags.StringP("kind", "k", "", "Operation kind, e.g. ALTER_TABLE or INSERT (required)")
	flags.String("table", "", "Target table name (required)")
	flags.String("schema", "", "Target schema (defaults to the tenant's schema)")
	flags.String("case", "", "Operation case (defaults to 'default')")
	flags.StringP("payload", "p", "", "Operation payload as inline JSON")
	flags.String("payload-file", "", "Read the payload from a JSON file")

	rootCmd.AddCommand(submitCmd)
}
