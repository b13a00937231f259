package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemaplane/pkg/api"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants",
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new tenant",
	Long: `Register a new tenant with the controller.

The response contains the tenant's API key. It is returned exactly once
and cannot be recovered later, so store it somewhere safe.

Example:
  schemactl tenant create --name "acme" --schema "acme_prod"`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		schema, _ := flags.GetString("schema")
		dsn, _ := flags.GetString("dsn")

		url := viper.GetString("url")

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}

		if schema == "" {
			cmd.Println("Error: --schema is required")
			return
		}

		client := NewClient(url, "")
		req := api.CreateTenantRequest{
			Name:        name,
			SchemaName:  schema,
			DatabaseDSN: dsn,
		}

		result, err := client.CreateTenant(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Tenant created!\nID: %s\nName: %s\n", result.ID, result.Name)
		cmd.Printf("API Key: %s\n", result.ApiKey)
		cmd.Println("Store this key now. It will not be shown again.")
	},
}

func init() {
	flags := tenantCreateCmd.Flags()
	flags.StringP("name", "n", "", "Name of the tenant (required)")
	flags.StringP("schema", "s", "", "Database schema the tenant operates on (required)")
	flags.String("dsn", "", "Connection string for the tenant's database (optional)")

	tenantCmd.AddCommand(tenantCreateCmd)
	rootCmd.AddCommand(tenantCmd)
}
