package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "schemactl",
	Short: "Schemactl is a command line tool for interacting with the schemaplane platform",
	Long: `schemactl is the command-line interface for the SchemaPlane multi-tenant
schema change platform.

SchemaPlane batches schema-changing operations (DDL) into groups that go
through a draft / review / approval lifecycle before an executor applies
them to the tenant's database. Data operations (DML) execute instantly
under the tenant's credentials.

Common workflows:

  Create a tenant (returns the API key exactly once):
    schemactl tenant create --name "acme" --schema "acme_prod"

  Submit a DDL operation (joins the open draft group):
    schemactl submit --kind ALTER_TABLE --table orders --payload '{"add_column":{"name":"note","type":"TEXT"}}'

  Send the draft for review:
    schemactl request-approval <group-id> --description "add note column"

  Check a group:
    schemactl status <group-id>

  Admin review and execution:
    schemactl pending
    schemactl approve <group-id> --notes "lgtm"
    schemactl execute <group-id>

  Run a read-only query:
    schemactl query "SELECT id, email FROM users WHERE id < 100"

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    SCHEMAPLANE_URL             API endpoint (default: http://localhost:6161)
    SCHEMAPLANE_TOKEN           Tenant API key for authentication
    SCHEMAPLANE_ADMIN_SECRET    Shared secret for admin commands
    SCHEMAPLANE_ADMIN_USER      Acting principal recorded on admin decisions`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".schemactl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".schemactl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SCHEMAPLANE_VARNAME"
	viper.SetEnvPrefix("SCHEMAPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.schemactl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "SchemaPlane Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Tenant API key for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.PersistentFlags().String("admin-secret", "", "Shared secret for admin commands")
	viper.BindPFlag("admin_secret", rootCmd.PersistentFlags().Lookup("admin-secret"))

	rootCmd.PersistentFlags().String("admin-user", "", "Acting principal for admin commands")
	viper.BindPFlag("admin_user", rootCmd.PersistentFlags().Lookup("admin-user"))
}
