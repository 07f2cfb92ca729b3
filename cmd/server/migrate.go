// cmd/server/migrate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclebandit/audience-campaigns/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

var printSchema bool

func init() {
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "print the schema instead of applying it")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if printSchema {
		fmt.Fprint(cmd.OutOrStdout(), db.Schema())
		return nil
	}

	cfg, _, err := bootstrap()
	if err != nil {
		return err
	}

	conn, err := db.Open(cmd.Context(), cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(cmd.Context(), conn); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
	return nil
}
