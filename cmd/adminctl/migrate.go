package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"studio/admin/internal/config"
	"studio/admin/internal/docstore/backend"
	"studio/admin/internal/docstore/pgstore"
)

// migrateCmd applies the embedded Postgres migrations.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations (postgres backend)",
	Long: `Applies every embedded migration that has not run yet against
DATABASE_URL. The admin server applies them on start as well; this command
exists for deploys that run migrations as a separate step.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if driver := strings.ToLower(cfg.DocstoreDriver); driver != backend.DriverPostgres && driver != "pg" {
		return fmt.Errorf("migrate needs DOCSTORE_DRIVER=postgres, got %q", cfg.DocstoreDriver)
	}

	db, err := pgstore.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := pgstore.ApplyMigrations(cmd.Context(), db, pgstore.Migrations()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}
