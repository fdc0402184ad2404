package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/solatis/jsonforge/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the run journal schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	migrateCmd.PersistentFlags().String("db-url", "", "database URL (sqlite://path or postgres://...)")
}

func openJournalDB(cmd *cobra.Command) (*sqlx.DB, error) {
	cfg, _, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("--db-url required")
	}
	return db.Open(cmd.Context(), cfg.DB.URL)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	database, err := openJournalDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.MigrateUp(cmd.Context(), database); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	database, err := openJournalDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(cmd.Context(), database)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT\tDURATION")
	for _, s := range statuses {
		if !s.Applied {
			fmt.Fprintf(w, "%s\tpending\t\t\n", s.ID)
			continue
		}
		at := ""
		if s.AppliedAt != nil {
			at = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\tapplied\t%s\t%dms\n", s.ID, at, s.ExecutionMs)
	}
	return w.Flush()
}
