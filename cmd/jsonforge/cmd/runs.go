package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/jsonforge/internal/core/db"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent runs from the run journal",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().String("db-url", "", "database URL (sqlite://path or postgres://...)")
	runsCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	database, err := openJournalDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	journal, err := db.NewJournal(database)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := journal.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	counts, err := journal.CountByState(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tSTATE\tAPPLIED\tSTOPPED BY\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%dms\t%s\n",
			r.ID, r.CreatedAt, r.State, r.Applied, r.StoppedBy, r.DurationMs, r.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	for _, c := range counts {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", c.State, c.Total)
	}
	return nil
}
