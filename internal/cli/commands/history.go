package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapseed/internal/cli/output"
	"github.com/leapstack-labs/leapseed/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List the most recent generation runs recorded in the state database.

Each run keeps its seed, dialect, row counts and the sequence values it
ended with; generate --resume continues from the latest completed run.`,
		Example: `  # Show the last 20 runs
  leapseed history

  # Show the last 5 runs as JSON
  leapseed history --limit 5 --output json`,
		Aliases: []string{"runs"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cmdCtx.Engine.History(cmd.Context(), opts.Limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]output.RunInfo, 0, len(runs))
		for _, run := range runs {
			infos = append(infos, runInfo(run))
		}
		return r.JSON(infos)
	}

	r.Header(1, "Runs")
	if len(runs) == 0 {
		r.Muted("No runs recorded yet. Use 'leapseed generate' to create one.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			string(run.Status),
			run.Seed,
			run.Dialect,
			fmt.Sprintf("%d", run.TotalRows()),
			fmt.Sprintf("%d", run.Statements),
			yesNo(run.Executed),
		})
	}
	r.Table([]string{"Run", "Started", "Status", "Seed", "Dialect", "Rows", "Statements", "Executed"}, rows)

	for _, run := range runs {
		if run.Error != "" {
			r.Println("")
			r.Printf("%s %s: %s\n", r.Styles().Error.Render("failed"), shortID(run.ID), run.Error)
		}
	}
	return nil
}

func runInfo(run *state.Run) output.RunInfo {
	info := output.RunInfo{
		ID:         run.ID,
		Seed:       run.Seed,
		Dialect:    run.Dialect,
		Status:     string(run.Status),
		Statements: run.Statements,
		Executed:   run.Executed,
		Rows:       run.Rows,
		Sequences:  run.Sequences,
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		Error:      run.Error,
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return info
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
