package commands

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapseed/internal/cli/output"
	"github.com/leapstack-labs/leapseed/internal/engine"
	"github.com/spf13/cobra"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Execute bool
	Resume  bool
	OutFile string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate rows for every plan step",
		Long: `Run the plan from leapseed.yaml in one session and render the rows as SQL.

Statements are printed in execution order: INSERTs in dependency order,
UPDATEs that fill deferred foreign keys, then sequence fixers.

With --execute the statements run on the configured target in one
transaction. Sequences are read from the target first so generated ids
never collide with existing rows.

Every run is recorded in the state database unless --no-history is set.
Use --resume to continue sequences where the last completed run stopped.`,
		Example: `  # Print the SQL for the plan
  leapseed generate

  # Write the SQL to a file
  leapseed generate --out fixtures.sql

  # Insert the rows into the target database
  leapseed generate --execute

  # Continue ids after the previous run with a different seed
  leapseed generate --resume --seed batch-2`,
		Aliases: []string{"gen"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Execute, "execute", "x", false, "Execute the statements on the configured target")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "Start sequences where the last completed run stopped")
	cmd.Flags().StringVar(&opts.OutFile, "out", "", "Write the SQL to a file instead of stdout")

	return cmd
}

// GenerateOutput is the JSON form of a run.
type GenerateOutput struct {
	RunID      string         `json:"run_id,omitempty"`
	Seed       string         `json:"seed"`
	Dialect    string         `json:"dialect"`
	Executed   bool           `json:"executed"`
	Rows       map[string]int `json:"rows"`
	Statements []string       `json:"statements"`
	Warnings   []string       `json:"warnings,omitempty"`
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	res, err := cmdCtx.Engine.Generate(cmd.Context(), engine.Options{
		Execute: opts.Execute,
		Resume:  opts.Resume,
	})
	if err != nil {
		if res != nil && res.Run != nil {
			return fmt.Errorf("run %s failed: %w", res.Run.ID, err)
		}
		return err
	}

	var warnings []string
	for _, w := range res.Batch.Warnings {
		warnings = append(warnings, w.String())
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := GenerateOutput{
			Seed:       cmdCtx.Cfg.Seed,
			Dialect:    res.Dialect,
			Executed:   res.Executed,
			Rows:       res.Rows,
			Statements: res.Statements(),
			Warnings:   warnings,
		}
		if res.Run != nil {
			out.RunID = res.Run.ID
		}
		return r.JSON(out)
	}

	for _, w := range warnings {
		r.Warning(w)
	}

	if opts.OutFile != "" {
		if err := writeSQLFile(opts.OutFile, res.Statements()); err != nil {
			return err
		}
		r.Success(fmt.Sprintf("Wrote %d statements to %s", res.Batch.Len(), opts.OutFile))
	} else if !res.Executed {
		if err := writeSQL(r.Writer(), res.Statements()); err != nil {
			return fmt.Errorf("failed to write statements: %w", err)
		}
	}

	if res.Executed {
		generateSummary(r, res)
	}
	if res.Run != nil {
		r.Success(fmt.Sprintf("Run %s: %s (%d statements)", res.Run.ID, res.Run.Status, res.Batch.Len()))
	}
	return nil
}

// writeSQL writes one statement per line and stops at the first error.
func writeSQL(w io.Writer, stmts []string) error {
	for _, s := range stmts {
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}

func writeSQLFile(path string, stmts []string) error {
	f, err := os.Create(path) //nolint:gosec // path is supplied by the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeSQL(f, stmts); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// generateSummary prints rows inserted per model.
func generateSummary(r *output.Renderer, res *engine.Result) {
	models := make([]string, 0, len(res.Rows))
	for m := range res.Rows {
		models = append(models, m)
	}
	slices.Sort(models)

	rows := make([][]string, 0, len(models))
	total := 0
	for _, m := range models {
		rows = append(rows, []string{m, strconv.Itoa(res.Rows[m])})
		total += res.Rows[m]
	}

	r.Header(2, "Inserted rows")
	r.Table([]string{"Model", "Rows"}, rows)
	r.Muted(fmt.Sprintf("Total: %d rows in %s (%s)", total, strings.Join(models, ", "), res.Dialect))
}
