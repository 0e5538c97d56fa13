package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/cardformula/internal/cli/output"
	"github.com/leapstack-labs/cardformula/internal/engine"
	"github.com/spf13/cobra"
)

// VerifyOutput is the JSON form of the verify command.
type VerifyOutput struct {
	RunID      string            `json:"run_id"`
	Target     string            `json:"target"`
	OK         bool              `json:"ok"`
	Checked    int               `json:"checked"`
	Formulas   int               `json:"formulas"`
	Cards      int               `json:"cards"`
	Mismatches []engine.Mismatch `json:"mismatches"`
	Skipped    []CheckDiagnosis  `json:"skipped,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the database computes the same values",
		Long: `Evaluate the project in memory, load its cards into the target database and
run the compiled SQL of every formula and aggregate there. Every value the
database computes is compared with the in-memory result.

Formula columns are materialized level by level, so formulas that use other
formulas read database-computed values. Exits with an error on any mismatch.`,
		Example: `  # Verify against in-memory SQLite
  cardformula verify

  # Verify against DuckDB
  cardformula verify --adapter duckdb

  # Verify against the prod environment's target
  cardformula verify --target prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd)
		},
	}
	return cmd
}

func runVerify(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	report, err := cmdCtx.Engine.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := VerifyOutput{
			RunID:      report.RunID,
			Target:     report.Target,
			OK:         report.OK(),
			Checked:    report.Checked,
			Formulas:   report.Formulas,
			Cards:      report.Cards,
			Mismatches: report.Mismatches,
			DurationMS: report.Duration.Milliseconds(),
		}
		if out.Mismatches == nil {
			out.Mismatches = []engine.Mismatch{}
		}
		for _, d := range report.Skipped {
			out.Skipped = append(out.Skipped, CheckDiagnosis(d))
		}
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		verifyText(r, report)
	}

	if !report.OK() {
		return fmt.Errorf("%d values differ between memory and %s", len(report.Mismatches), report.Target)
	}
	return nil
}

func verifyText(r *output.Renderer, report *engine.VerifyReport) {
	styles := r.Styles()
	for _, d := range report.Skipped {
		r.Warnf("skipped %s: %s", d.Property, joinErrors(d.Errors))
	}

	r.Header(1, "Verification against "+report.Target)
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Run", report.RunID))
		r.Println(output.FormatKeyValue("Properties", strconv.Itoa(report.Formulas)))
		r.Println(output.FormatKeyValue("Cards", strconv.Itoa(report.Cards)))
		r.Println(output.FormatKeyValue("Values checked", strconv.Itoa(report.Checked)))
		r.Println(output.FormatKeyValue("Mismatches", strconv.Itoa(len(report.Mismatches))))
		r.Println("")
	}

	if report.OK() {
		r.Println(styles.Success.Render(fmt.Sprintf("All %d values match (%s).",
			report.Checked, report.Duration.Round(time.Millisecond))))
		return
	}

	rows := make([][]string, 0, len(report.Mismatches))
	for _, m := range report.Mismatches {
		card := "-"
		if m.Card != 0 {
			card = strconv.Itoa(m.Card)
		}
		rows = append(rows, []string{m.Property, card, m.Expected, m.Actual})
	}
	r.Table([]string{"Property", "Card", "Expected", "Database"}, rows)
	r.Println(styles.Error.Render(fmt.Sprintf("%d of %d values differ.", len(report.Mismatches), report.Checked)))
}
