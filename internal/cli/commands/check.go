package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/cardformula/internal/cli/output"
	"github.com/leapstack-labs/cardformula/internal/engine"
	"github.com/spf13/cobra"
)

// CheckOutput is the JSON form of the check command.
type CheckOutput struct {
	Properties int              `json:"properties"`
	Valid      bool             `json:"valid"`
	Problems   []CheckDiagnosis `json:"problems"`
}

// CheckDiagnosis describes one invalid property.
type CheckDiagnosis struct {
	Property string   `json:"property"`
	Formula  string   `json:"formula,omitempty"`
	Errors   []string `json:"errors"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate every formula and aggregate",
		Long: `Validate the formula and aggregate properties of the project.

A formula is invalid when it references unknown or non-numeric properties,
misuses predefined properties, depends on itself, or combines types that have
no meaning together, such as multiplying dates.

Exits with an error when any property is invalid.`,
		Example: `  # Check the project in the current directory
  cardformula check

  # Check another project file
  cardformula check --project sprint.yaml

  # Output as JSON
  cardformula check --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}
	return cmd
}

func runCheck(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer
	diags := eng.Check()
	computed := len(eng.Collection().Formulas()) + len(eng.Collection().Aggregates())

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := CheckOutput{Properties: computed, Valid: len(diags) == 0, Problems: []CheckDiagnosis{}}
		for _, d := range diags {
			out.Problems = append(out.Problems, CheckDiagnosis(d))
		}
		if err := r.JSON(out); err != nil {
			return err
		}
	default:
		checkText(r, diags, computed)
	}

	if len(diags) > 0 {
		return fmt.Errorf("%d of %d computed properties are invalid", len(diags), computed)
	}
	return nil
}

func checkText(r *output.Renderer, diags []engine.Diagnostic, computed int) {
	styles := r.Styles()
	if len(diags) == 0 {
		if r.EffectiveMode() == output.ModeMarkdown {
			r.Println(output.FormatKeyValue("Valid", fmt.Sprintf("%d of %d", computed, computed)))
			return
		}
		r.Println(styles.Success.Render(fmt.Sprintf("All %d computed properties are valid.", computed)))
		return
	}

	r.Header(1, "Invalid properties")
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		rows = append(rows, []string{d.Property, d.Formula, joinErrors(d.Errors)})
	}
	r.Table([]string{"Property", "Formula", "Problem"}, rows)
}

func joinErrors(errs []string) string {
	return strings.Join(errs, " ")
}
