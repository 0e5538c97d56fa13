package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/leapstack-labs/cardformula/internal/cli/output"
	"github.com/leapstack-labs/cardformula/internal/engine"
	"github.com/leapstack-labs/cardformula/pkg/display"
	"github.com/leapstack-labs/cardformula/pkg/formula"
	"github.com/spf13/cobra"
)

// EvalOutput is the JSON form of the eval command.
type EvalOutput struct {
	RunID      string           `json:"run_id"`
	Levels     [][]string       `json:"levels"`
	Cards      []EvalCard       `json:"cards"`
	Aggregates map[string]any   `json:"aggregates"`
	Skipped    []CheckDiagnosis `json:"skipped,omitempty"`
}

// EvalCard holds the formatted formula values of one card. Null values are nil.
type EvalCard struct {
	Number int            `json:"number"`
	Values map[string]any `json:"values"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "eval [property...]",
		Short: "Evaluate formulas in memory",
		Long: `Evaluate every formula and aggregate of the project in dependency order
and print the results per card.

Invalid properties are skipped with a warning. Name properties to limit the
output to them; everything is still evaluated.`,
		Example: `  # Evaluate all formulas
  cardformula eval

  # Show only two formulas
  cardformula eval Remaining "Follow Up"

  # Output as JSON
  cardformula eval --output json

  # Re-evaluate whenever the project file changes
  cardformula eval --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runEvalWatch(cmd, args)
			}
			return runEval(cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-evaluate when the project file changes")

	return cmd
}

// runEvalWatch evaluates once and again after every change to the project file.
// Evaluation errors are reported and watching continues.
func runEvalWatch(cmd *cobra.Command, names []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer
	project := cmdCtx.Cfg.Project

	evaluate := func() {
		if err := runEval(cmd, names); err != nil {
			r.Warnf("%v", err)
		}
	}

	evaluate()
	cmdCtx.Logger.Info("watching for changes", "project", project)
	return watchFile(ctx, project, watchDebounce, func() {
		cmdCtx.Logger.Info("project changed, re-evaluating", "project", project)
		evaluate()
	})
}

func runEval(cmd *cobra.Command, names []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	formulas, aggregates, err := selectProperties(eng, names)
	if err != nil {
		return err
	}

	ev, err := eng.Evaluate(cmd.Context())
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	f := eng.Formatter()
	cards := eng.Collection().Cards()

	if r.EffectiveMode() == output.ModeJSON {
		out := EvalOutput{
			RunID:      ev.RunID,
			Levels:     ev.Levels,
			Cards:      make([]EvalCard, 0, len(cards)),
			Aggregates: make(map[string]any, len(aggregates)),
		}
		for _, c := range cards {
			values := make(map[string]any, len(formulas))
			for _, name := range formulas {
				values[name] = jsonValue(f, ev.Values[name][c.Number])
			}
			out.Cards = append(out.Cards, EvalCard{Number: c.Number, Values: values})
		}
		for _, name := range aggregates {
			out.Aggregates[name] = jsonValue(f, ev.Aggregates[name])
		}
		for _, d := range ev.Skipped {
			out.Skipped = append(out.Skipped, CheckDiagnosis(d))
		}
		return r.JSON(out)
	}

	for _, d := range ev.Skipped {
		r.Warnf("skipped %s: %s", d.Property, joinErrors(d.Errors))
	}

	if len(formulas) > 0 {
		r.Header(1, "Formulas")
		header := append([]string{"Card"}, formulas...)
		rows := make([][]string, 0, len(cards))
		for _, c := range cards {
			row := []string{strconv.Itoa(c.Number)}
			for _, name := range formulas {
				row = append(row, f.Format(ev.Values[name][c.Number]))
			}
			rows = append(rows, row)
		}
		r.Table(header, rows)
	}

	if len(aggregates) > 0 {
		r.Println("")
		r.Header(1, "Aggregates")
		rows := make([][]string, 0, len(aggregates))
		for _, name := range aggregates {
			rows = append(rows, []string{name, f.Format(ev.Aggregates[name])})
		}
		r.Table([]string{"Property", "Value"}, rows)
	}

	r.Println("")
	r.Println(r.Styles().Muted.Render(fmt.Sprintf("Evaluated %d properties over %d cards in %s (run %s)",
		ev.Formulas(), len(cards), ev.Duration.Round(time.Microsecond), ev.RunID)))
	return nil
}

// selectProperties splits the requested computed properties into formulas and
// aggregates, in collection order. No names selects all of them.
func selectProperties(eng *engine.Engine, names []string) (formulas, aggregates []string, err error) {
	coll := eng.Collection()
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		def, ok := coll.Property(name)
		if !ok {
			return nil, nil, fmt.Errorf("property %q does not exist", name)
		}
		if !def.IsFormulaic() && !def.IsAggregate() {
			return nil, nil, fmt.Errorf("property %s is not a formula or aggregate", def.Name())
		}
		wanted[def.Name()] = true
	}

	for _, def := range coll.Formulas() {
		if len(names) == 0 || wanted[def.Name()] {
			formulas = append(formulas, def.Name())
		}
	}
	for _, def := range coll.Aggregates() {
		if len(names) == 0 || wanted[def.Name()] {
			aggregates = append(aggregates, def.Name())
		}
	}
	return formulas, aggregates, nil
}

func jsonValue(f *display.Formatter, v formula.Primitive) any {
	if v == nil || formula.IsNull(v) {
		return nil
	}
	return f.Format(v)
}
