package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/cardformula/internal/cli/output"
	"github.com/leapstack-labs/cardformula/internal/engine"
	"github.com/leapstack-labs/cardformula/internal/state"
	"github.com/spf13/cobra"
)

// HistoryRun is a run in the JSON form of the history command.
type HistoryRun struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Project     string     `json:"project"`
	Target      string     `json:"target"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Formulas    int        `json:"formulas"`
	Cards       int        `json:"cards"`
	Mismatches  int        `json:"mismatches"`
	Error       string     `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent evaluation and verification runs",
		Long: `List the runs recorded in the state database, newest first.

With --run, show the mismatches recorded for one verification run.`,
		Example: `  # Show the last 10 runs
  cardformula history

  # Show the mismatches of a run
  cardformula history --run 3f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID != "" {
				return runHistoryResults(cmd, runID)
			}
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the recorded mismatches of a run")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	runs, err := cmdCtx.Engine.History(cmd.Context(), limit)
	if errors.Is(err, engine.ErrNoHistory) {
		return fmt.Errorf("%w: set state_path or --state", err)
	}
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]HistoryRun, 0, len(runs))
		for _, run := range runs {
			out = append(out, historyRun(run))
		}
		return r.JSON(out)
	}

	if len(runs) == 0 {
		r.Println("(no runs)")
		return nil
	}

	r.Header(1, "Runs")
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			string(run.Kind),
			run.Target,
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(run.Stats.Formulas),
			strconv.Itoa(run.Stats.Mismatches),
		})
	}
	r.Table([]string{"Run", "Kind", "Target", "Status", "Started", "Duration", "Properties", "Mismatches"}, rows)
	return nil
}

func runHistoryResults(cmd *cobra.Command, runID string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	results, err := cmdCtx.Engine.RunResults(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]engine.Mismatch, 0, len(results))
		for _, res := range results {
			out = append(out, engine.Mismatch{
				Property: res.Property,
				Card:     res.CardNumber,
				Expected: res.Expected,
				Actual:   res.Actual,
			})
		}
		return r.JSON(out)
	}

	if len(results) == 0 {
		r.Println("(no mismatches)")
		return nil
	}
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{res.Property, strconv.Itoa(res.CardNumber), res.Expected, res.Actual})
	}
	r.Table([]string{"Property", "Card", "Expected", "Database"}, rows)
	return nil
}

func historyRun(run *state.Run) HistoryRun {
	return HistoryRun{
		ID:          run.ID,
		Kind:        string(run.Kind),
		Project:     run.Project,
		Target:      run.Target,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Formulas:    run.Stats.Formulas,
		Cards:       run.Stats.Cards,
		Mismatches:  run.Stats.Mismatches,
		Error:       run.Error,
	}
}
