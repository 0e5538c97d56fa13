package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/cardformula/internal/state"
	"github.com/leapstack-labs/cardformula/pkg/card"
	"github.com/leapstack-labs/cardformula/pkg/formula"
	"golang.org/x/sync/errgroup"
)

// Evaluation is the outcome of evaluating every computed property in memory.
type Evaluation struct {
	RunID string
	// Levels lists the properties evaluated together, in order.
	Levels [][]string
	// Values holds formula results by property name and card number.
	Values map[string]map[int]formula.Primitive
	// Aggregates holds aggregate results by property name.
	Aggregates map[string]formula.Primitive
	// Skipped lists the computed properties that failed validation. Their values
	// are cleared.
	Skipped  []Diagnostic
	Duration time.Duration
}

// Formulas returns the number of computed properties that were evaluated.
func (ev *Evaluation) Formulas() int {
	return len(ev.Values) + len(ev.Aggregates)
}

// levelResult is what one goroutine computed for one property.
type levelResult struct {
	def       *card.PropertyDefinition
	values    map[int]formula.Primitive
	aggregate formula.Primitive
}

// Evaluate computes every valid formula and aggregate for every card, in
// dependency order, and stores the results on the collection. The run is recorded
// in the history when a state store is configured.
func (e *Engine) Evaluate(ctx context.Context) (*Evaluation, error) {
	run, err := e.startRun(ctx, state.RunKindEvaluate, "memory")
	if err != nil {
		return nil, err
	}

	ev, err := e.evaluate(ctx)
	if err != nil {
		e.failRun(ctx, run, err)
		return nil, err
	}
	ev.RunID = run.ID

	stats := state.RunStats{Formulas: ev.Formulas(), Cards: len(e.collection.Cards())}
	e.completeRun(ctx, run, state.RunStatusCompleted, stats, "")

	e.logger.Info("evaluation completed",
		"run_id", ev.RunID,
		"formulas", stats.Formulas,
		"cards", stats.Cards,
		"skipped", len(ev.Skipped),
		"duration", ev.Duration)
	return ev, nil
}

func (e *Engine) evaluate(ctx context.Context) (*Evaluation, error) {
	start := time.Now()
	e.collection.ResolveTypes()

	ev := &Evaluation{
		Values:     make(map[string]map[int]formula.Primitive),
		Aggregates: make(map[string]formula.Primitive),
	}

	// invalid properties keep no stale values
	for _, def := range e.computed() {
		d, bad := e.diagnose(def)
		if !bad {
			continue
		}
		ev.Skipped = append(ev.Skipped, d)
		e.clear(def)
		e.logger.Warn("skipping invalid property", "property", def.Name(), "errors", d.Errors)
	}

	g := e.evaluationGraph()
	levels, err := g.Levels()
	if err != nil {
		return nil, fmt.Errorf("failed to order formulas: %w", err)
	}
	ev.Levels = levels

	cards := e.collection.Cards()
	for i, level := range levels {
		e.logger.Debug("evaluating level", "level", i, "properties", level)

		results, err := e.evaluateLevel(ctx, g, level, cards)
		if err != nil {
			return nil, err
		}
		// apply only after the whole level ran, so no goroutine reads a value
		// that is being written
		for _, r := range results {
			e.apply(r, cards)
			if r.def.IsAggregate() {
				ev.Aggregates[r.def.Name()] = r.aggregate
			} else {
				ev.Values[r.def.Name()] = r.values
			}
		}
	}

	ev.Duration = time.Since(start)
	return ev, nil
}

// evaluateLevel computes the properties of one level concurrently. Every formula
// tree is used by a single goroutine because binding mutates its leaves.
func (e *Engine) evaluateLevel(ctx context.Context, g *depGraph, level []string, cards []*card.Card) ([]levelResult, error) {
	results := make([]levelResult, len(level))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i, id := range level {
		node, ok := g.Node(id)
		if !ok {
			return nil, fmt.Errorf("property %q missing from graph", id)
		}
		def := node.Data

		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.evaluateProperty(def, cards)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) evaluateProperty(def *card.PropertyDefinition, cards []*card.Card) (levelResult, error) {
	r := levelResult{def: def}
	if def.IsAggregate() {
		sum, err := e.collection.Aggregate(def)
		if err != nil {
			return r, err
		}
		r.aggregate = sum
		return r, nil
	}

	expr := def.Formula()
	r.values = make(map[int]formula.Primitive, len(cards))
	for _, c := range cards {
		v, err := formula.Evaluate(expr, c)
		if err != nil {
			return r, fmt.Errorf("formula %s, card #%d: %w", def.Name(), c.Number, err)
		}
		r.values[c.Number] = v
	}
	return r, nil
}

func (e *Engine) apply(r levelResult, cards []*card.Card) {
	if r.def.IsAggregate() {
		e.collection.SetAggregateValue(r.def, r.aggregate)
		return
	}
	for _, c := range cards {
		v := r.values[c.Number]
		if formula.IsNull(v) {
			c.SetValue(r.def, nil)
			continue
		}
		c.SetValue(r.def, v)
	}
}

// clear removes every stored value of a computed property.
func (e *Engine) clear(def *card.PropertyDefinition) {
	if def.IsAggregate() {
		e.collection.SetAggregateValue(def, formula.Null{})
		return
	}
	for _, c := range e.collection.Cards() {
		c.SetValue(def, nil)
	}
}

// startRun records the start of a run. Without a state store the run only gets
// an ID.
func (e *Engine) startRun(ctx context.Context, kind state.RunKind, target string) (*state.Run, error) {
	if e.store == nil {
		return &state.Run{
			ID:        uuid.New().String(),
			Kind:      kind,
			Project:   e.project,
			Target:    target,
			Status:    state.RunStatusRunning,
			StartedAt: time.Now(),
		}, nil
	}
	run, err := e.store.CreateRun(ctx, kind, e.project, target)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

func (e *Engine) completeRun(ctx context.Context, run *state.Run, status state.RunStatus, stats state.RunStats, errMsg string) {
	if e.store == nil {
		return
	}
	if err := e.store.CompleteRun(ctx, run.ID, status, stats, errMsg); err != nil {
		e.logger.Warn("failed to complete run", "run_id", run.ID, "error", err)
	}
}

func (e *Engine) failRun(ctx context.Context, run *state.Run, err error) {
	e.completeRun(ctx, run, state.RunStatusFailed, state.RunStats{}, err.Error())
}
