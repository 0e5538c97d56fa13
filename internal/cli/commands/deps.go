package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/cardformula/internal/cli/output"
	"github.com/leapstack-labs/cardformula/internal/engine"
	"github.com/spf13/cobra"
)

// DepsLevel is one execution level in the JSON form of the deps command.
type DepsLevel struct {
	Level      int        `json:"level"`
	Properties []DepsNode `json:"properties"`
}

// DepsNode is a computed property and what it is computed from.
type DepsNode struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"depends_on"`
}

// DepsOutput is the JSON form of the deps command for a single property.
type DepsOutput struct {
	Property   string   `json:"property"`
	Direct     []string `json:"direct"`
	All        []string `json:"all"`
	Dependents []string `json:"dependents"`
	Order      []string `json:"order"`
	Cycle      []string `json:"cycle,omitempty"`
}

// NewDepsCommand creates the deps command.
func NewDepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps [property]",
		Short: "Show formula dependencies",
		Long: `Without arguments, show the valid computed properties grouped by the level
they are evaluated in. Properties in one level are evaluated in parallel.

With a property, show what it is computed from, what is computed from it and
the order its dependencies are evaluated in.`,
		Example: `  # Show evaluation levels
  cardformula deps

  # Show the dependencies of one property
  cardformula deps "Days Left"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runDepsProperty(cmd, args[0])
			}
			return runDepsLevels(cmd)
		},
	}
	return cmd
}

func runDepsLevels(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	levels, err := eng.ExecutionLevels()
	if err != nil {
		return fmt.Errorf("failed to get execution levels: %w", err)
	}

	out := make([]DepsLevel, 0, len(levels))
	for i, level := range levels {
		dl := DepsLevel{Level: i, Properties: make([]DepsNode, 0, len(level))}
		for _, name := range level {
			deps, err := eng.Dependencies(name)
			if err != nil {
				return err
			}
			dl.Properties = append(dl.Properties, DepsNode{Name: name, DependsOn: nonNil(deps.Direct)})
		}
		out = append(out, dl)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Evaluation Levels"))
		r.Println("")
		for _, dl := range out {
			r.Println(output.FormatHeader(2, fmt.Sprintf("Level %d", dl.Level)))
			for _, p := range dl.Properties {
				r.Printf("- %s\n", p.Name)
				if len(p.DependsOn) > 0 {
					r.Printf("  - depends on: %s\n", strings.Join(p.DependsOn, ", "))
				}
			}
			r.Println("")
		}
	default:
		styles := r.Styles()
		r.Header(1, "Evaluation Levels")
		for _, dl := range out {
			r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", dl.Level)))
			for _, p := range dl.Properties {
				r.Printf("  %s\n", styles.Name.Render(p.Name))
				if len(p.DependsOn) > 0 {
					r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(p.DependsOn, ", "))
				}
			}
		}
	}
	return nil
}

func runDepsProperty(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	deps, err := cmdCtx.Engine.Dependencies(name)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(depsOutput(deps))
	}

	r.Header(1, deps.Property)
	if len(deps.Cycle) > 0 {
		r.Warnf("circular definition: %s", strings.Join(deps.Cycle, " -> "))
	}
	rows := [][]string{
		{"Computed from", listOrNone(deps.Direct)},
		{"All dependencies", listOrNone(deps.All)},
		{"Dependents", listOrNone(deps.Dependents)},
		{"Evaluation order", listOrNone(deps.Order)},
	}
	r.Table([]string{"", deps.Property}, rows)
	return nil
}

func depsOutput(d *engine.Dependencies) DepsOutput {
	return DepsOutput{
		Property:   d.Property,
		Direct:     nonNil(d.Direct),
		All:        nonNil(d.All),
		Dependents: nonNil(d.Dependents),
		Order:      nonNil(d.Order),
		Cycle:      d.Cycle,
	}
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
