package commands

import (
	"github.com/leapstack-labs/cardformula/internal/cli/output"
	"github.com/leapstack-labs/cardformula/internal/engine"
	"github.com/leapstack-labs/cardformula/pkg/dialect"
	"github.com/spf13/cobra"
)

// SQLOutput is the JSON form of the sql command.
type SQLOutput struct {
	Property string `json:"property"`
	Dialect  string `json:"dialect"`
	SQL      string `json:"sql"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand() *cobra.Command {
	var opts engine.SQLOptions

	cmd := &cobra.Command{
		Use:   "sql <property>",
		Short: "Compile a formula to SQL",
		Long: `Print the SQL expression that computes a formula property.

The expression uses the dialect of the configured target unless --dialect is
given. Column references are qualified with --table when set.`,
		Example: `  # Compile for the configured target
  cardformula sql Remaining

  # Compile for PostgreSQL with qualified columns
  cardformula sql "Follow Up" --dialect postgres --table cards

  # Replace aggregate references with their current values
  cardformula sql Share --inline-aggregates`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (default: the target's)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Table that qualifies column references")
	cmd.Flags().BoolVar(&opts.CastToInteger, "integer", false, "Round the result to an integer")
	cmd.Flags().BoolVar(&opts.InlineAggregates, "inline-aggregates", false, "Evaluate aggregates and inline their values")

	_ = cmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runSQL(cmd *cobra.Command, name string, opts engine.SQLOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	sql, err := eng.CompileSQL(cmd.Context(), name, opts)
	if err != nil {
		return err
	}

	dialectName := opts.Dialect
	if dialectName == "" && eng.GetDialect() != nil {
		dialectName = eng.GetDialect().GetName()
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		def, _ := eng.Collection().Property(name)
		return r.JSON(SQLOutput{Property: def.Name(), Dialect: dialectName, SQL: sql})
	case output.ModeMarkdown:
		r.Printf("```sql\n%s\n```\n", sql)
	default:
		r.Println(sql)
	}
	cmdCtx.Logger.Debug("compiled formula", "property", name, "dialect", dialectName)
	return nil
}
