package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dbobject/internal/entity"
	"github.com/roach88/dbobject/internal/store"
)

// Load modes select the upsert flavor applied to each row.
const (
	ModeCreateOrUpdate = "create-or-update"
	ModeInsertOrUpdate = "insert-or-update"
	ModeFindOrCreate   = "find-or-create"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Mode       string
	IgnoreNone bool
	IgnoreZero bool

	// Set when the flag was given; otherwise the mode's default applies.
	ignoreNoneSet bool
	ignoreZeroSet bool
}

// LoadSummary reports what a load did.
type LoadSummary struct {
	Table   string `json:"table"`
	Mode    string `json:"mode"`
	Rows    int    `json:"rows"`
	Created int    `json:"created,omitempty"`
	Session string `json:"session"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <table> <file>",
		Short: "Upsert rows from a YAML or JSON file",
		Long: `Read a list of rows from a YAML (or JSON) file and upsert each into
the table. All rows are applied in one session: either every row lands or
none does.

Modes:
  create-or-update  match on the match columns, update or insert (default);
                    null values overwrite unless --ignore-none is given
  insert-or-update  insert, updating the existing row on a match conflict;
                    null values are skipped unless --ignore-none=false
  find-or-create    keep existing rows, insert only the missing ones

Example:
  dbobject load heart_rate readings.yaml
  dbobject load steps steps.json --mode find-or-create`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", ModeCreateOrUpdate, "upsert mode (create-or-update|insert-or-update|find-or-create)")
	cmd.Flags().BoolVar(&opts.IgnoreNone, "ignore-none", false, "keep stored values where the row has null (default depends on mode)")
	cmd.Flags().BoolVar(&opts.IgnoreZero, "ignore-zero", false, "keep stored values where the row has zero")
	return cmd
}

func runLoad(opts *LoadOptions, table, file string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	switch opts.Mode {
	case ModeCreateOrUpdate, ModeInsertOrUpdate, ModeFindOrCreate:
	default:
		return formatter.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("unknown mode %q", opts.Mode), nil)
	}
	opts.ignoreNoneSet = cmd.Flags().Changed("ignore-none")
	opts.ignoreZeroSet = cmd.Flags().Changed("ignore-zero")

	rows, err := readRows(file)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("cannot read rows from %s", file), err)
	}

	ctx := commandContext(cmd)
	env, err := opts.openEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := env.Table(table)
	if err != nil {
		return err
	}

	summary := LoadSummary{Table: table, Mode: opts.Mode, Rows: len(rows)}
	err = env.Store.WithSession(ctx, func(s *store.Session) error {
		summary.Session = s.ID()
		created, err := applyRows(ctx, s, t, rows, opts)
		summary.Created = created
		return err
	})
	if err != nil {
		return operationError(fmt.Sprintf("load into %s failed, no rows were written", table), err)
	}
	env.Log.Infow("rows loaded", "table", table, "mode", opts.Mode, "rows", summary.Rows, "session", summary.Session)

	return formatter.Result(summary, func(w io.Writer) {
		if opts.Mode == ModeFindOrCreate {
			fmt.Fprintf(w, "✓ Loaded %d row(s) into %s (%d created)\n", summary.Rows, table, summary.Created)
			return
		}
		fmt.Fprintf(w, "✓ Loaded %d row(s) into %s\n", summary.Rows, table)
	})
}

// applyRows upserts rows within s and returns how many were created by
// find-or-create.
func applyRows(ctx context.Context, s *store.Session, t *entity.Table, rows []map[string]any, opts *LoadOptions) (int, error) {
	var upsertOpts []entity.UpsertOption
	if opts.ignoreNoneSet {
		upsertOpts = append(upsertOpts, entity.IgnoreNone(opts.IgnoreNone))
	}
	if opts.ignoreZeroSet {
		upsertOpts = append(upsertOpts, entity.IgnoreZero(opts.IgnoreZero))
	}
	created := 0
	for i, row := range rows {
		var err error
		switch opts.Mode {
		case ModeCreateOrUpdate:
			_, err = t.CreateOrUpdate(ctx, s, row, upsertOpts...)
		case ModeInsertOrUpdate:
			_, err = t.InsertOrUpdate(ctx, s, row, upsertOpts...)
		case ModeFindOrCreate:
			var isNew bool
			_, isNew, err = t.FindOrCreate(ctx, s, row)
			if isNew {
				created++
			}
		}
		if err != nil {
			return created, errors.Wrapf(err, "row %d", i+1)
		}
	}
	return created, nil
}

// readRows decodes a YAML sequence of mappings. JSON arrays parse too.
func readRows(file string) ([]map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
