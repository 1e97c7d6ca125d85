package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ViewsResult lists the views a command touched.
type ViewsResult struct {
	Table  string   `json:"table"`
	Action string   `json:"action"`
	Views  []string `json:"views"`
}

// NewViewsCommand creates the views command group.
func NewViewsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Create or drop the views a table declares",
	}
	cmd.AddCommand(newViewsCreateCommand(rootOpts))
	cmd.AddCommand(newViewsDeleteCommand(rootOpts))
	return cmd
}

func newViewsCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "create <table>",
		Short:         "Create the declared views of a table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			ctx := commandContext(cmd)
			env, err := opts.openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			t, err := env.Table(args[0])
			if err != nil {
				return err
			}
			if err := t.CreateDeclaredViews(ctx, nil); err != nil {
				return operationError("failed to create views", err)
			}

			res := ViewsResult{Table: args[0], Action: "created", Views: []string{}}
			for _, vd := range t.RecordType().Views {
				name := vd.Name
				if name == "" {
					name = t.DefaultViewName()
				}
				res.Views = append(res.Views, name)
			}
			return formatter.Result(res, writeViews(res))
		},
	}
}

func newViewsDeleteCommand(opts *RootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "delete <table>",
		Short: "Drop the declared views of a table, or one named view",
		Long: `Drop the views a table declares. With --name, drop only that view;
a view that does not exist is not an error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			ctx := commandContext(cmd)
			env, err := opts.openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			t, err := env.Table(args[0])
			if err != nil {
				return err
			}

			res := ViewsResult{Table: args[0], Action: "dropped", Views: []string{}}
			if name != "" {
				if err := t.DeleteView(ctx, nil, name); err != nil {
					return operationError("failed to drop view", err)
				}
				res.Views = append(res.Views, name)
				return formatter.Result(res, writeViews(res))
			}

			if err := t.DeleteDeclaredViews(ctx, nil); err != nil {
				return operationError("failed to drop views", err)
			}
			for _, vd := range t.RecordType().Views {
				n := vd.Name
				if n == "" {
					n = t.DefaultViewName()
				}
				res.Views = append(res.Views, n)
			}
			return formatter.Result(res, writeViews(res))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "drop only this view")
	return cmd
}

func writeViews(res ViewsResult) func(io.Writer) {
	return func(w io.Writer) {
		if len(res.Views) == 0 {
			fmt.Fprintf(w, "%s declares no views\n", res.Table)
			return
		}
		for _, v := range res.Views {
			fmt.Fprintf(w, "✓ %s view %s\n", res.Action, v)
		}
	}
}
