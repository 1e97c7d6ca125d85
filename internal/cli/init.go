package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dbobject/internal/config"
	"github.com/roach88/dbobject/internal/entity"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	WriteConfig bool
}

// InitResult describes what init created.
type InitResult struct {
	Database string   `json:"database"`
	Config   string   `json:"config,omitempty"`
	Tables   []string `json:"tables"`
	Views    []string `json:"views"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create tables and declared views",
		Long: `Create every table of the schema, the unique index over its match
columns and the views it declares. Existing tables and views are kept.

Example:
  dbobject init --write-config
  dbobject init --db ./health.db --schema ./schema`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.WriteConfig, "write-config", false, "write a default config file first")
	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	result := InitResult{}

	if opts.WriteConfig {
		path := opts.ConfigPath
		if path == "" {
			path = config.FileName
		}
		if _, err := os.Stat(path); err == nil {
			formatter.VerboseLog("Config %s exists, leaving it alone", path)
		} else if err := config.WriteDefault(path); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write config", err)
		} else {
			result.Config = path
			formatter.VerboseLog("Wrote %s", path)
		}
	}

	ctx := commandContext(cmd)
	env, err := opts.openEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := entity.Setup(ctx, env.Store); err != nil {
		return operationError("failed to create views", err)
	}

	result.Database = env.Config.Database.Path
	for _, rt := range env.Types {
		result.Tables = append(result.Tables, rt.Table)
		for _, vd := range rt.Views {
			name := vd.Name
			if name == "" {
				name = rt.Table + "_view"
			}
			result.Views = append(result.Views, name)
		}
	}

	return formatter.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Initialized %d table(s) and %d view(s) in %s\n",
			len(result.Tables), len(result.Views), result.Database)
		if opts.Verbose {
			for _, t := range result.Tables {
				fmt.Fprintf(w, "  table %s\n", t)
			}
			for _, v := range result.Views {
				fmt.Fprintf(w, "  view  %s\n", v)
			}
		}
	})
}
