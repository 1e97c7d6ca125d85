package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/dbobject/internal/version"
)

// VersionInfo is the JSON form of the version command.
type VersionInfo struct {
	Program string `json:"program"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Go      string `json:"go"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the version and check the Go runtime",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			log, err := rootOpts.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			version.Log(log, version.Program)
			if err := version.CheckRuntime(log, version.Program, version.RequiredGo, version.TestedGo); err != nil {
				return WrapExitError(ExitFailure, "unsupported runtime", err)
			}

			info := VersionInfo{
				Program: version.Program,
				Version: version.Version,
				Commit:  version.CommitHash,
				Go:      runtime.Version(),
			}
			return formatter.Result(info, func(w io.Writer) {
				version.Display(w, version.Program)
				if rootOpts.Verbose {
					fmt.Fprintf(w, "commit %s, built with %s\n", info.Commit, info.Go)
				}
			})
		},
	}
}
