package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dbobject/internal/entity"
	"github.com/roach88/dbobject/internal/schema"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Period string
	Date   string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats <table>",
		Short: "Compute the declared statistics of a table for one period",
		Long: `Compute the statistics a record type declares over a day, a week,
a month or a year.

The period starts at --date: the day itself, the seven days from it, the
calendar month from it, or the 365 days from January 1 of its year.

Example:
  dbobject stats heart_rate --period day --date 2024-03-01
  dbobject stats sleep --period week --date 2024-03-04 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Period, "period", "day", "period (day|week|month|year)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "first day of the period, YYYY-MM-DD (default today)")
	return cmd
}

func runStats(opts *StatsOptions, table string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	day := time.Now()
	if opts.Date != "" {
		d, err := schema.ParseTemporal(schema.Date, opts.Date)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("invalid date %q", opts.Date), err)
		}
		day = d
	}
	switch opts.Period {
	case "day", "week", "month", "year":
	default:
		return formatter.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("unknown period %q", opts.Period), nil)
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
	fn, err := t.DeclaredStats()
	if err != nil {
		return operationError("invalid statistics", err)
	}
	if len(t.RecordType().Stats) == 0 {
		formatter.VerboseLog("Table %s declares no statistics", table)
	}

	var stats entity.Stats
	switch opts.Period {
	case "day":
		stats, err = t.DailyStats(ctx, nil, fn, day)
	case "week":
		stats, err = t.WeeklyStats(ctx, nil, fn, day)
	case "month":
		stats, err = t.MonthlyStats(ctx, nil, fn, day, day.AddDate(0, 1, 0))
	case "year":
		stats, err = t.YearlyStats(ctx, nil, fn, day.Year())
	}
	if err != nil {
		return operationError("failed to compute statistics", err)
	}

	out := make(map[string]any, len(stats))
	for k, v := range stats {
		out[k] = statValue(v)
	}
	return formatter.Result(out, func(w io.Writer) {
		keys := make([]string, 0, len(out))
		for k := range out {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", k, formatStat(out[k]))
		}
	})
}

// statValue converts times to text: dates, times of day and datetimes each
// keep only the fields they carry.
func statValue(v any) any {
	ts, ok := v.(time.Time)
	if !ok {
		return v
	}
	switch {
	case ts.Year() == 0:
		return ts.Format("15:04:05")
	case ts.Equal(time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())):
		return ts.Format(schema.DateLayout)
	}
	return ts.Format("2006-01-02 15:04:05")
}

func formatStat(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
