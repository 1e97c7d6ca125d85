package harness

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a fresh store.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description says what the scenario demonstrates.
	Description string `yaml:"description"`

	// Tables lists the record types the scenario needs. Each must be among
	// the types handed to Run.
	Tables []string `yaml:"tables"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions check the trace and the final table contents.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation on one table.
type Step struct {
	// Op names the operation, see the Op constants.
	Op string `yaml:"op"`

	// Table is the target table.
	Table string `yaml:"table"`

	// Rows are the values for upsert operations, one upsert per row.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Values select the row for find_one.
	Values map[string]any `yaml:"values,omitempty"`

	// Column is the aggregated or inspected column.
	Column string `yaml:"column,omitempty"`

	// Fn is the aggregate function name.
	Fn string `yaml:"fn,omitempty"`

	// Window bounds queries by the temporal column.
	Window *WindowSpec `yaml:"window,omitempty"`

	// IgnoreLEZero drops rows whose column value is <= 0.
	IgnoreLEZero bool `yaml:"ignore_le_zero,omitempty"`

	// IgnoreNone and IgnoreZero control how upserts merge values.
	IgnoreNone *bool `yaml:"ignore_none,omitempty"`
	IgnoreZero bool  `yaml:"ignore_zero,omitempty"`

	// Period and Date select the rollup for stats.
	Period string `yaml:"period,omitempty"`
	Date   string `yaml:"date,omitempty"`

	// Expect checks the step outcome inline.
	Expect *Expect `yaml:"expect,omitempty"`
}

// WindowSpec is a half-open interval of timestamps. Either end may be
// omitted.
type WindowSpec struct {
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`
}

// Expect is the expected outcome of a step.
type Expect struct {
	// Result is compared with the rendered step result.
	Result any `yaml:"result,omitempty"`

	// Error is the expected error kind, e.g. PRECONDITION.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks the state after all steps ran.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Op is the step operation (trace_count).
	Op string `yaml:"op,omitempty"`

	// Ops is the expected operation order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Table is the inspected table (row_count, final_state).
	Table string `yaml:"table,omitempty"`

	// Where selects rows by column equality (row_count, final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds expected column values of the selected row (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of steps or rows.
	Count int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpInsert         = "insert"
	OpCreateOrUpdate = "create_or_update"
	OpInsertOrUpdate = "insert_or_update"
	OpFindOrCreate   = "find_or_create"
	OpFindOne        = "find_one"
	OpAggregate      = "aggregate"
	OpTimeOfDay      = "time_of_day"
	OpDailyMax       = "daily_max"
	OpRowCount       = "row_count"
	OpLatest         = "latest"
	OpStats          = "stats"
	OpCreateViews    = "create_views"
	OpDeleteViews    = "delete_views"
)

var knownOps = map[string]bool{
	OpInsert: true, OpCreateOrUpdate: true, OpInsertOrUpdate: true,
	OpFindOrCreate: true, OpFindOne: true, OpAggregate: true,
	OpTimeOfDay: true, OpDailyMax: true, OpRowCount: true, OpLatest: true,
	OpStats: true, OpCreateViews: true, OpDeleteViews: true,
}

// Assertion types.
const (
	AssertTraceOrder = "trace_order"
	AssertTraceCount = "trace_count"
	AssertRowCount   = "row_count"
	AssertFinalState = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Tables) == 0 {
		return errors.New("tables list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	tables := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		tables[t] = true
	}

	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return errors.Newf("steps[%d]: unknown op %q", i, step.Op)
		}
		if !tables[step.Table] {
			return errors.Newf("steps[%d]: table %q is not listed in tables", i, step.Table)
		}
		switch step.Op {
		case OpInsert, OpCreateOrUpdate, OpInsertOrUpdate, OpFindOrCreate:
			if len(step.Rows) == 0 {
				return errors.Newf("steps[%d]: rows are required for %s", i, step.Op)
			}
		case OpAggregate, OpTimeOfDay, OpDailyMax:
			if step.Column == "" || step.Fn == "" {
				return errors.Newf("steps[%d]: column and fn are required for %s", i, step.Op)
			}
		case OpLatest:
			if step.Column == "" {
				return errors.Newf("steps[%d]: column is required for latest", i)
			}
		case OpStats:
			if step.Period == "" || step.Date == "" {
				return errors.Newf("steps[%d]: period and date are required for stats", i)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return errors.Newf("assertions[%d]: type is required", index)
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return errors.Newf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return errors.Newf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return errors.Newf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRowCount:
		if a.Table == "" {
			return errors.Newf("assertions[%d]: table is required for row_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return errors.Newf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return errors.Newf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return errors.Newf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
