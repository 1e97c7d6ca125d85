package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

// Storage layouts. Temporal values are stored as naive wall-clock text of
// fixed width so that text comparison orders them chronologically.
const (
	DateTimeLayout = "2006-01-02 15:04:05.000000"
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05.000000"
)

// Midnight is the zero time-of-day. Time columns decode to a time.Time on
// 0000-01-01 UTC, the same convention time.Parse uses for time-only input.
var Midnight = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	DateLayout,
}

var timeLayouts = []string{
	"15:04:05.999999999",
	"15:04",
}

// Encode converts v to the value bound as a statement parameter for a
// column of type t. Nil stays nil.
func Encode(t ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case Integer:
		return toInt64(t, v)
	case Real:
		return toFloat64(t, v)
	case Text:
		s, err := toString(t, v)
		if err != nil {
			return nil, err
		}
		return norm.NFC.String(s), nil
	case Boolean:
		return toBool(t, v)
	case Blob:
		return toBytes(t, v)
	case Date, Time, DateTime:
		tm, err := toTime(t, v)
		if err != nil {
			return nil, err
		}
		return tm.Format(layoutFor(t)), nil
	}
	return nil, errors.Wrapf(ErrInvalidType, "%q", t)
}

// Decode converts a value scanned from the driver into the in-memory
// representation for a column of type t: int64, float64, string, bool,
// []byte or time.Time. Nil stays nil.
func Decode(t ColumnType, src any) (any, error) {
	if src == nil {
		return nil, nil
	}
	switch t {
	case Integer:
		if f, ok := src.(float64); ok && f != math.Trunc(f) {
			return f, nil
		}
		return toInt64(t, src)
	case Real:
		return toFloat64(t, src)
	case Text:
		if tm, ok := src.(time.Time); ok {
			return tm.Format(DateTimeLayout), nil
		}
		return toString(t, src)
	case Boolean:
		return toBool(t, src)
	case Blob:
		return toBytes(t, src)
	case Date, Time, DateTime:
		return toTime(t, src)
	}
	return nil, errors.Wrapf(ErrInvalidType, "%q", t)
}

// Coerce normalizes a caller-supplied value to the in-memory representation
// of column type t, exactly as a store round trip would.
func Coerce(t ColumnType, v any) (any, error) {
	enc, err := Encode(t, v)
	if err != nil {
		return nil, err
	}
	return Decode(t, enc)
}

// ParseTemporal parses s as a value of temporal column type t.
func ParseTemporal(t ColumnType, s string) (time.Time, error) {
	return toTime(t, s)
}

// IsZeroValue reports whether v compares equal to zero. False counts as
// zero; strings and nil do not.
func IsZeroValue(v any) bool {
	switch n := v.(type) {
	case bool:
		return !n
	case int:
		return n == 0
	case int8:
		return n == 0
	case int16:
		return n == 0
	case int32:
		return n == 0
	case int64:
		return n == 0
	case uint:
		return n == 0
	case uint8:
		return n == 0
	case uint16:
		return n == 0
	case uint32:
		return n == 0
	case uint64:
		return n == 0
	case float32:
		return n == 0
	case float64:
		return n == 0
	}
	return false
}

// FormatValue renders v for textual record output.
func FormatValue(t ColumnType, v any) string {
	if v == nil {
		return "NULL"
	}
	switch x := v.(type) {
	case time.Time:
		if t.IsTemporal() {
			return strconv.Quote(x.Format(layoutFor(t)))
		}
		return strconv.Quote(x.Format(DateTimeLayout))
	case string:
		return strconv.Quote(x)
	case []byte:
		return fmt.Sprintf("x'%x'", x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func layoutFor(t ColumnType) string {
	switch t {
	case Date:
		return DateLayout
	case Time:
		return TimeLayout
	}
	return DateTimeLayout
}

func invalid(t ColumnType, v any) error {
	return errors.Wrapf(ErrInvalidValue, "%v (%T) as %s", v, v, t)
}

func toInt64(t ColumnType, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, invalid(t, v)
		}
		return int64(n), nil
	case float32:
		return toInt64(t, float64(n))
	case float64:
		if n != math.Trunc(n) {
			return 0, invalid(t, v)
		}
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, invalid(t, v)
		}
		return i, nil
	case []byte:
		return toInt64(t, string(n))
	}
	return 0, invalid(t, v)
}

func toFloat64(t ColumnType, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, invalid(t, v)
		}
		return f, nil
	case []byte:
		return toFloat64(t, string(n))
	case bool:
		return 0, invalid(t, v)
	}
	i, err := toInt64(t, v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

func toString(t ColumnType, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case int:
		return strconv.Itoa(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	}
	return "", invalid(t, v)
}

func toBool(t ColumnType, v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		p, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, invalid(t, v)
		}
		return p, nil
	case []byte:
		return toBool(t, string(b))
	}
	i, err := toInt64(t, v)
	if err != nil {
		return false, err
	}
	return i != 0, nil
}

func toBytes(t ColumnType, v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return append([]byte(nil), b...), nil
	case string:
		return []byte(b), nil
	}
	return nil, invalid(t, v)
}

func toTime(t ColumnType, v any) (time.Time, error) {
	var tm time.Time
	switch x := v.(type) {
	case time.Time:
		tm = x
	case string:
		parsed, err := parseTime(t, strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, invalid(t, v)
		}
		tm = parsed
	case []byte:
		return toTime(t, string(x))
	case int64:
		tm = time.Unix(x, 0).UTC()
	default:
		return time.Time{}, invalid(t, v)
	}
	return normalizeTime(t, tm), nil
}

func parseTime(t ColumnType, s string) (time.Time, error) {
	layouts := dateTimeLayouts
	if t == Time {
		layouts = timeLayouts
		// A full timestamp given for a time column keeps its clock part.
		if len(s) > len("15:04:05.000000") || strings.ContainsAny(s, "-T") {
			layouts = dateTimeLayouts
		}
	}
	var lastErr error
	for _, layout := range layouts {
		tm, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return tm, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// normalizeTime strips the zone (keeping wall clock) and truncates to the
// precision of the storage layout for t.
func normalizeTime(t ColumnType, tm time.Time) time.Time {
	ns := tm.Nanosecond() - tm.Nanosecond()%1000
	switch t {
	case Date:
		return time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC)
	case Time:
		return time.Date(0, time.January, 1, tm.Hour(), tm.Minute(), tm.Second(), ns, time.UTC)
	}
	return time.Date(tm.Year(), tm.Month(), tm.Day(), tm.Hour(), tm.Minute(), tm.Second(), ns, time.UTC)
}
