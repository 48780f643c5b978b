package telemetry

import (
	"errors"
	"fmt"
	"strconv"
)

// JoinKey is the shared timestamp column every source series carries.
const JoinKey = "timestamp"

// Series is one loaded tabular source. Rows share the column set and,
// by merge invariant, the same length as every other series.
type Series struct {
	Name    string
	Columns []string
	Rows    []map[string]string
}

// Record is one merged telemetry row. Numeric fields hold float64,
// everything else keeps its raw string form. Records are shared
// read-only after the timeline is built; callers must not mutate them.
type Record map[string]any

// Float returns the field as float64 when it parsed as numeric.
func (r Record) Float(key string) (float64, bool) {
	value, ok := r[key].(float64)
	return value, ok
}

// Timeline is the immutable, ordered sequence of merged records for one
// process lifetime. The zero value is the "data unavailable" state.
type Timeline struct {
	fields  []string
	records []Record
}

// Len returns the number of records.
func (t Timeline) Len() int { return len(t.records) }

// Available reports whether any data was loaded.
func (t Timeline) Available() bool { return len(t.records) > 0 }

// Fields returns the merged column names in join order.
func (t Timeline) Fields() []string { return t.fields }

// At returns the record at index i.
func (t Timeline) At(i int) Record { return t.records[i] }

// Latest returns the most recent record.
func (t Timeline) Latest() (Record, bool) {
	if len(t.records) == 0 {
		return nil, false
	}
	return t.records[len(t.records)-1], true
}

// Tail returns the last n records (fewer when the timeline is shorter).
func (t Timeline) Tail(n int) []Record {
	if n <= 0 || len(t.records) == 0 {
		return nil
	}
	if n > len(t.records) {
		n = len(t.records)
	}
	return t.records[len(t.records)-n:]
}

// MeanOver returns the mean of a numeric field over the last n records.
// Non-numeric values are skipped; ok is false when none were numeric.
func (t Timeline) MeanOver(n int, field string) (float64, bool) {
	var sum float64
	var count int
	for _, record := range t.Tail(n) {
		if value, ok := record.Float(field); ok {
			sum += value
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// Merge joins equal-length series into one timeline. Each record i is
// the union of every series' i-th row; the shared join key is kept once
// from the first series that carries it. Unequal row counts and
// non-join column collisions are load-time errors.
func Merge(series ...Series) (Timeline, error) {
	if len(series) == 0 {
		return Timeline{}, errors.New("telemetry: no series to merge")
	}

	length := len(series[0].Rows)
	for _, s := range series[1:] {
		if len(s.Rows) != length {
			return Timeline{}, fmt.Errorf("telemetry: series %q has %d rows, %q has %d",
				s.Name, len(s.Rows), series[0].Name, length)
		}
	}

	fields := make([]string, 0)
	owner := make(map[string]string)
	for _, s := range series {
		for _, column := range s.Columns {
			if prev, seen := owner[column]; seen {
				if column == JoinKey {
					continue
				}
				return Timeline{}, fmt.Errorf("telemetry: column %q in series %q collides with series %q",
					column, s.Name, prev)
			}
			owner[column] = s.Name
			fields = append(fields, column)
		}
	}

	records := make([]Record, length)
	for i := 0; i < length; i++ {
		record := make(Record, len(fields))
		for _, s := range series {
			for _, column := range s.Columns {
				if _, exists := record[column]; exists {
					continue
				}
				record[column] = CoerceValue(s.Rows[i][column])
			}
		}
		records[i] = record
	}

	return Timeline{fields: fields, records: records}, nil
}

// CoerceValue parses a raw cell as float64, falling back to the original
// string when it is not numeric. A failed parse is not an error.
func CoerceValue(raw string) any {
	if value, err := strconv.ParseFloat(raw, 64); err == nil {
		return value
	}
	return raw
}
