package telemetry

import (
	"strings"
	"testing"
)

func threeSeries() []Series {
	return []Series{
		{
			Name:    "clinker",
			Columns: []string{"timestamp", "quality"},
			Rows: []map[string]string{
				{"timestamp": "2022-01-01 00:00:00", "quality": "41.5"},
				{"timestamp": "2022-01-01 01:00:00", "quality": "39.2"},
				{"timestamp": "2022-01-01 02:00:00", "quality": "36.8"},
			},
		},
		{
			Name:    "energy",
			Columns: []string{"timestamp", "spc", "co2"},
			Rows: []map[string]string{
				{"timestamp": "2022-01-01 00:00:00", "spc": "860.11", "co2": "17.5"},
				{"timestamp": "2022-01-01 01:00:00", "spc": "901.40", "co2": "19.1"},
				{"timestamp": "2022-01-01 02:00:00", "spc": "955.02", "co2": "23.4"},
			},
		},
		{
			Name:    "fuel_mix",
			Columns: []string{"timestamp", "tsr"},
			Rows: []map[string]string{
				{"timestamp": "2022-01-01 00:00:00", "tsr": "24.0"},
				{"timestamp": "2022-01-01 01:00:00", "tsr": "28.3"},
				{"timestamp": "2022-01-01 02:00:00", "tsr": "31.1"},
			},
		},
	}
}

func TestMergeUnionOfFields(t *testing.T) {
	timeline, err := Merge(threeSeries()...)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if timeline.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", timeline.Len())
	}

	wantFields := []string{"timestamp", "quality", "spc", "co2", "tsr"}
	gotFields := timeline.Fields()
	if len(gotFields) != len(wantFields) {
		t.Fatalf("expected fields %v, got %v", wantFields, gotFields)
	}
	for i, field := range wantFields {
		if gotFields[i] != field {
			t.Fatalf("expected fields %v, got %v", wantFields, gotFields)
		}
	}

	for i := 0; i < timeline.Len(); i++ {
		record := timeline.At(i)
		if len(record) != len(wantFields) {
			t.Fatalf("record %d has %d fields, want %d", i, len(record), len(wantFields))
		}
		for _, field := range wantFields {
			if _, ok := record[field]; !ok {
				t.Fatalf("record %d missing field %q", i, field)
			}
		}
	}

	if spc, ok := timeline.At(2).Float("spc"); !ok || spc != 955.02 {
		t.Fatalf("expected spc 955.02, got %v (%v)", spc, ok)
	}
	if ts, ok := timeline.At(0)["timestamp"].(string); !ok || ts != "2022-01-01 00:00:00" {
		t.Fatalf("expected timestamp kept as string, got %v", timeline.At(0)["timestamp"])
	}
}

func TestMergeRejectsRowCountMismatch(t *testing.T) {
	series := threeSeries()
	series[1].Rows = series[1].Rows[:2]

	_, err := Merge(series...)
	if err == nil {
		t.Fatal("expected error for unequal row counts")
	}
	if !strings.Contains(err.Error(), "energy") {
		t.Fatalf("expected mismatching series in error, got %v", err)
	}
}

func TestMergeRejectsColumnCollision(t *testing.T) {
	series := threeSeries()
	series[2].Columns = []string{"timestamp", "spc"}
	for _, row := range series[2].Rows {
		row["spc"] = row["tsr"]
	}

	_, err := Merge(series...)
	if err == nil {
		t.Fatal("expected error for colliding non-join column")
	}
	if !strings.Contains(err.Error(), "spc") {
		t.Fatalf("expected colliding column in error, got %v", err)
	}
}

func TestMergeKeepsRawStringOnParseFailure(t *testing.T) {
	series := threeSeries()
	series[1].Rows[1]["spc"] = "N/A"

	timeline, err := Merge(series...)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if value, ok := timeline.At(1)["spc"].(string); !ok || value != "N/A" {
		t.Fatalf("expected raw string N/A, got %v", timeline.At(1)["spc"])
	}
	if _, ok := timeline.At(1).Float("spc"); ok {
		t.Fatal("expected Float to report non-numeric")
	}
}

func TestTimelineWindows(t *testing.T) {
	timeline, err := Merge(threeSeries()...)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	latest, ok := timeline.Latest()
	if !ok {
		t.Fatal("expected latest record")
	}
	if tsr, _ := latest.Float("tsr"); tsr != 31.1 {
		t.Fatalf("expected latest tsr 31.1, got %v", tsr)
	}

	tail := timeline.Tail(2)
	if len(tail) != 2 {
		t.Fatalf("expected 2 tail records, got %d", len(tail))
	}
	if tail[0]["timestamp"] != "2022-01-01 01:00:00" {
		t.Fatalf("unexpected tail start: %v", tail[0]["timestamp"])
	}

	mean, ok := timeline.MeanOver(20, "spc")
	if !ok {
		t.Fatal("expected numeric mean")
	}
	want := (860.11 + 901.40 + 955.02) / 3
	if diff := mean - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected mean %v, got %v", want, mean)
	}
}

func TestEmptyTimelineIsUnavailable(t *testing.T) {
	var timeline Timeline
	if timeline.Available() {
		t.Fatal("zero timeline must be unavailable")
	}
	if _, ok := timeline.Latest(); ok {
		t.Fatal("expected no latest record")
	}
	if _, ok := timeline.MeanOver(5, "spc"); ok {
		t.Fatal("expected no mean")
	}
}
