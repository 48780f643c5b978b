package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	telemetry "cement-cloud/internal/telemetry/domain"
)

func reportTimeline(t *testing.T, rows int) telemetry.Timeline {
	t.Helper()
	energy := telemetry.Series{Name: "energy", Columns: []string{"timestamp", "spc", "co2"}}
	fuel := telemetry.Series{Name: "fuel_mix", Columns: []string{"timestamp", "tsr"}}
	clinker := telemetry.Series{Name: "clinker", Columns: []string{"timestamp", "clinker_quality"}}
	for i := 0; i < rows; i++ {
		ts := fmt.Sprintf("2022-01-01 %02d:00:00", i)
		energy.Rows = append(energy.Rows, map[string]string{
			"timestamp": ts, "spc": strconv.Itoa(800 + i), "co2": "17.5",
		})
		fuel.Rows = append(fuel.Rows, map[string]string{"timestamp": ts, "tsr": "25.0"})
		clinker.Rows = append(clinker.Rows, map[string]string{"timestamp": ts, "clinker_quality": "41.0"})
	}
	timeline, err := telemetry.Merge(clinker, energy, fuel)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	return timeline
}

func TestBuildTimelineCSV(t *testing.T) {
	timeline := reportTimeline(t, 3)
	document, err := BuildTimelineCSV(timeline)
	if err != nil {
		t.Fatalf("build csv: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(document)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
	if records[0][0] != "timestamp" || records[0][1] != "clinker_quality" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][2] != "800" {
		t.Fatalf("expected spc 800 in first row, got %v", records[1])
	}
}

func TestBuildOperationalPDF(t *testing.T) {
	timeline := reportTimeline(t, 20)
	document, err := BuildOperationalPDF(timeline, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(document, []byte("%PDF")) {
		t.Fatalf("expected PDF magic, got %q", document[:8])
	}
}

func TestBuildOperationalXLSX(t *testing.T) {
	timeline := reportTimeline(t, 5)
	document, err := BuildOperationalXLSX(timeline)
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	// XLSX is a zip container.
	if !bytes.HasPrefix(document, []byte("PK")) {
		t.Fatalf("expected zip magic, got %q", document[:4])
	}
}

func TestHandlerFormats(t *testing.T) {
	timeline := reportTimeline(t, 3)
	logger := log.New(os.Stdout, "", log.LstdFlags)
	handler, err := NewHandler(timeline, nil, logger)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	cases := []struct {
		path        string
		contentType string
	}{
		{"/reports/csv", "text/csv; charset=utf-8"},
		{"/reports/pdf", "application/pdf"},
		{"/reports/xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", tc.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != 200 {
			t.Fatalf("%s: expected 200, got %d", tc.path, rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != tc.contentType {
			t.Fatalf("%s: expected content type %q, got %q", tc.path, tc.contentType, got)
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), "cement_ai_report_") {
			t.Fatalf("%s: missing attachment filename", tc.path)
		}
	}
}

func TestHandlerUnavailable(t *testing.T) {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	handler, err := NewHandler(telemetry.Timeline{}, nil, logger)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest("GET", "/reports/csv", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 503 {
		t.Fatalf("expected 503 for empty timeline, got %d", rec.Code)
	}
}
