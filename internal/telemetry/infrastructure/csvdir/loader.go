package csvdir

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	telemetry "cement-cloud/internal/telemetry/domain"
)

// SourceNames is the fixed cohort of measurement series, in merge order.
var SourceNames = []string{"clinker", "energy", "fuel_mix", "utilities"}

// ErrSourceMissing reports an absent source file.
var ErrSourceMissing = errors.New("csvdir: source file missing")

// Loader reads the CSV source cohort from one data directory. Sources
// are static for the process lifetime; no reload or retry.
type Loader struct {
	dir string
}

// NewLoader constructs a loader over a data directory.
func NewLoader(dir string) (*Loader, error) {
	if dir == "" {
		return nil, errors.New("csvdir: empty data directory")
	}
	return &Loader{dir: dir}, nil
}

// KnownSource reports whether name belongs to the fixed cohort.
func KnownSource(name string) bool {
	for _, source := range SourceNames {
		if source == name {
			return true
		}
	}
	return false
}

// LoadAll loads every source in the cohort. Any missing or unreadable
// file fails the whole load; the caller degrades to the empty timeline.
func (l *Loader) LoadAll() ([]telemetry.Series, error) {
	series := make([]telemetry.Series, 0, len(SourceNames))
	for _, name := range SourceNames {
		s, err := l.LoadSource(name)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, nil
}

// LoadSource loads one named source. Returns ErrSourceMissing (wrapped)
// when the file does not exist.
func (l *Loader) LoadSource(name string) (telemetry.Series, error) {
	if !KnownSource(name) {
		return telemetry.Series{}, fmt.Errorf("csvdir: unknown source %q", name)
	}

	path := filepath.Join(l.dir, name+".csv")
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return telemetry.Series{}, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return telemetry.Series{}, fmt.Errorf("csvdir: open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return telemetry.Series{}, fmt.Errorf("csvdir: read header %s: %w", path, err)
	}

	rows := make([]map[string]string, 0)
	for {
		fields, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return telemetry.Series{}, fmt.Errorf("csvdir: read %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, column := range header {
			row[column] = fields[i]
		}
		rows = append(rows, row)
	}

	return telemetry.Series{Name: name, Columns: header, Rows: rows}, nil
}
