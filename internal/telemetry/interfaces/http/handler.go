package telemetryhttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	telemetry "cement-cloud/internal/telemetry/domain"
	"cement-cloud/internal/telemetry/infrastructure/csvdir"
)

// SourceDataHandler serves the full raw series for one named source.
type SourceDataHandler struct {
	loader *csvdir.Loader
	logger *log.Logger
}

// NewSourceDataHandler constructs a SourceDataHandler.
func NewSourceDataHandler(loader *csvdir.Loader, logger *log.Logger) (*SourceDataHandler, error) {
	if loader == nil {
		return nil, errors.New("telemetryhttp: nil loader")
	}
	if logger == nil {
		return nil, errors.New("telemetryhttp: nil logger")
	}
	return &SourceDataHandler{loader: loader, logger: logger}, nil
}

// ServeHTTP handles GET /data/{clinker,energy,fuel_mix,utilities}.
// A missing source file yields an empty result set, not an error.
func (h *SourceDataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/data/")
	if !csvdir.KnownSource(name) {
		http.NotFound(w, r)
		return
	}

	rows := make([]map[string]any, 0)
	series, err := h.loader.LoadSource(name)
	switch {
	case errors.Is(err, csvdir.ErrSourceMissing):
		// fall through with the empty result set
	case err != nil:
		h.logger.Printf("source %s load error: %v", name, err)
		http.Error(w, "source read error", http.StatusInternalServerError)
		return
	default:
		for _, raw := range series.Rows {
			row := make(map[string]any, len(raw))
			for column, value := range raw {
				row[column] = telemetry.CoerceValue(value)
			}
			rows = append(rows, row)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}
