package reports

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"cement-cloud/internal/audit"
	"cement-cloud/internal/observability/metrics"
	telemetry "cement-cloud/internal/telemetry/domain"
)

// Handler serves timeline report exports.
type Handler struct {
	timeline telemetry.Timeline
	auditor  audit.Logger
	logger   *log.Logger
	now      func() time.Time
}

// NewHandler constructs a report handler. auditor may be nil.
func NewHandler(timeline telemetry.Timeline, auditor audit.Logger, logger *log.Logger) (*Handler, error) {
	if logger == nil {
		return nil, errors.New("reports: nil logger")
	}
	return &Handler{
		timeline: timeline,
		auditor:  auditor,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// ServeHTTP handles GET /reports/{csv,pdf,xlsx}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var format string
	switch r.URL.Path {
	case "/reports/csv":
		format = "csv"
	case "/reports/pdf":
		format = "pdf"
	case "/reports/xlsx":
		format = "xlsx"
	default:
		http.NotFound(w, r)
		return
	}

	if !h.timeline.Available() {
		http.Error(w, "no data available to generate report", http.StatusServiceUnavailable)
		return
	}

	start := h.now()
	document, contentType, err := h.build(format)
	metrics.ObserveReportExport(format, err, h.now().Sub(start))
	if err != nil {
		h.logger.Printf("report %s build error: %v", format, err)
		http.Error(w, "report generation error", http.StatusInternalServerError)
		return
	}

	h.audit(r, format, len(document))

	filename := fmt.Sprintf("cement_ai_report_%s.%s", h.now().Format("20060102"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(document)
}

func (h *Handler) build(format string) ([]byte, string, error) {
	switch format {
	case "csv":
		document, err := BuildTimelineCSV(h.timeline)
		return document, "text/csv; charset=utf-8", err
	case "pdf":
		document, err := BuildOperationalPDF(h.timeline, h.now())
		return document, "application/pdf", err
	case "xlsx":
		document, err := BuildOperationalXLSX(h.timeline)
		return document, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	default:
		return nil, "", fmt.Errorf("reports: unknown format %q", format)
	}
}

func (h *Handler) audit(r *http.Request, format string, size int) {
	if h.auditor == nil {
		return
	}
	entry := audit.Entry{
		Action:       "report.export",
		ResourceType: "report",
		ResourceID:   format,
		Metadata:     []byte(fmt.Sprintf(`{"records":%d,"bytes":%d}`, h.timeline.Len(), size)),
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if err := h.auditor.Log(r.Context(), entry); err != nil {
		h.logger.Printf("audit log error: %v", err)
	}
}
