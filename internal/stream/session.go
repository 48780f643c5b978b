package stream

import (
	"context"
	"errors"
	"time"

	alerts "cement-cloud/internal/alerts/domain"
	"cement-cloud/internal/observability/metrics"
	telemetry "cement-cloud/internal/telemetry/domain"
)

// DefaultInterval is the fixed emission cadence of the live feed.
const DefaultInterval = 5 * time.Second

// Conn is the subset of the transport a session writes to.
type Conn interface {
	WriteJSON(v any) error
}

// Payload is one live feed emission: the merged record plus its
// classification, or null when no event fired.
type Payload struct {
	KPIData  telemetry.Record `json:"kpi_data"`
	LogEntry *alerts.Event    `json:"log_entry"`
}

// UnavailablePayload is emitted on the same cadence when no data was
// loaded at startup.
type UnavailablePayload struct {
	Error string `json:"error"`
}

// Session replays the timeline to one subscriber. Each session owns an
// independent cursor starting at index 0 and wrapping after the last
// record; sessions never affect one another.
type Session struct {
	timeline   telemetry.Timeline
	classifier *alerts.Classifier
	conn       Conn
	interval   time.Duration
	cursor     int
}

// NewSession constructs a subscriber session.
func NewSession(timeline telemetry.Timeline, classifier *alerts.Classifier, conn Conn, interval time.Duration) (*Session, error) {
	if classifier == nil {
		return nil, errors.New("stream: nil classifier")
	}
	if conn == nil {
		return nil, errors.New("stream: nil connection")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Session{
		timeline:   timeline,
		classifier: classifier,
		conn:       conn,
		interval:   interval,
	}, nil
}

// Run emits one payload per interval until the context is canceled or
// the transport fails. The first payload is sent immediately; the
// interval starts once the send completes.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Emit(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Emit sends one payload and advances the cursor. With an empty
// timeline it sends the unavailable payload and leaves the cursor
// untouched.
func (s *Session) Emit() error {
	if !s.timeline.Available() {
		err := s.conn.WriteJSON(UnavailablePayload{Error: "Data not available"})
		metrics.IncStreamEmission(err)
		return err
	}

	record := s.timeline.At(s.cursor)
	payload := Payload{
		KPIData:  record,
		LogEntry: s.classifier.Classify(record),
	}
	if err := s.conn.WriteJSON(payload); err != nil {
		metrics.IncStreamEmission(err)
		return err
	}
	metrics.IncStreamEmission(nil)
	s.cursor = (s.cursor + 1) % s.timeline.Len()
	return nil
}

// Cursor returns the current replay index.
func (s *Session) Cursor() int { return s.cursor }
