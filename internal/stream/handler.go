package stream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	alerts "cement-cloud/internal/alerts/domain"
	"cement-cloud/internal/observability/metrics"
	telemetry "cement-cloud/internal/telemetry/domain"
)

const writeWait = 10 * time.Second

// Handler upgrades subscribers onto the live feed. One session goroutine
// per connection; a failed connection tears down only its own session.
type Handler struct {
	timeline   telemetry.Timeline
	classifier *alerts.Classifier
	interval   time.Duration
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

// NewHandler constructs a live feed handler.
func NewHandler(timeline telemetry.Timeline, classifier *alerts.Classifier, interval time.Duration, logger *log.Logger) (*Handler, error) {
	if classifier == nil {
		return nil, errors.New("stream: nil classifier")
	}
	if logger == nil {
		return nil, errors.New("stream: nil logger")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Handler{
		timeline:   timeline,
		classifier: classifier,
		interval:   interval,
		upgrader: websocket.Upgrader{
			// The dashboard frontend is served from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}, nil
}

// ServeHTTP handles GET /ws/live_data.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("stream upgrade error: %v", err)
		return
	}
	defer conn.Close()

	metrics.IncStreamSession()
	defer metrics.DecStreamSession()
	h.logger.Printf("stream client connected: %s", conn.RemoteAddr())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The feed accepts no inbound messages; the read loop only detects
	// disconnects and cancels the session.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	session, err := NewSession(h.timeline, h.classifier, deadlineConn{conn: conn}, h.interval)
	if err != nil {
		h.logger.Printf("stream session error: %v", err)
		return
	}

	err = session.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		h.logger.Printf("stream client disconnected: %s", conn.RemoteAddr())
	case err != nil:
		h.logger.Printf("stream session closed: %s: %v", conn.RemoteAddr(), err)
	}
}

// deadlineConn bounds each write so a stalled peer cannot wedge its
// session goroutine.
type deadlineConn struct {
	conn *websocket.Conn
}

func (c deadlineConn) WriteJSON(v any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}
