package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"cement-cloud/internal/audit"
	"cement-cloud/internal/observability/metrics"
)

// ChatHandler serves POST /ai/chat.
type ChatHandler struct {
	service *Service
	auditor audit.Logger
	logger  *log.Logger
}

// NewChatHandler constructs a ChatHandler. auditor may be nil.
func NewChatHandler(service *Service, auditor audit.Logger, logger *log.Logger) (*ChatHandler, error) {
	if service == nil {
		return nil, errors.New("advisor: nil service")
	}
	if logger == nil {
		return nil, errors.New("advisor: nil logger")
	}
	return &ChatHandler{service: service, auditor: auditor, logger: logger}, nil
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	reply, err := h.service.Chat(r.Context(), request.Message)
	metrics.ObserveAdvisorRequest("chat", err, time.Since(start))
	if err != nil {
		writeAdvisorError(w, h.logger, "chat", err)
		return
	}

	logAudit(h.auditor, h.logger, r, "advisor.chat", len(request.Message))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"reply": reply})
}

// OptimizeHandler serves POST /ai/optimize.
type OptimizeHandler struct {
	service *Service
	auditor audit.Logger
	logger  *log.Logger
}

// NewOptimizeHandler constructs an OptimizeHandler. auditor may be nil.
func NewOptimizeHandler(service *Service, auditor audit.Logger, logger *log.Logger) (*OptimizeHandler, error) {
	if service == nil {
		return nil, errors.New("advisor: nil service")
	}
	if logger == nil {
		return nil, errors.New("advisor: nil logger")
	}
	return &OptimizeHandler{service: service, auditor: auditor, logger: logger}, nil
}

func (h *OptimizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var targets Targets
	if err := json.NewDecoder(r.Body).Decode(&targets); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	recommendation, err := h.service.Optimize(r.Context(), targets)
	metrics.ObserveAdvisorRequest("optimize", err, time.Since(start))
	if err != nil {
		writeAdvisorError(w, h.logger, "optimize", err)
		return
	}

	logAudit(h.auditor, h.logger, r, "advisor.optimize", 0)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"recommendation": recommendation})
}

func writeAdvisorError(w http.ResponseWriter, logger *log.Logger, kind string, err error) {
	logger.Printf("advisor %s error: %v", kind, err)
	switch {
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrNoData):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		// Collaborator failure: surface the underlying message, no retry.
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func logAudit(auditor audit.Logger, logger *log.Logger, r *http.Request, action string, size int) {
	if auditor == nil {
		return
	}
	entry := audit.Entry{
		Action:       action,
		ResourceType: "advisor",
		Metadata:     []byte(fmt.Sprintf(`{"request_bytes":%d}`, size)),
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if err := auditor.Log(r.Context(), entry); err != nil {
		logger.Printf("audit log error: %v", err)
	}
}
