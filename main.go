package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cement-cloud/internal/advisor"
	"cement-cloud/internal/advisor/gemini"
	alerts "cement-cloud/internal/alerts/domain"
	"cement-cloud/internal/audit"
	"cement-cloud/internal/observability/metrics"
	"cement-cloud/internal/reports"
	"cement-cloud/internal/stream"
	telemetry "cement-cloud/internal/telemetry/domain"
	"cement-cloud/internal/telemetry/infrastructure/csvdir"
	telemetryhttp "cement-cloud/internal/telemetry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	var auditRepo *audit.Repository
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Printf("audit db unreachable, audit disabled: %v", err)
		} else {
			auditRepo = audit.NewRepository(db)
		}
	}

	metrics.Init(logger)

	loader, err := csvdir.NewLoader(cfg.DataDir)
	if err != nil {
		logger.Fatalf("loader error: %v", err)
	}

	// Load failure degrades to the empty timeline: the HTTP surface
	// stays reachable and reports the unavailable state instead of
	// refusing to boot.
	var timeline telemetry.Timeline
	series, err := loader.LoadAll()
	if err != nil {
		logger.Printf("data load error: %v (serving unavailable state)", err)
	} else if timeline, err = telemetry.Merge(series...); err != nil {
		logger.Printf("merge error: %v (serving unavailable state)", err)
		timeline = telemetry.Timeline{}
	}
	metrics.SetTimelineRecords(timeline.Len())
	logger.Printf("timeline loaded: %d records", timeline.Len())

	classifier := alerts.NewClassifier()

	streamHandler, err := stream.NewHandler(timeline, classifier, cfg.StreamInterval, logger)
	if err != nil {
		logger.Fatalf("stream handler error: %v", err)
	}
	sourceHandler, err := telemetryhttp.NewSourceDataHandler(loader, logger)
	if err != nil {
		logger.Fatalf("source handler error: %v", err)
	}
	reportHandler, err := reports.NewHandler(timeline, auditRepo, logger)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	var generator advisor.Generator
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Fatalf("gemini client error: %v", err)
		}
		generator = client
	} else {
		logger.Printf("GEMINI_API_KEY not set, advisory surface disabled")
	}
	advisorService := advisor.NewService(timeline, generator)
	chatHandler, err := advisor.NewChatHandler(advisorService, auditRepo, logger)
	if err != nil {
		logger.Fatalf("chat handler error: %v", err)
	}
	optimizeHandler, err := advisor.NewOptimizeHandler(advisorService, auditRepo, logger)
	if err != nil {
		logger.Fatalf("optimize handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Welcome to the Cement-AI Backend!"})
	})
	mux.Handle("/data/", sourceHandler)
	mux.Handle("/ws/live_data", streamHandler)
	mux.Handle("/reports/csv", reportHandler)
	mux.Handle("/reports/pdf", reportHandler)
	mux.Handle("/reports/xlsx", reportHandler)
	mux.Handle("/ai/chat", chatHandler)
	mux.Handle("/ai/optimize", optimizeHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(corsMiddleware(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

// Config holds process configuration. Env vars take effect first, an
// optional YAML file (CEMENT_CONFIG) overrides them.
type Config struct {
	HTTPAddr       string        `yaml:"http_addr"`
	DataDir        string        `yaml:"data_dir"`
	StreamInterval time.Duration `yaml:"stream_interval"`
	DatabaseURL    string        `yaml:"database_url"`
	GeminiBaseURL  string        `yaml:"gemini_base_url"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	GeminiModel    string        `yaml:"gemini_model"`
}

func loadConfig() (Config, error) {
	cfg := Config{
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8000"),
		DataDir:        getenvDefault("DATA_DIR", "data"),
		StreamInterval: getenvDuration("STREAM_INTERVAL", stream.DefaultInterval),
		DatabaseURL:    getenvDefault("DATABASE_URL", ""),
		GeminiBaseURL:  getenvDefault("GEMINI_BASE_URL", gemini.DefaultBaseURL),
		GeminiAPIKey:   getenvDefault("GEMINI_API_KEY", ""),
		GeminiModel:    getenvDefault("GEMINI_MODEL", gemini.DefaultModel),
	}

	if path := os.Getenv("CEMENT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = stream.DefaultInterval
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack passes the websocket upgrade through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// corsMiddleware allows the dashboard SPA, served from another origin,
// to call the API directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
