// Package server exposes the churn predictor over HTTP: an upload page, the
// prediction endpoint that returns an HTML table, and operational endpoints.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"churn-predictor/internal/ingest"
	"churn-predictor/internal/metrics"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/preprocess"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

//go:embed static/index.html
var indexPage []byte

// Config holds the HTTP settings of the server.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64   // 0 means unlimited
	RateLimit      float64 // /predict requests per second, 0 disables
	RateBurst      int
}

// Server serves predictions from a single loaded model.
type Server struct {
	predictor    ml.PredictorInterface
	preprocessor *preprocess.Preprocessor
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	limiter      *rate.Limiter
	cfg          Config
	started      time.Time
	handler      http.Handler
	server       *http.Server
}

// New wires the routes. m and gatherer may be nil, in which case metrics are
// not recorded and /metrics serves the default registry.
func New(predictor ml.PredictorInterface, pre *preprocess.Preprocessor, m *metrics.Metrics, gatherer prometheus.Gatherer, cfg Config) *Server {
	if pre == nil {
		pre = preprocess.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		predictor:    predictor,
		preprocessor: pre,
		metrics:      m,
		gatherer:     gatherer,
		cfg:          cfg,
		started:      time.Now(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/predict/", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/model/info", s.handleModelInfo).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	s.handler = requestID(s.accessLog(recoverPanic(r)))
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	html, rows, err := s.predict(w, r)
	if err != nil {
		status, kind := classify(err)
		if s.metrics != nil {
			s.metrics.RecordError(kind)
		}
		ev := logger.Warn()
		if status >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Err(err).Int("status", status).Str("kind", kind).Msg("prediction request failed")
		writeDetail(w, status, err.Error())
		return
	}

	if s.metrics != nil {
		s.metrics.RowsPredicted.Add(float64(rows))
	}
	logger.Info().Int("rows", rows).Msg("prediction served")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

// predict runs upload → ingest → preprocess → predict → format. Nothing is
// written to the response until every stage has succeeded.
func (s *Server) predict(w http.ResponseWriter, r *http.Request) (string, int, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return "", 0, errRateLimited
	}
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", 0, fmt.Errorf("upload exceeds %d bytes: %w", s.cfg.MaxUploadBytes, tooLarge)
		}
		return "", 0, errMissingFile
	}
	defer file.Close()

	if _, err := ingest.DetectFormat(header.Filename); err != nil {
		return "", 0, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", 0, &ingest.FileError{Name: header.Filename, Err: err}
	}

	tbl, err := ingest.Read(header.Filename, data)
	if err != nil {
		return "", 0, err
	}
	if s.metrics != nil {
		format, _ := ingest.DetectFormat(header.Filename)
		s.metrics.ObserveUpload(string(format), len(data))
	}

	tbl, err = s.preprocessor.Apply(tbl)
	if err != nil {
		return "", 0, err
	}

	scores, err := s.predictor.Predict(r.Context(), tbl)
	if err != nil {
		return "", 0, err
	}

	return RenderTable(scores), len(scores), nil
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string  `json:"status"`
	ModelVersion string  `json:"model_version"`
	BestModel    string  `json:"best_model"`
	Uptime       float64 `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	md := s.predictor.Metadata()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		ModelVersion: md.Version,
		BestModel:    md.BestModel,
		Uptime:       time.Since(s.started).Seconds(),
	})
}

// ModelInfoResponse is the body of GET /model/info.
type ModelInfoResponse struct {
	ml.ModelMetadata
	SchemaMode      string   `json:"schema_mode"`
	ExpectedColumns []string `json:"expected_columns"`
}

func (s *Server) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModelInfoResponse{
		ModelMetadata:   s.predictor.Metadata(),
		SchemaMode:      s.preprocessor.Mode(),
		ExpectedColumns: s.preprocessor.Expected(),
	})
}
