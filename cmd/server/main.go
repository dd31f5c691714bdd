// Package main is the entry point for GasChecker, a multi-chain gas oracle
// that aggregates public JSON-RPC endpoints with per-chain fallback and
// serves readings over a tool-call protocol and a REST API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/gaschecker/internal/config"
	"github.com/yourorg/gaschecker/internal/health"
	"github.com/yourorg/gaschecker/internal/model"
	"github.com/yourorg/gaschecker/internal/oracle"
	"github.com/yourorg/gaschecker/internal/otel"
	"github.com/yourorg/gaschecker/internal/ratelimit"
	"github.com/yourorg/gaschecker/internal/registry"
	"github.com/yourorg/gaschecker/internal/rpc"
	"github.com/yourorg/gaschecker/internal/security"
	"github.com/yourorg/gaschecker/internal/types"
)

const serviceVersion = "1.1.0"

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// gasOracle is the part of the orchestrator the handlers depend on
type gasOracle interface {
	FetchOne(ctx context.Context, chain types.SupportedChain) (*model.Reading, error)
	FetchAll(ctx context.Context) map[types.SupportedChain]oracle.ChainResult
	Recommend(ctx context.Context) (*oracle.Recommendation, error)
}

// Server represents the GasChecker server instance
type Server struct {
	// Configuration for the server
	config config.Config

	// Static chain registry
	registry *registry.Registry

	// Orchestrator over the fallback client
	oracle gasOracle

	// Per-caller sliding-window admission gate
	gate *ratelimit.Gate

	// Optional process-wide throughput cap
	globalLimit *rate.Limiter

	// Optional response signer
	signer *security.Signer

	// Per-endpoint health counters for /status
	tracker *health.Tracker

	// Metrics registry
	metrics *serverMetrics

	// HTTP server instance
	server *http.Server
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	chainErrors     *prometheus.CounterVec
	rateLimited     prometheus.Counter
	gasPrice        *prometheus.GaugeVec
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gaschecker_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gaschecker_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		chainErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gaschecker_chain_fetch_errors_total",
				Help: "Total number of failed fetches per chain",
			},
			[]string{"chain"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gaschecker_rate_limited_total",
				Help: "Total number of rate limited requests",
			},
		),
		gasPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gaschecker_gas_price_gwei",
				Help: "Last observed gas price in gwei",
			},
			[]string{"chain"},
		),
	}

	prometheus.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.chainErrors,
		m.rateLimited,
		m.gasPrice,
	)

	return m
}

// main is the entry point for the application
func main() {
	setupLogging()

	cfg := config.Load()

	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	server := NewServer(cfg)
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// NewServer creates a new server instance wired from configuration
func NewServer(cfg config.Config) *Server {
	reg, err := registry.New(cfg.EndpointOverrides)
	if err != nil {
		logrus.Fatalf("Invalid chain registry: %v", err)
	}

	tracker := health.NewTracker()
	client := rpc.NewClient(cfg.RPCTimeout, rpc.WithHealthTracker(tracker))

	gate := ratelimit.NewGate(cfg.RateLimitPerMinute, config.Window)
	gate.StartSweeper(context.Background(), config.Window)

	server := &Server{
		config:   cfg,
		registry: reg,
		oracle:   oracle.New(reg, client),
		gate:     gate,
		tracker:  tracker,
		metrics:  registerMetrics(),
	}

	if cfg.GlobalRPS > 0 {
		server.globalLimit = rate.NewLimiter(rate.Limit(cfg.GlobalRPS), cfg.GlobalBurst)
		logrus.Infof("Global rate limit initialized: %v req/s, burst: %d", cfg.GlobalRPS, cfg.GlobalBurst)
	}

	if cfg.SigningEnabled {
		signer, err := security.NewSigner()
		if err != nil {
			logrus.Warnf("Failed to initialize response signer: %v", err)
		} else {
			server.signer = signer
		}
	}

	logrus.WithFields(logrus.Fields{
		"port":         cfg.Port,
		"rpc_timeout":  cfg.RPCTimeout,
		"rate_ceiling": cfg.RateLimitPerMinute,
		"chains":       reg.Len(),
		"signing":      cfg.SigningEnabled,
	}).Info("Server initialized")

	return server
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:    ":" + s.config.Port,
		Handler: s.routes(),
		// Write timeout must cover the worst case fallback sequence:
		// endpoints-per-chain x per-attempt timeout for the slowest chain
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3*s.config.RPCTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}

// routes builds the HTTP mux for both front ends
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)             // Service descriptor (GET) and tool calls (POST)
	mux.HandleFunc("/gas", s.handleGasAll)        // All chains
	mux.HandleFunc("/gas/", s.handleGasChain)     // Single chain
	mux.HandleFunc("/recommend", s.handleRecommend)
	mux.HandleFunc("/chains", s.handleChains)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", promhttp.Handler().ServeHTTP)
	return mux
}

// admit applies the global limiter and the per-caller sliding window. It
// writes the 429 response itself and reports whether the request may
// proceed. Static routes never call it.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) bool {
	if s.globalLimit != nil && !s.globalLimit.Allow() {
		s.countRateLimited()
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}

	decision := s.gate.Admit(clientIP(r))
	if !decision.Allowed {
		s.countRateLimited()
		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":             "rate limit exceeded",
			"retryAfterSeconds": retryAfter,
		})
		return false
	}

	return true
}

func (s *Server) countRateLimited() {
	if s.metrics != nil {
		s.metrics.rateLimited.Inc()
	}
}

// observe records request metrics for a route.
func (s *Server) observe(route, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.requestCounter.WithLabelValues(route, status).Inc()
	s.metrics.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// recordReading updates the per-chain gas gauge.
func (s *Server) recordReading(reading *model.Reading) {
	if s.metrics != nil && reading != nil {
		s.metrics.gasPrice.WithLabelValues(string(reading.Chain)).Set(reading.Gwei)
	}
}

// recordChainError counts a failed fetch for a chain.
func (s *Server) recordChainError(chain types.SupportedChain) {
	if s.metrics != nil {
		s.metrics.chainErrors.WithLabelValues(string(chain)).Inc()
	}
}

// resolveChain maps a path or tool parameter onto a registered chain name.
// Numeric parameters are treated as chain ids.
func (s *Server) resolveChain(param string) types.SupportedChain {
	if id, err := strconv.ParseInt(param, 10, 64); err == nil {
		if spec, ok := s.registry.LookupID(id); ok {
			return spec.Chain
		}
	}
	return types.SupportedChain(strings.ToLower(param))
}

// handleRoot serves the service descriptor on GET and dispatches tool
// calls on POST.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"service":     "GasChecker",
			"version":     serviceVersion,
			"description": "Multi-chain gas oracle",
			"endpoints":   []string{"/gas/{chain}", "/gas", "/recommend", "/chains", "/healthz", "/status", "/metrics"},
			"tools":       []string{"gas", "gas_all", "gas_recommend", "chains"},
		})
	case http.MethodPost:
		s.handleToolCall(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// toolRequest is the tool-call protocol envelope.
type toolRequest struct {
	ID   string `json:"id"`
	Data struct {
		Tool  string `json:"tool"`
		Chain string `json:"chain"`
	} `json:"data"`
}

// toolResponse is the tool-call protocol reply envelope.
type toolResponse struct {
	ID         string      `json:"id,omitempty"`
	StatusCode int         `json:"statusCode"`
	Status     string      `json:"status"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// handleToolCall dispatches one tool invocation. The chains tool serves
// static registry data and bypasses the rate gate; every other tool
// triggers upstream fetches and is gated.
func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request toolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.observe("tool", "error", start)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tool := request.Data.Tool
	if tool != "chains" && !s.admit(w, r) {
		s.observe("tool", "throttled", start)
		return
	}

	var (
		data       interface{}
		err        error
		statusCode = http.StatusOK
	)

	switch tool {
	case "gas", "":
		chain := request.Data.Chain
		if chain == "" {
			chain = string(types.ChainEthereum)
		}
		data, statusCode, err = s.fetchReadingPayload(r.Context(), s.resolveChain(chain))
	case "gas_all":
		data = s.fetchAllPayload(r.Context())
	case "gas_recommend":
		var rec *oracle.Recommendation
		rec, err = s.oracle.Recommend(r.Context())
		if err != nil {
			statusCode = http.StatusBadGateway
		}
		data = rec
	case "chains":
		data = s.chainsPayload()
	default:
		s.observe("tool", "error", start)
		s.toolError(w, request.ID, http.StatusBadRequest, "unknown tool: "+tool)
		return
	}

	if err != nil {
		s.observe("tool", "error", start)
		s.toolError(w, request.ID, statusCode, err.Error())
		return
	}

	s.observe("tool", "success", start)
	s.writeToolResponse(w, toolResponse{
		ID:         request.ID,
		StatusCode: http.StatusOK,
		Status:     "success",
		Data:       data,
	})
}

// toolError writes the error envelope of the tool-call protocol.
func (s *Server) toolError(w http.ResponseWriter, id string, statusCode int, message string) {
	logrus.Warn(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(toolResponse{
		ID:         id,
		StatusCode: statusCode,
		Status:     "error",
		Error:      message,
	})
}

// writeToolResponse writes a successful tool reply, signed when signing is
// enabled.
func (s *Server) writeToolResponse(w http.ResponseWriter, response toolResponse) {
	if s.signer != nil {
		envelope, err := s.signer.Sign(response)
		if err != nil {
			logrus.Warnf("Failed to sign response: %v", err)
		} else {
			writeJSON(w, http.StatusOK, envelope)
			return
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// fetchReadingPayload runs a single-chain fetch and maps the outcome onto
// a payload and HTTP status.
func (s *Server) fetchReadingPayload(ctx context.Context, chain types.SupportedChain) (interface{}, int, error) {
	reading, err := s.oracle.FetchOne(ctx, chain)
	if err != nil {
		s.recordChainError(chain)
		return nil, errorStatus(err), err
	}

	s.recordReading(reading)
	return readingPayload(reading), http.StatusOK, nil
}

// errorStatus maps the error taxonomy onto HTTP statuses: client mistakes
// are 4xx, upstream exhaustion is 502.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, oracle.ErrUnknownChain):
		return http.StatusBadRequest
	case errors.Is(err, rpc.ErrAllEndpointsFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// readingPayload attaches the display string to a reading.
func readingPayload(reading *model.Reading) map[string]interface{} {
	return map[string]interface{}{
		"chain":          reading.Chain,
		"name":           reading.Name,
		"chainId":        reading.ChainID,
		"symbol":         reading.Symbol,
		"wei":            reading.Wei,
		"gwei":           reading.Gwei,
		"level":          reading.Level,
		"display":        reading.Display(),
		"sourceEndpoint": reading.SourceEndpoint,
		"timestamp":      reading.CollectedAt,
	}
}

// fetchAllPayload maps the fetch-all result onto the wire shape: every
// registered chain appears exactly once, as a reading or an error.
func (s *Server) fetchAllPayload(ctx context.Context) map[types.SupportedChain]interface{} {
	results := s.oracle.FetchAll(ctx)

	payload := make(map[types.SupportedChain]interface{}, len(results))
	for chain, result := range results {
		if result.Err != nil {
			s.recordChainError(chain)
			payload[chain] = map[string]string{"error": result.Err.Error()}
			continue
		}
		s.recordReading(result.Reading)
		payload[chain] = readingPayload(result.Reading)
	}
	return payload
}

// chainsPayload lists static registry metadata.
func (s *Server) chainsPayload() []map[string]interface{} {
	specs := s.registry.List()
	payload := make([]map[string]interface{}, 0, len(specs))
	for _, spec := range specs {
		payload = append(payload, map[string]interface{}{
			"chain":      spec.Chain,
			"chainId":    spec.ChainID,
			"name":       spec.Name,
			"symbol":     spec.Symbol,
			"endpoints":  len(spec.Endpoints),
			"thresholds": spec.Thresholds,
		})
	}
	return payload
}

// handleGasChain serves GET /gas/{chain}.
func (s *Server) handleGasChain(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	param := strings.TrimPrefix(r.URL.Path, "/gas/")
	if param == "" || strings.Contains(param, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if !s.admit(w, r) {
		s.observe("gas_chain", "throttled", start)
		return
	}

	payload, statusCode, err := s.fetchReadingPayload(r.Context(), s.resolveChain(param))
	if err != nil {
		s.observe("gas_chain", "error", start)
		writeError(w, statusCode, err.Error())
		return
	}

	s.observe("gas_chain", "success", start)
	writeJSON(w, http.StatusOK, payload)
}

// handleGasAll serves GET /gas.
func (s *Server) handleGasAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.admit(w, r) {
		s.observe("gas_all", "throttled", start)
		return
	}

	s.observe("gas_all", "success", start)
	writeJSON(w, http.StatusOK, s.fetchAllPayload(r.Context()))
}

// handleRecommend serves GET /recommend.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.admit(w, r) {
		s.observe("recommend", "throttled", start)
		return
	}

	recommendation, err := s.oracle.Recommend(r.Context())
	if err != nil {
		s.observe("recommend", "error", start)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.observe("recommend", "success", start)
	writeJSON(w, http.StatusOK, recommendation)
}

// handleChains serves the static registry listing. Bypasses the rate gate.
func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chains": s.chainsPayload(),
	})
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "operational",
		"version": serviceVersion,
		"uptime":  time.Since(startTime).String(),
		"chains":  s.registry.Len(),
		"configuration": map[string]interface{}{
			"rpc_timeout":           s.config.RPCTimeout.String(),
			"rate_limit_per_minute": s.config.RateLimitPerMinute,
			"signing":               s.signer != nil,
		},
		"endpoints": s.tracker.Snapshot(),
	}
	if s.signer != nil {
		status["signer"] = s.signer.Address()
	}

	writeJSON(w, http.StatusOK, status)
}
