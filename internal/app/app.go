package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"esgboard/internal/config"
	apierrors "esgboard/internal/errors"
	"esgboard/internal/infrastructure"
	"esgboard/internal/loader"
	custommw "esgboard/internal/middleware"
	"esgboard/internal/services"
	handlers "esgboard/internal/transport/http"
	"esgboard/internal/validation"
	ws "esgboard/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	Version = "v1.0.0"
	AppName = "ESG Board"
)

// systemStatusInterval paces the system:status broadcasts to connected
// dashboard clients.
const systemStatusInterval = 30 * time.Second

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	// Generate a deterministic build ID based on version and time
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config *config.Config
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger

	Hub            *ws.Hub
	DatasetService *services.DatasetService
	MetricsService *services.MetricsService
	ExportService  *services.ExportService
	HealthService  *services.HealthService

	OTelProviders   *infrastructure.OTelProviders
	BusinessMetrics *infrastructure.BusinessMetrics
	SystemMetrics   *infrastructure.SystemMetricsCollector

	startTime time.Time
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize the shared infrastructure logger
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("build_id", BuildID))

	// Initialize OpenTelemetry
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		startTime:     time.Now(),
	}

	// Initialize services in order
	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Setup router
	app.setupRouter()

	// Create HTTP server
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	// Business metrics are shared by the HTTP middleware, the hub, and the
	// services so every layer records into the same instruments.
	businessMetrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.BusinessMetrics = businessMetrics

	// WebSocket hub; Run is started by Start so shutdown is context-driven
	a.Hub = ws.NewHub(a.Logger, businessMetrics)

	// Dataset service with the composite loader behind it
	ldr := loader.New(a.Config.Loader, a.Logger)
	a.DatasetService = services.NewDatasetService(ldr, a.Hub, businessMetrics, a.Logger)

	// Metric views and exports are derived from whatever dataset is current
	a.MetricsService = services.NewMetricsService(a.DatasetService, a.Logger)
	a.ExportService = services.NewExportService(a.MetricsService, a.Config.Export, businessMetrics, a.Logger)

	// Health service reports dataset and hub state
	a.HealthService = services.NewHealthServiceWithBuildInfo(
		Version,
		BuildTime,
		BuildID,
		a.DatasetService,
		a.Hub,
		a.Logger,
	)

	// Runtime metrics collector feeding the Prometheus endpoint
	systemMetrics, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, systemStatusInterval)
	if err != nil {
		return fmt.Errorf("failed to create system metrics collector: %w", err)
	}
	a.SystemMetrics = systemMetrics

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that is safe for the WebSocket upgrade because it
	// never wraps the ResponseWriter
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StripSlashes)

	// WebSocket route with upgrade tracing, registered before the group so
	// the response writer reaching the upgrader is still hijackable
	r.With(custommw.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Everything else gets the full middleware chain
	r.Group(func(r chi.Router) {
		r.Use(custommw.NewOTelMiddleware(a.OTelProviders, a.BusinessMetrics).Handler)
		r.Use(custommw.BusinessMetricsMiddleware(a.BusinessMetrics))
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))

		secureHeaders := custommw.DefaultSecureHeaders()
		secureHeaders.DevMode = a.isDevelopmentMode()
		r.Use(secureHeaders.Handler)

		r.Use(custommw.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(custommw.Compress(5))

		a.setupAPIRoutes(r)
	})

	// Prometheus scrape endpoint outside the middleware group so scrapes
	// stay off the request metrics; a dedicated span keeps them visible
	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP)
	r.With(custommw.TraceMiddleware("metrics.scrape")).Mount("/metrics", metricsHandler.Routes())

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(custommw.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		errorHandler := apierrors.NewErrorHandler(a.Logger, a.isDevelopmentMode())

		// Unknown paths and wrong methods answer in problem+json like every
		// other API error; set before Mount so subrouters inherit them
		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		// Body sanity checks before any handler reads a request
		validationMiddleware := custommw.NewValidationMiddleware(a.Logger, errorHandler)
		r.Use(validationMiddleware.ValidateRequest)

		// Dataset lifecycle; installs are audited mutations
		uploads := validation.NewUploadValidator(a.Config.Loader.MaxUploadBytes, a.Logger)
		datasetHandler := handlers.NewDatasetHandler(
			a.DatasetService,
			uploads,
			a.Config.Loader.MaxUploadBytes,
			a.Logger,
			errorHandler,
		)
		r.With(custommw.AuditLog(a.Logger)).Mount("/dataset", datasetHandler.Routes())

		// Category views, KPIs, charts, and exports
		categoriesHandler := handlers.NewCategoriesHandler(a.MetricsService, a.ExportService, a.Logger, errorHandler)
		r.Mount("/categories", categoriesHandler.Routes())

		// Health endpoints answer at the API root: /api/healthz, /api/readyz,
		// /api/livez, /api/version
		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/", healthHandler.Routes())
	})
}

// getCORSConfig returns CORS configuration based on environment
func (a *Application) getCORSConfig() custommw.CORSConfig {
	cfg := custommw.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	if a.isDevelopmentMode() {
		// Development mode: allow the dashboard dev server next to the API
		cfg.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}
	} else {
		cfg.AllowedOrigins = []string{
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		}
		if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
		}
	}

	a.Logger.Info("CORS configured",
		slog.Bool("development", a.isDevelopmentMode()),
		slog.Any("allowed_origins", cfg.AllowedOrigins))

	return cfg
}

// isDevelopmentMode detects if we're running in development mode
func (a *Application) isDevelopmentMode() bool {
	if a.Config != nil && a.Config.Logging.Development {
		return true
	}
	if env := os.Getenv("GO_ENV"); env == "development" {
		return true
	}
	return os.Getenv("ESG_ENV") == "development"
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	// Start background services; all of them exit when ctx is cancelled
	go a.Hub.Run(ctx)
	go a.SystemMetrics.Start(ctx)
	go a.broadcastSystemStatus(ctx)

	// Start server
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.String("dataset", string(a.DatasetService.Summary().Source)))

	return nil
}

// broadcastSystemStatus pushes a periodic status event so dashboards can show
// server health without polling.
func (a *Application) broadcastSystemStatus(ctx context.Context) {
	ticker := time.NewTicker(systemStatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Hub.BroadcastSystemStatus("healthy", Version, time.Since(a.startTime))
		case <-ctx.Done():
			return
		}
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	// Stop server
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Stop the runtime metrics collector
	if a.SystemMetrics != nil {
		a.SystemMetrics.Stop()
	}

	// Shutdown OpenTelemetry providers
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start application
	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	// Wait for interrupt or a server failure signalled through the context
	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(context.Background(), "Server stopped unexpectedly")
	}

	// Graceful shutdown; the deferred cancel stops the hub and collectors
	return a.Stop(context.Background())
}

// handleWebSocket handles WebSocket connections
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Extract any available request ID (might not have middleware)
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("user_agent", r.UserAgent()))

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Allow if no origin (CLI or same-origin request)
			if origin == "" {
				return true
			}

			// In development mode, be more permissive
			if a.isDevelopmentMode() {
				return true
			}

			// In production, validate against allowed origins
			corsConfig := a.getCORSConfig()
			for _, allowed := range corsConfig.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}

			a.Logger.WarnContext(ctx, "WebSocket origin rejected",
				slog.String("origin", origin),
				slog.Any("allowed_origins", corsConfig.AllowedOrigins))
			return false
		},
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the error response
		return
	}

	// Create a new client with trace ID and register with hub
	client := ws.NewClientWithTrace(a.Hub, conn, reqID, a.Logger)
	a.Hub.Register(client)

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	// Start client goroutines with panic isolation
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				a.Logger.ErrorContext(ctx, "WebSocket write pump panic",
					slog.Any("panic", rec),
					slog.String("request_id", reqID))
			}
		}()
		client.WritePump()
	}()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				a.Logger.ErrorContext(ctx, "WebSocket read pump panic",
					slog.Any("panic", rec),
					slog.String("request_id", reqID))
			}
		}()
		client.ReadPump()
	}()
}
