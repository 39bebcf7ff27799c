// rubrik_polaris is a command-line client and Prometheus exporter for the
// Rubrik Polaris GraphQL API.
//
// The commands resolve SLA domains, list snapshots and pick recovery points,
// submit on-demand snapshots, assign SLAs, read task chain states, list
// activity events, protection reports and cloud-native instances. Results
// are printed as JSON.
//
// The serve command exposes SLA domain and event metrics for Prometheus.
//
// Usage:
//
//	rubrik_polaris --config config.yaml sla Gold
//	rubrik_polaris --config config.yaml serve
//
// Configuration is provided via YAML file specifying:
//   - Polaris tenant and credentials
//   - Logging settings
//   - Exporter settings (host, port, metrics URI, scraping interval)
//   - OpenTelemetry settings
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/exporter"
	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/fjacquet/rubrik_polaris/internal/polaris"
	"github.com/fjacquet/rubrik_polaris/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	programName       = "rubrik_polaris"
	serviceName       = "rubrik-polaris"
	serviceVersion    = "1.0.0"
	shutdownTimeout   = 10 * time.Second // Maximum time to wait for graceful shutdown
	readHeaderTimeout = 5 * time.Second  // HTTP server read header timeout
	sessionTimeout    = 30 * time.Second // Time allowed to open a Polaris session
)

// ClientFactory opens a Polaris session for cfg.
type ClientFactory func(ctx context.Context, cfg models.Config, tp trace.TracerProvider) (exporter.PolarisAPI, error)

// Server encapsulates the HTTP server and its dependencies for serving Prometheus metrics.
// It manages the lifecycle of the HTTP server, Prometheus registry, Polaris collector,
// and OpenTelemetry telemetry manager.
//
// Server errors (such as port binding failures) are communicated through the ErrorChan()
// channel rather than calling log.Fatal, so the caller can still shut down gracefully.
//
// Usage:
//
//	server := NewServer(cfg, logger, factory)
//	if err := server.Start(ctx); err != nil {
//	    return err
//	}
//	...
//	server.Shutdown()
type Server struct {
	safeCfg          *models.SafeConfig
	log              *logrus.Logger
	newClient        ClientFactory
	httpSrv          *http.Server
	registry         *prometheus.Registry
	telemetryManager *telemetry.Manager // nil if disabled
	tracerProvider   trace.TracerProvider
	collector        *exporter.PolarisCollector

	// reloadMu serializes reloads triggered by SIGHUP and the file watcher
	reloadMu sync.Mutex

	// serverErrChan receives HTTP server errors. It is buffered (capacity 1)
	// so the goroutine can send before the caller selects on it.
	serverErrChan chan error

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewServer creates a new server instance with the provided configuration.
// A nil factory opens sessions with polaris.NewClient.
func NewServer(cfg *models.Config, logger *logrus.Logger, newClient ClientFactory) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if newClient == nil {
		newClient = polarisClientFactory(logger)
	}

	var telemetryMgr *telemetry.Manager
	if cfg.IsOTelEnabled() {
		telemetryMgr = telemetry.NewManager(telemetry.Config{
			Enabled:        cfg.OpenTelemetry.Enabled,
			Endpoint:       cfg.OpenTelemetry.Endpoint,
			Insecure:       cfg.OpenTelemetry.Insecure,
			SamplingRate:   cfg.OpenTelemetry.SamplingRate,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			PolarisDomain:  cfg.Polaris.Domain,
			Logger:         logger,
		})
	}

	return &Server{
		safeCfg:          models.NewSafeConfig(cfg),
		log:              logger,
		newClient:        newClient,
		registry:         prometheus.NewRegistry(),
		telemetryManager: telemetryMgr,
		serverErrChan:    make(chan error, 1),
	}
}

func polarisClientFactory(logger *logrus.Logger, extra ...polaris.Option) ClientFactory {
	return func(ctx context.Context, cfg models.Config, tp trace.TracerProvider) (exporter.PolarisAPI, error) {
		opts := []polaris.Option{polaris.WithLogger(logger)}
		if tp != nil {
			opts = append(opts, polaris.WithTracerProvider(tp))
		}
		client, err := polaris.NewClient(ctx, cfg, append(opts, extra...)...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Start opens the Polaris session, registers the collector and starts the
// HTTP server in a goroutine.
//
// The server exposes:
//   - Metrics endpoint at the configured URI (default: /metrics)
//   - Health check endpoint at /health (?deep=1 also probes Polaris)
func (s *Server) Start(ctx context.Context) error {
	if s.telemetryManager != nil {
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := s.telemetryManager.Initialize(initCtx); err != nil {
			s.log.Warnf("Failed to initialize OpenTelemetry: %v. Continuing without tracing.", err)
		}
		if s.telemetryManager.IsEnabled() {
			s.tracerProvider = s.telemetryManager.TracerProvider()
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
			s.log.Info("OpenTelemetry trace context propagation configured")
		}
	}

	cfg := s.safeCfg.Get()

	sessionCtx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()
	client, err := s.newClient(sessionCtx, *cfg, s.tracerProvider)
	if err != nil {
		return fmt.Errorf("failed to open Polaris session: %w", err)
	}

	opts := []exporter.CollectorOption{exporter.WithCollectorLogger(s.log)}
	if s.tracerProvider != nil {
		opts = append(opts, exporter.WithCollectorTracerProvider(s.tracerProvider))
	}
	s.collector = exporter.NewPolarisCollector(*cfg, client, opts...)

	if err := s.registry.Register(s.collector); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           s.routes(cfg.Server.URI),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		s.log.Infof("Starting %s on %s%s", programName, cfg.GetServerAddress(), cfg.Server.URI)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	return nil
}

func (s *Server) routes(metricsURI string) http.Handler {
	mux := http.NewServeMux()

	metrics := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	if s.telemetryManager != nil && s.telemetryManager.IsEnabled() {
		metrics = extractTraceContextMiddleware(metrics)
	}

	mux.Handle(metricsURI, metrics)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// ReloadConfig reloads the configuration file. When the tenant or the
// credentials changed, a new session is opened and swapped into the
// collector, which also flushes the SLA cache. A failed session keeps the
// previous client.
func (s *Server) ReloadConfig(configPath string) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	tenantChanged, err := s.safeCfg.ReloadConfig(configPath)
	if err != nil {
		return err
	}
	if !tenantChanged || s.collector == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()

	client, err := s.newClient(ctx, *s.safeCfg.Get(), s.tracerProvider)
	if err != nil {
		return fmt.Errorf("failed to open Polaris session after reload, keeping previous session: %w", err)
	}

	if old := s.collector.SetClient(client); old != nil {
		old.Close()
	}
	s.log.Infof("Polaris session replaced for domain %s", s.safeCfg.Get().Polaris.Domain)
	return nil
}

// ErrorChan returns the channel for receiving server errors.
func (s *Server) ErrorChan() <-chan error {
	return s.serverErrChan
}

// Shutdown gracefully shuts down the server components in order:
//  1. Stop HTTP server (no new scrapes accepted)
//  2. Shutdown OpenTelemetry (flush pending spans)
//  3. Close collector (drains API connections)
//
// Later calls return the result of the first one.
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown()
	})
	return s.shutdownErr
}

func (s *Server) shutdown() error {
	var errs []error

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.log.Info("Shutting down HTTP server...")
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	if s.telemetryManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.log.Info("Shutting down telemetry...")
		if err := s.telemetryManager.Shutdown(ctx); err != nil {
			s.log.Warnf("Telemetry shutdown warning: %v", err)
		}
	}

	if s.collector != nil {
		s.log.Info("Closing collector connections...")
		s.collector.Close()
	}

	close(s.serverErrChan)

	if len(errs) > 0 {
		s.log.Errorf("Shutdown completed with %d errors", len(errs))
		return errs[0]
	}

	s.log.Info("Server stopped gracefully")
	return nil
}

// extractTraceContextMiddleware extracts W3C trace context from incoming
// requests so scrapes join the caller's trace.
func extractTraceContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// healthHandler answers 200 OK while the process runs. With ?deep=1 it also
// checks that Polaris answers with the current session.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("deep") != "" {
		if s.collector == nil {
			http.Error(w, "collector not started", http.StatusServiceUnavailable)
			return
		}
		if err := s.collector.TestConnectivity(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK\n")
}

// waitForShutdown blocks until SIGINT, SIGTERM or a server error.
// Returns the server error, nil for a signal.
func waitForShutdown(logger *logrus.Logger, serverErr <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
		return nil
	case err := <-serverErr:
		return err
	}
}

func main() {
	if err := newRootCmd(&cli{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
