// Package exporter implements the Prometheus Collector interface for Polaris
// metrics. It reads SLA domains and recent activity events through the
// GraphQL client and exposes them in Prometheus format.
package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/fjacquet/rubrik_polaris/internal/polaris"
	"github.com/fjacquet/rubrik_polaris/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	collectionTimeout = 2 * time.Minute // Maximum time allowed for metric collection
	defaultWindow     = 5 * time.Minute
)

// CollectorOption configures optional PolarisCollector settings.
type CollectorOption func(*collectorOptions)

type collectorOptions struct {
	tracerProvider trace.TracerProvider
	logger         *logrus.Logger
	now            func() time.Time
}

func defaultCollectorOptions() collectorOptions {
	return collectorOptions{
		now: time.Now,
	}
}

// WithCollectorTracerProvider sets the TracerProvider for the collector.
// If not provided, tracing operations use a noop provider (no overhead).
func WithCollectorTracerProvider(tp trace.TracerProvider) CollectorOption {
	return func(o *collectorOptions) {
		o.tracerProvider = tp
	}
}

// WithCollectorLogger sets the logger used for scrape diagnostics.
func WithCollectorLogger(l *logrus.Logger) CollectorOption {
	return func(o *collectorOptions) {
		o.logger = l
	}
}

// WithClock overrides the clock used to compute the event window.
func WithClock(now func() time.Time) CollectorOption {
	return func(o *collectorOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// PolarisCollector implements the Prometheus Collector interface for Polaris.
//
// The collector exposes:
//   - polaris_sla_domains_total: number of global SLA domains (cached)
//   - polaris_events_count: events updated within the scraping interval
//     (labels: status, activity_type, object_type)
//   - polaris_response_time_ms: duration of the scrape
//   - polaris_scrape_success: 1 when every Polaris call of the scrape succeeded
//
// The underlying client can be swapped with SetClient when the configuration
// is reloaded; the SLA cache is flushed at the same time.
type PolarisCollector struct {
	mu     sync.RWMutex
	client PolarisAPI

	window  time.Duration
	cache   *SLACache
	tracing *polaris.TracerWrapper
	log     *logrus.Entry
	now     func() time.Time

	scrapeMu    sync.RWMutex
	lastSuccess time.Time
	lastFailure time.Time

	slaDomainsTotal *prometheus.Desc
	eventsCount     *prometheus.Desc
	responseTime    *prometheus.Desc
	scrapeSuccess   *prometheus.Desc
}

// NewPolarisCollector creates a collector reading from client. The scraping
// interval of cfg bounds the event window and the SLA cache TTL.
//
// Example:
//
//	client, err := polaris.NewClient(ctx, cfg)
//	...
//	collector := NewPolarisCollector(cfg, client, WithCollectorTracerProvider(tp))
//	prometheus.MustRegister(collector)
func NewPolarisCollector(cfg models.Config, client PolarisAPI, opts ...CollectorOption) *PolarisCollector {
	options := defaultCollectorOptions()
	for _, opt := range opts {
		opt(&options)
	}

	window, err := cfg.GetScrapingDuration()
	if err != nil || window <= 0 {
		window = defaultWindow
	}

	logger := options.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &PolarisCollector{
		client:  client,
		window:  window,
		cache:   NewSLACache(window),
		tracing: polaris.NewTracerWrapper(options.tracerProvider, "rubrik-polaris/collector"),
		log:     logger.WithField("component", "collector"),
		now:     options.now,
		slaDomainsTotal: prometheus.NewDesc(
			"polaris_sla_domains_total",
			"The number of global SLA domains",
			nil, nil,
		),
		eventsCount: prometheus.NewDesc(
			"polaris_events_count",
			"The quantity of activity events updated within the scraping interval",
			[]string{"status", "activity_type", "object_type"}, nil,
		),
		responseTime: prometheus.NewDesc(
			"polaris_response_time_ms",
			"The scrape duration in milliseconds",
			nil, nil,
		),
		scrapeSuccess: prometheus.NewDesc(
			"polaris_scrape_success",
			"Whether the last scrape of Polaris succeeded",
			nil, nil,
		),
	}
}

func (c *PolarisCollector) api() PolarisAPI {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// SetClient replaces the Polaris client, flushes the SLA cache and returns
// the previous client so the caller can close it once in-flight scrapes end.
func (c *PolarisCollector) SetClient(client PolarisAPI) PolarisAPI {
	c.mu.Lock()
	old := c.client
	c.client = client
	c.mu.Unlock()

	c.cache.Flush()
	return old
}

// Cache exposes the SLA cache.
func (c *PolarisCollector) Cache() *SLACache {
	return c.cache
}

// Close releases the current client.
func (c *PolarisCollector) Close() {
	if api := c.api(); api != nil {
		api.Close()
	}
}

// Describe sends the descriptors of each metric to the provided channel.
func (c *PolarisCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.slaDomainsTotal
	ch <- c.eventsCount
	ch <- c.responseTime
	ch <- c.scrapeSuccess
}

// Collect queries Polaris and sends the metrics to the provided channel.
//
// Failures are logged and recorded on the scrape span; whatever was
// collected is still exposed, and polaris_scrape_success drops to 0.
func (c *PolarisCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectionTimeout)
	defer cancel()

	scrapeStart := time.Now()
	ctx, span := c.tracing.StartSpan(ctx, "prometheus.scrape", trace.SpanKindServer)
	defer span.End()

	api := c.api()

	slaCount, slaErr := c.collectSLADomains(ctx, api, span)
	events, eventsErr := c.collectEvents(ctx, api, span)

	status := determineScrapeStatus(slaErr, eventsErr)
	c.recordScrape(status)
	if status == "success" {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, "failure during metric collection")
	}

	elapsed := time.Since(scrapeStart)
	span.SetAttributes(
		attribute.Float64(telemetry.AttrScrapeDurationMS, float64(elapsed.Milliseconds())),
		attribute.Int(telemetry.AttrScrapeSLADomainCount, slaCount),
		attribute.Int(telemetry.AttrScrapeEventCount, len(events)),
		attribute.String(telemetry.AttrScrapeStatus, status),
	)

	if slaErr == nil {
		ch <- prometheus.MustNewConstMetric(c.slaDomainsTotal, prometheus.GaugeValue, float64(slaCount))
	}
	for key, value := range aggregateEvents(events) {
		ch <- prometheus.MustNewConstMetric(c.eventsCount, prometheus.GaugeValue, value, key.Labels()...)
	}
	ch <- prometheus.MustNewConstMetric(c.responseTime, prometheus.GaugeValue, float64(elapsed.Milliseconds()))

	success := 0.0
	if status == "success" {
		success = 1
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, success)

	c.log.Debugf("Collected %d SLA domains and %d events in %s", slaCount, len(events), elapsed)
}

func (c *PolarisCollector) collectSLADomains(ctx context.Context, api PolarisAPI, span trace.Span) (int, error) {
	if cached, ok := c.cache.Get(); ok {
		return len(cached), nil
	}

	domains, err := api.SLADomains(ctx)
	if err != nil {
		c.log.Errorf("Failed to fetch SLA domains: %v", err)
		recordFetchError(span, "sla_fetch_error", err)
		return 0, err
	}
	c.cache.Set(domains)
	return len(domains), nil
}

func (c *PolarisCollector) collectEvents(ctx context.Context, api PolarisAPI, span trace.Span) ([]models.Event, error) {
	events, err := api.Events(ctx, polaris.EventFilter{Since: c.now().Add(-c.window)})
	if err != nil {
		c.log.Errorf("Failed to fetch events: %v", err)
		recordFetchError(span, "events_fetch_error", err)
		return nil, err
	}
	return events, nil
}

func (c *PolarisCollector) recordScrape(status string) {
	c.scrapeMu.Lock()
	defer c.scrapeMu.Unlock()
	if status == "success" {
		c.lastSuccess = time.Now()
	} else {
		c.lastFailure = time.Now()
	}
}

// recordFetchError records a fetch error as a span event.
func recordFetchError(span trace.Span, eventName string, err error) {
	span.AddEvent(eventName, trace.WithAttributes(
		attribute.String(telemetry.AttrError, err.Error()),
	))
}

func determineScrapeStatus(errs ...error) string {
	for _, err := range errs {
		if err != nil {
			return "failure"
		}
	}
	return "success"
}

func aggregateEvents(events []models.Event) map[EventMetricKey]float64 {
	counts := make(map[EventMetricKey]float64)
	for _, e := range events {
		counts[EventMetricKey{
			Status:       e.LastActivityStatus,
			ActivityType: e.LastActivityType,
			ObjectType:   e.ObjectType,
		}]++
	}
	return counts
}
