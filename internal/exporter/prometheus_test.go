package exporter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/polaris"
	"github.com/fjacquet/rubrik_polaris/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCollectorDescribe(t *testing.T) {
	collector := NewPolarisCollector(testCollectorConfig(), newFakeAPI())

	ch := make(chan *prometheus.Desc, 10)
	collector.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	require.Len(t, names, 4)
	for _, want := range []string{"polaris_sla_domains_total", "polaris_events_count", "polaris_response_time_ms", "polaris_scrape_success"} {
		found := false
		for _, n := range names {
			if strings.Contains(n, `"`+want+`"`) {
				found = true
			}
		}
		assert.True(t, found, "missing descriptor %s", want)
	}
}

func TestCollectorCollect(t *testing.T) {
	collector := NewPolarisCollector(testCollectorConfig(), newFakeAPI())

	expected := `
# HELP polaris_events_count The quantity of activity events updated within the scraping interval
# TYPE polaris_events_count gauge
polaris_events_count{activity_type="Backup",object_type="Mssql",status="Failure"} 1
polaris_events_count{activity_type="Backup",object_type="VmwareVm",status="Success"} 2
# HELP polaris_scrape_success Whether the last scrape of Polaris succeeded
# TYPE polaris_scrape_success gauge
polaris_scrape_success 1
# HELP polaris_sla_domains_total The number of global SLA domains
# TYPE polaris_sla_domains_total gauge
polaris_sla_domains_total 2
`
	err := promtest.CollectAndCompare(collector, strings.NewReader(expected),
		"polaris_events_count", "polaris_scrape_success", "polaris_sla_domains_total")
	require.NoError(t, err)
}

func TestCollectorEventWindow(t *testing.T) {
	api := newFakeAPI()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	collector := NewPolarisCollector(testCollectorConfig(), api, WithClock(func() time.Time { return now }))

	drain(collector)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, now.Add(-time.Hour), api.lastFilter.Since)
}

func TestCollectorDefaultWindow(t *testing.T) {
	cfg := testCollectorConfig()
	cfg.Server.ScrapingInterval = "not-a-duration"
	collector := NewPolarisCollector(cfg, newFakeAPI())

	assert.Equal(t, defaultWindow, collector.window)
	assert.Equal(t, defaultWindow, collector.Cache().TTL())
}

func TestCollectorCachesSLADomains(t *testing.T) {
	api := newFakeAPI()
	collector := NewPolarisCollector(testCollectorConfig(), api)

	for i := 0; i < 3; i++ {
		drain(collector)
	}

	sla, events := api.calls()
	assert.Equal(t, 1, sla)
	assert.Equal(t, 3, events)
}

func TestCollectorPartialFailure(t *testing.T) {
	tests := []struct {
		name      string
		slaErr    error
		eventsErr error
		wantSLA   bool
		wantEvent bool
	}{
		{name: "sla fails", slaErr: errors.New("sla down"), wantEvent: true},
		{name: "events fail", eventsErr: errors.New("events down"), wantSLA: true},
		{name: "both fail", slaErr: errors.New("x"), eventsErr: errors.New("y")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.slaErr = tt.slaErr
			api.eventsErr = tt.eventsErr
			collector := NewPolarisCollector(testCollectorConfig(), api)

			registry := prometheus.NewRegistry()
			registry.MustRegister(collector)
			families, err := registry.Gather()
			require.NoError(t, err)

			assert.Equal(t, tt.wantSLA, findMetricFamily(families, "polaris_sla_domains_total") != nil)
			assert.Equal(t, tt.wantEvent, findMetricFamily(families, "polaris_events_count") != nil)
			assert.NotNil(t, findMetricFamily(families, "polaris_response_time_ms"))

			success := findMetricFamily(families, "polaris_scrape_success")
			require.NotNil(t, success)
			assert.Equal(t, 0.0, success.GetMetric()[0].GetGauge().GetValue())
		})
	}
}

func TestCollectorSetClient(t *testing.T) {
	first := newFakeAPI()
	collector := NewPolarisCollector(testCollectorConfig(), first)
	drain(collector)

	second := newFakeAPI()
	second.domains = second.domains[:1]
	old := collector.SetClient(second)
	assert.Same(t, first, old)

	_, found := collector.Cache().Get()
	assert.False(t, found, "cache must be flushed on client swap")

	assert.Equal(t, 1.0, promtest.ToFloat64(slaOnly{collector}))
	sla, _ := second.calls()
	assert.Equal(t, 1, sla)

	collector.Close()
	assert.True(t, second.closed)
	assert.False(t, first.closed)
}

// slaOnly narrows a collector to polaris_sla_domains_total for ToFloat64.
type slaOnly struct{ c *PolarisCollector }

func (s slaOnly) Describe(ch chan<- *prometheus.Desc) { ch <- s.c.slaDomainsTotal }

func (s slaOnly) Collect(ch chan<- prometheus.Metric) {
	all := make(chan prometheus.Metric, 100)
	s.c.Collect(all)
	close(all)
	for m := range all {
		if m.Desc() == s.c.slaDomainsTotal {
			ch <- m
		}
	}
}

func TestCollectorScrapeSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	api := newFakeAPI()
	api.eventsErr = errors.New("events down")
	collector := NewPolarisCollector(testCollectorConfig(), api, WithCollectorTracerProvider(tp))
	drain(collector)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "prometheus.scrape", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "failure", attrs["scrape.status"])
	assert.Equal(t, "2", attrs["scrape.sla_domain_count"])

	var eventNames []string
	for _, e := range spans[0].Events() {
		eventNames = append(eventNames, e.Name)
	}
	assert.Contains(t, eventNames, "events_fetch_error")
}

func TestCollectorConcurrentCollect(t *testing.T) {
	collector := NewPolarisCollector(testCollectorConfig(), newFakeAPI())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drain(collector)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		collector.SetClient(newFakeAPI())
	}()
	wg.Wait()

	assert.True(t, collector.IsHealthy())
}

// TestCollectorEndToEnd scrapes a mock Polaris tenant through the real client.
func TestCollectorEndToEnd(t *testing.T) {
	mock := testutil.NewMockServer().
		WithOperation("SLADomains", testutil.Connection("globalSlaConnection",
			map[string]any{"id": testGoldID, "name": "Gold"})).
		WithOperation("EventSeriesList", testutil.Connection("activitySeriesConnection",
			map[string]any{"id": "1", "lastUpdated": "2024-05-01T10:00:00Z", "lastActivityStatus": "Failure",
				"lastActivityType": "Backup", "objectType": "VmwareVm"}))
	server := mock.Build()
	defer server.Close()

	cfg := testCollectorConfig()
	client, err := polaris.NewClient(context.Background(), cfg, polaris.WithBaseURL(server.URL))
	require.NoError(t, err)

	collector := NewPolarisCollector(cfg, client)
	defer collector.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	metricsServer := httptest.NewServer(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	defer metricsServer.Close()

	resp, err := http.Get(metricsServer.URL + testPathMetrics)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := promtest.GatherAndCount(registry, "polaris_events_count")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	families, err := registry.Gather()
	require.NoError(t, err)
	events := findMetricFamily(families, "polaris_events_count")
	require.NotNil(t, events)
	labels := map[string]string{}
	for _, lp := range events.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, map[string]string{"status": "Failure", "activity_type": "Backup", "object_type": "VmwareVm"}, labels)

	reqs := mock.Requests()
	require.NotEmpty(t, reqs)
	for _, r := range reqs {
		if r.Name() == "EventSeriesList" {
			filters := r.Variables["filters"].(map[string]any)
			assert.NotNil(t, filters["lastUpdated_gt"])
		}
	}
}

func findMetricFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
