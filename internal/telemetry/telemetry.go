// Package telemetry provides OpenTelemetry integration for rubrik_polaris.
//
// The Manager owns the TracerProvider that is injected into the Polaris client
// (graphql.request and session.create spans) and the exporter (scrape spans).
// Span attribute keys and operator-facing error templates live here too.
//
// Initializing telemetry:
//
//	manager := telemetry.NewManager(telemetry.Config{
//	    Enabled:        true,
//	    Endpoint:       "localhost:4317",
//	    Insecure:       true,
//	    SamplingRate:   1.0,
//	    ServiceName:    "rubrik_polaris",
//	    ServiceVersion: version,
//	    PolarisDomain:  cfg.Polaris.Domain,
//	})
//	_ = manager.Initialize(ctx)
//	defer manager.Shutdown(ctx)
//
// If the exporter cannot be created the manager disables itself and the
// application keeps running without traces.
package telemetry
