package polaris

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Option configures optional Client settings.
type Option func(*options)

type options struct {
	logger         *logrus.Logger
	baseURL        string
	timeout        time.Duration
	tracerProvider trace.TracerProvider
	catalog        *Catalog
	location       *time.Location
}

func defaultOptions() options {
	return options{
		location: time.Local,
	}
}

// WithLogger sets the logger used for request diagnostics. Without it the
// client logs nothing.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithBaseURL overrides the scheme and host derived from the domain, e.g.
// "http://127.0.0.1:8080". Paths stay /api/session and /api/graphql.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the per-request timeout, overriding polaris.timeout from
// the configuration (15s by default). Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTracerProvider sets the TracerProvider for distributed tracing.
// If not provided, spans are noop.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithCatalog replaces the bundled query catalog.
func WithCatalog(c *Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithLocation sets the zone used for recovery points given without an
// offset. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}
