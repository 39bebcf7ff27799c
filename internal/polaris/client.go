// Package polaris is a GraphQL client for the Rubrik Polaris service.
//
// A Client holds an immutable Session (tenant, account, bearer token) and a
// Catalog of named GraphQL documents. Execute and Query perform exactly one
// authenticated POST each; Normalize flattens edge/node connections into
// Records; the domain operations (SLA lookup, snapshots, events, reports,
// cloud instances, tasks) are thin call sites over those three.
//
// There is no retry and no polling in this package. TaskStatus is a single
// read; waiting for a task to finish is up to the caller.
package polaris

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/logging"
	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/fjacquet/rubrik_polaris/internal/telemetry"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTP header names and values used on every request.
const (
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-Id"
	contentTypeJSON     = "application/json"
)

const (
	instrumentationName = "rubrik_polaris/polaris"

	// Connection pool configuration
	maxIdleConns        = 20
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// Client issues authenticated GraphQL requests against one Polaris tenant.
// It is safe for concurrent use; nothing in it changes after NewClient.
type Client struct {
	session  Session
	catalog  *Catalog
	http     *resty.Client
	log      *logrus.Entry
	tracing  *TracerWrapper
	timeout  time.Duration
	location *time.Location
}

// NewClient resolves a session token for the tenant in cfg and returns a
// ready client. The bundled catalog is used unless WithCatalog is given.
//
// Example:
//
//	client, err := polaris.NewClient(ctx, cfg,
//	    polaris.WithLogger(logger),
//	    polaris.WithTracerProvider(tm.TracerProvider()))
//	if err != nil {
//	    return err
//	}
//	domains, err := client.LookupSLADomains(ctx, "")
func NewClient(ctx context.Context, cfg models.Config, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	entry := logger.WithField("domain", cfg.Polaris.Domain)

	timeout := o.timeout
	if timeout <= 0 {
		timeout = cfg.GetTimeout()
	}

	catalog := o.catalog
	if catalog == nil {
		var err error
		if catalog, err = DefaultCatalog(); err != nil {
			return nil, err
		}
	}

	baseURL, sessionURL := cfg.GetBaseURL(), cfg.GetSessionURL()
	if o.baseURL != "" {
		baseURL, sessionURL = o.baseURL, o.baseURL+models.SessionPath
	}

	if cfg.Polaris.Insecure {
		entry.Warn("SECURITY WARNING: TLS certificate verification disabled - this is insecure for production use")
	}

	httpClient := newHTTPClient(timeout, cfg.Polaris.Insecure)
	tracing := NewTracerWrapper(o.tracerProvider, instrumentationName)

	token, err := createSession(ctx, httpClient, tracing, entry, sessionURL, cfg, timeout)
	if err != nil {
		return nil, err
	}

	entry.WithField("username", cfg.Polaris.Username).Debugf("Polaris session created at %s", baseURL)

	return &Client{
		session: Session{
			domain:   cfg.Polaris.Domain,
			username: cfg.Polaris.Username,
			token:    token,
			baseURL:  baseURL,
		},
		catalog:  catalog,
		http:     httpClient,
		log:      entry,
		tracing:  tracing,
		timeout:  timeout,
		location: o.location,
	}, nil
}

// newHTTPClient returns a resty client that never retries.
func newHTTPClient(timeout time.Duration, insecure bool) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)

	client.GetClient().Transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure, //nolint:gosec // explicit opt-in through polaris.insecure
			MinVersion:         tls.VersionTLS12,
		},
	}

	return client
}

func createSession(ctx context.Context, httpClient *resty.Client, tracing *TracerWrapper, log *logrus.Entry, sessionURL string, cfg models.Config, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "session.create", trace.SpanKindClient,
		attribute.String(telemetry.AttrPolarisDomain, cfg.Polaris.Domain),
		attribute.String(telemetry.AttrHTTPURL, sessionURL),
	)
	defer span.End()

	token, err := requestToken(ctx, httpClient, sessionURL, cfg.Polaris.Domain, cfg.Polaris.Username, cfg.Polaris.Password)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) && authErr.StatusCode > 0 {
			span.SetAttributes(attribute.Int(telemetry.AttrHTTPStatusCode, authErr.StatusCode))
			log.Error(fmt.Sprintf(telemetry.ErrAuthenticationTemplate, cfg.Polaris.Domain, authErr.StatusCode, sessionURL))
		}
		recordError(span, err)
		return "", err
	}

	span.SetStatus(codes.Ok, "session created")
	return token, nil
}

// Session returns the client's session.
func (c *Client) Session() Session {
	return c.session
}

// Catalog returns the catalog the client resolves operation keys against.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// Close releases idle connections. The client must not be used afterwards.
func (c *Client) Close() {
	c.http.GetClient().CloseIdleConnections()
}
