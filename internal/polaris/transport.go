package polaris

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/telemetry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const bodyPreviewLimit = 200

// Envelope is a decoded GraphQL response. Errors is whatever the server put
// in the top-level errors list; Execute does not act on it.
type Envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors gqlerror.List   `json:"errors,omitempty"`

	operation string
}

// Operation returns the operation name the envelope answers.
func (e *Envelope) Operation() string {
	return e.operation
}

// HasData reports whether the envelope carries a non-null data member.
func (e *Envelope) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Err returns a *GraphQLError when the envelope carries errors, nil otherwise.
func (e *Envelope) Err() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return &GraphQLError{Operation: e.operation, Errors: e.Errors}
}

type requestBody struct {
	OperationName *string        `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

// Execute sends one GraphQL POST. An empty operationName and empty variables
// are sent as null. Network failures and bodies that are not a JSON object
// are returned as *TransportError; GraphQL errors inside a well-formed
// envelope are not.
func (c *Client) Execute(ctx context.Context, operationName, query string, variables map[string]any) (*Envelope, error) {
	return c.execute(ctx, "", "", operationName, query, variables)
}

// Query looks key up in the catalog and executes its document.
func (c *Client) Query(ctx context.Context, key string, variables map[string]any) (*Envelope, error) {
	entry, err := c.catalog.Get(key)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, key, string(entry.Operation), entry.OperationName, entry.Text, variables)
}

func (c *Client) execute(ctx context.Context, key, opType, operationName, query string, variables map[string]any) (*Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	url := c.session.GraphQLURL()

	ctx, span := c.tracing.StartSpan(ctx, "graphql.request", trace.SpanKindClient,
		attribute.String(telemetry.AttrGraphQLOperationName, operationName),
		attribute.String(telemetry.AttrGraphQLOperationType, opType),
		attribute.String(telemetry.AttrPolarisCatalogKey, key),
		attribute.String(telemetry.AttrPolarisRequestID, requestID),
		attribute.String(telemetry.AttrPolarisDomain, c.session.domain),
	)
	defer span.End()

	log := c.log.WithFields(logrus.Fields{
		"operation":  operationName,
		"request_id": requestID,
	})

	body := requestBody{Query: query}
	if operationName != "" {
		body.OperationName = &operationName
	}
	if len(variables) > 0 {
		body.Variables = variables
	}

	payload, err := json.Marshal(body)
	if err != nil {
		terr := &TransportError{Operation: operationName, Message: "cannot encode request", Err: err}
		recordError(span, terr)
		return nil, terr
	}

	log.WithField("variables", variables).Debugf("POST %s", url)

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(ctx, requestID)).
		SetBody(payload).
		Post(url)
	duration := time.Since(start)

	if err != nil {
		terr := &TransportError{Operation: operationName, Message: "request failed", Err: err}
		recordError(span, terr)
		log.WithError(err).Debug("GraphQL request failed")
		return nil, terr
	}

	status := resp.StatusCode()
	raw := resp.Body()

	span.SetAttributes(
		attribute.String(telemetry.AttrHTTPMethod, http.MethodPost),
		attribute.String(telemetry.AttrHTTPURL, url),
		attribute.Int(telemetry.AttrHTTPStatusCode, status),
		attribute.Int(telemetry.AttrHTTPRequestContentLength, len(payload)),
		attribute.Int(telemetry.AttrHTTPResponseContentLength, len(raw)),
		attribute.Float64(telemetry.AttrHTTPDurationMS, float64(duration.Milliseconds())),
	)
	log.WithFields(logrus.Fields{
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}).Debug("GraphQL response received")

	env, err := decodeEnvelope(operationName, status, raw)
	if err != nil {
		if !json.Valid(raw) {
			log.Error(fmt.Sprintf(telemetry.ErrNonJSONResponseTemplate,
				status, resp.Header().Get(headerContentType), url, preview(raw)))
		}
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int(telemetry.AttrGraphQLErrorCount, len(env.Errors)))
	if len(env.Errors) > 0 {
		log.WithField("errors", env.Errors.Error()).Debug("GraphQL response carries errors")
	}
	span.SetStatus(codes.Ok, "request completed")

	return env, nil
}

// headers returns the request headers with the W3C trace context injected.
func (c *Client) headers(ctx context.Context, requestID string) map[string]string {
	carrier := propagation.MapCarrier{
		headerContentType:   contentTypeJSON,
		headerAccept:        contentTypeJSON,
		headerAuthorization: "Bearer " + c.session.token,
		headerRequestID:     requestID,
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}

// decodeEnvelope parses a response body. A non-2xx status is tolerated when
// the body is an envelope with data or errors, since Polaris reports GraphQL
// failures that way.
func decodeEnvelope(operation string, status int, raw []byte) (*Envelope, error) {
	if !json.Valid(raw) {
		return nil, &TransportError{Operation: operation, StatusCode: status, Message: "response body is not JSON"}
	}

	env := &Envelope{operation: operation}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, &TransportError{Operation: operation, StatusCode: status, Message: "response body is not a GraphQL envelope", Err: err}
	}

	if (status < http.StatusOK || status >= http.StatusMultipleChoices) && !env.HasData() && len(env.Errors) == 0 {
		return nil, &TransportError{Operation: operation, StatusCode: status, Message: "unexpected HTTP status"}
	}

	return env, nil
}

func preview(raw []byte) string {
	if len(raw) > bodyPreviewLimit {
		return string(raw[:bodyPreviewLimit]) + "..."
	}
	return string(raw)
}
