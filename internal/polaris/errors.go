package polaris

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// AuthenticationError is returned when the credential exchange with the
// session endpoint fails. StatusCode is zero when no HTTP response was received.
type AuthenticationError struct {
	// Domain is the Polaris tenant the session was requested for
	Domain string

	// StatusCode is the HTTP status of the session response, if any
	StatusCode int

	// Message is a human-readable description of the failure
	Message string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("polaris: authentication for %q failed: %s (status=%d)", e.Domain, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("polaris: authentication for %q failed: %s", e.Domain, e.Message)
}

// Unwrap returns the underlying cause
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TransportError is returned when the GraphQL POST fails at the HTTP level or
// the response body cannot be parsed as a GraphQL envelope.
type TransportError struct {
	// Operation is the GraphQL operation name, empty for anonymous requests
	Operation string

	// StatusCode is the HTTP status of the response, zero on network failure
	StatusCode int

	// Message is a human-readable description of the failure
	Message string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	op := e.Operation
	if op == "" {
		op = "anonymous operation"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("polaris: %s failed: %s (status=%d)", op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("polaris: %s failed: %s", op, e.Message)
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// CatalogError is returned for catalog load collisions, unparseable documents
// and lookups of unknown operation keys.
type CatalogError struct {
	Key     string
	Message string
}

// Error implements the error interface
func (e *CatalogError) Error() string {
	return fmt.Sprintf("polaris: catalog entry %q: %s", e.Key, e.Message)
}

// SchemaMismatchError is returned when a response does not have the shape the
// catalog declared for the operation.
type SchemaMismatchError struct {
	Operation string
	Field     string
	Message   string
}

// Error implements the error interface
func (e *SchemaMismatchError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("polaris: %s: unexpected response shape: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("polaris: %s: field %q: %s", e.Operation, e.Field, e.Message)
}

// NotFoundError is returned when a named lookup or a recovery-point
// selection matched nothing.
type NotFoundError struct {
	// Kind is the kind of object looked up, e.g. "SLA domain" or "snapshot"
	Kind string

	// Name is the lookup key
	Name string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("polaris: %s %q not found", e.Kind, e.Name)
}

// GraphQLError carries the errors list of an envelope. Transport never
// returns it; callers opt in through Envelope.Err.
type GraphQLError struct {
	Operation string
	Errors    gqlerror.List
}

// Error implements the error interface
func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		if ge == nil {
			continue
		}
		msgs = append(msgs, ge.Message)
	}
	op := e.Operation
	if op == "" {
		op = "anonymous operation"
	}
	return fmt.Sprintf("polaris: %s returned errors: %s", op, strings.Join(msgs, "; "))
}
