// Package testutil provides shared testing utilities and constants for rubrik_polaris.
//
// This package centralizes common test constants, helper functions, and mock builders
// to reduce duplication across test files.
//
// # Key Components
//
// Constants: Shared test values (credentials, endpoints, error messages) defined in constants.go
//
// MockServerBuilder: Fluent interface for creating a mock Polaris server that
// answers the session endpoint and dispatches GraphQL requests by operationName
//
// Helper Functions: Envelope builders and assertions for cleaner test code
//
// # Usage Examples
//
// Creating a mock server:
//
//	server := testutil.NewMockServer().
//	    WithSession(testutil.TestToken).
//	    WithOperation("SLADomains", testutil.Connection("globalSlaConnection", nodes...)).
//	    Build()
//	defer server.Close()
package testutil

// HTTP headers
const (
	ContentTypeHeader   = "Content-Type"
	AcceptHeader        = "Accept"
	AuthorizationHeader = "Authorization"
)

// Common test values
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
	TestDomain      = "acme"
	TestUsername    = "operator@acme.example"
	TestPassword    = "s3cr3t-passw0rd"
	TestToken       = "test-access-token"
	BearerPrefix    = "Bearer "
)

// Test endpoints and paths
const (
	TestPathSession = "/api/session"
	TestPathGraphQL = "/api/graphql"
	TestPathMetrics = "/metrics"
)

// Test error messages
const (
	TestErrorExpectedError           = "Expected error, got nil"
	TestErrorUnexpected              = "Unexpected error: %v"
	TestErrorValidateUnexpected      = "Validate() unexpected error = %v"
	TestErrorExpectedErrorContaining = "Expected error containing %q, got %q"
)

// Test identifiers
const (
	TestSLAGoldID      = "id-1"
	TestSLASilverID    = "id-2"
	TestSnappableID    = "7c3f3a2e-11d4-4f1e-9b55-8f4d2f0e6b10"
	TestTaskChainID    = "c1b2a3d4-0000-4000-8000-000000000001"
	TestOTELEndpoint   = "localhost:4317"
	TestServiceName    = "rubrik-polaris-test"
	TestServiceVersion = "1.0.0-test"
	TestLogName        = "test.log"
)
