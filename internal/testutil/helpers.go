package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// GraphQLRequest is the decoded body of a GraphQL POST received by the mock server.
type GraphQLRequest struct {
	OperationName *string        `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`

	// Authorization is the raw Authorization header of the request
	Authorization string `json:"-"`
}

// Name returns the operation name or "" when it was sent as null.
func (r GraphQLRequest) Name() string {
	if r.OperationName == nil {
		return ""
	}
	return *r.OperationName
}

// OperationHandler answers a decoded GraphQL request with a status code and a
// value that is JSON-encoded as the response body.
type OperationHandler func(req GraphQLRequest) (int, any)

// MockServerBuilder provides a fluent interface for creating a mock Polaris server.
//
// Example usage:
//
//	server := testutil.NewMockServer().
//	    WithSession(testutil.TestToken).
//	    WithOperation("TaskChainStatus", map[string]any{...}).
//	    Build()
//	defer server.Close()
type MockServerBuilder struct {
	mu            sync.Mutex
	sessionStatus int
	sessionBody   any
	operations    map[string]OperationHandler
	rawGraphQL    http.HandlerFunc
	expectedToken string
	useTLS        bool
	requests      []GraphQLRequest
	sessionCalls  int
}

// NewMockServer creates a new MockServerBuilder.
func NewMockServer() *MockServerBuilder {
	return &MockServerBuilder{
		sessionStatus: http.StatusOK,
		sessionBody:   map[string]string{"access_token": TestToken},
		operations:    make(map[string]OperationHandler),
		expectedToken: TestToken,
	}
}

// WithTLS enables TLS for the mock server.
func (b *MockServerBuilder) WithTLS() *MockServerBuilder {
	b.useTLS = true
	return b
}

// WithSession makes the session endpoint hand out token; GraphQL requests must
// then carry it as a bearer token.
func (b *MockServerBuilder) WithSession(token string) *MockServerBuilder {
	b.sessionStatus = http.StatusOK
	b.sessionBody = map[string]string{"access_token": token}
	b.expectedToken = token
	return b
}

// WithSessionResponse overrides the session endpoint status and body.
func (b *MockServerBuilder) WithSessionResponse(status int, body any) *MockServerBuilder {
	b.sessionStatus = status
	b.sessionBody = body
	return b
}

// WithOperation answers operationName with {"data": data}.
func (b *MockServerBuilder) WithOperation(operationName string, data any) *MockServerBuilder {
	return b.WithOperationHandler(operationName, func(GraphQLRequest) (int, any) {
		return http.StatusOK, map[string]any{"data": data}
	})
}

// WithOperationHandler registers a custom handler for operationName.
func (b *MockServerBuilder) WithOperationHandler(operationName string, handler OperationHandler) *MockServerBuilder {
	b.operations[operationName] = handler
	return b
}

// WithRawGraphQL replaces GraphQL dispatch with a raw response, e.g. an HTML
// error page from a proxy.
func (b *MockServerBuilder) WithRawGraphQL(status int, contentType, body string) *MockServerBuilder {
	b.rawGraphQL = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(ContentTypeHeader, contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
	return b
}

// Requests returns the GraphQL requests received so far.
func (b *MockServerBuilder) Requests() []GraphQLRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]GraphQLRequest(nil), b.requests...)
}

// SessionCalls returns how many times the session endpoint was hit.
func (b *MockServerBuilder) SessionCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionCalls
}

// Build creates and returns the configured HTTP test server.
func (b *MockServerBuilder) Build() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(TestPathSession, b.handleSession)
	mux.HandleFunc(TestPathGraphQL, b.handleGraphQL)

	if b.useTLS {
		return httptest.NewTLSServer(mux)
	}
	return httptest.NewServer(mux)
}

func (b *MockServerBuilder) handleSession(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.sessionCalls++
	b.mu.Unlock()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var creds map[string]string
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds["username"] == "" || creds["password"] == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSONResponse(w, map[string]string{"message": "missing credentials"})
		return
	}

	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	w.WriteHeader(b.sessionStatus)
	if b.sessionBody != nil {
		_ = json.NewEncoder(w).Encode(b.sessionBody)
	}
}

func (b *MockServerBuilder) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if b.rawGraphQL != nil {
		b.rawGraphQL(w, r)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSONResponse(w, errorsBody("malformed request body"))
		return
	}
	req.Authorization = r.Header.Get(AuthorizationHeader)

	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if req.Authorization != BearerPrefix+b.expectedToken {
		w.Header().Set(ContentTypeHeader, ContentTypeJSON)
		w.WriteHeader(http.StatusUnauthorized)
		writeJSONResponse(w, errorsBody("unauthorized"))
		return
	}

	handler, ok := b.operations[req.Name()]
	if !ok {
		w.Header().Set(ContentTypeHeader, ContentTypeJSON)
		w.WriteHeader(http.StatusOK)
		writeJSONResponse(w, errorsBody("unknown operation "+req.Name()))
		return
	}

	status, body := handler(req)
	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	w.WriteHeader(status)
	writeJSONResponse(w, body)
}

func errorsBody(msg string) map[string]any {
	return map[string]any{
		"data":   nil,
		"errors": []map[string]any{{"message": msg}},
	}
}

// writeJSONResponse writes a JSON response to the ResponseWriter.
func writeJSONResponse(w http.ResponseWriter, data any) {
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Connection builds a {field: {edges: [{node: n}, ...]}} data object.
func Connection(field string, nodes ...map[string]any) map[string]any {
	return map[string]any{field: Edges(nodes...)}
}

// Edges builds an {edges: [{node: n}, ...]} connection value.
func Edges(nodes ...map[string]any) map[string]any {
	edges := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		edges = append(edges, map[string]any{"node": n})
	}
	return map[string]any{"edges": edges}
}

// Merge combines several data objects into one.
func Merge(parts ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, p := range parts {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}

// MustJSON marshals v or fails the test.
func MustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal %T: %v", v, err)
	}
	return data
}

// AssertContains is a helper that fails the test if the string doesn't contain the substring.
func AssertContains(t *testing.T, s, substr string, msgAndArgs ...interface{}) {
	t.Helper()
	if !strings.Contains(s, substr) {
		if len(msgAndArgs) > 0 {
			format := msgAndArgs[0].(string)
			t.Fatalf(format, msgAndArgs[1:]...)
		} else {
			t.Fatalf("String %q does not contain %q", s, substr)
		}
	}
}
