package polaris

import (
	"context"
	"testing"

	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/fjacquet/rubrik_polaris/internal/testutil"
	"github.com/stretchr/testify/require"
)

func testConfig() models.Config {
	var cfg models.Config
	cfg.Polaris.Domain = testutil.TestDomain
	cfg.Polaris.Username = testutil.TestUsername
	cfg.Polaris.Password = testutil.TestPassword
	return cfg
}

// newTestClient starts the mock server and returns a client bound to it.
func newTestClient(t *testing.T, b *testutil.MockServerBuilder, opts ...Option) *Client {
	t.Helper()
	server := b.Build()
	t.Cleanup(server.Close)

	opts = append([]Option{WithBaseURL(server.URL)}, opts...)
	client, err := NewClient(context.Background(), testConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func node(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}
