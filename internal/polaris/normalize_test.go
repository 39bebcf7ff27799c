package polaris

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/fjacquet/rubrik_polaris/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeOf(t *testing.T, data any) *Envelope {
	t.Helper()
	return &Envelope{Data: json.RawMessage(testutil.MustJSON(t, data)), operation: "Test"}
}

func nodes(prefix string, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{"id": fmt.Sprintf("%s-%d", prefix, i)})
	}
	return out
}

func TestNormalizeCountAndOrder(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
	}{
		{name: "single field", counts: []int{3}},
		{name: "empty connection", counts: []int{0}},
		{name: "three fields", counts: []int{2, 0, 4}},
		{name: "many edges", counts: []int{50, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := map[string]any{"unrelated": map[string]any{"count": 7}}
			var fields []string
			var want []string
			for i, n := range tt.counts {
				field := fmt.Sprintf("conn%d", i)
				fields = append(fields, field)
				data[field] = testutil.Edges(nodes(field, n)...)
				for j := 0; j < n; j++ {
					want = append(want, fmt.Sprintf("%s-%d", field, j))
				}
			}

			records, err := Normalize(envelopeOf(t, data), fields)
			require.NoError(t, err)
			require.NotNil(t, records)

			got := make([]string, 0, len(records))
			for _, r := range records {
				got = append(got, r["id"].(string))
			}
			if want == nil {
				want = []string{}
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalizeKeepsNodeContent(t *testing.T) {
	data := testutil.Connection("snapshots", map[string]any{
		"id":      "s1",
		"date":    "2024-05-01T10:00:00Z",
		"cluster": map[string]any{"id": "c1", "name": "east"},
		"tags":    []any{map[string]any{"key": "env", "value": "prod"}},
	})

	records, err := Normalize(envelopeOf(t, data), []string{"snapshots"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "s1", records[0]["id"])
	assert.Equal(t, map[string]any{"id": "c1", "name": "east"}, records[0]["cluster"])
	assert.Len(t, records[0]["tags"], 1)
}

func TestNormalizeSchemaMismatch(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		field     string
		wantField string
	}{
		{name: "missing field", data: `{"other":{"edges":[]}}`, field: "conn", wantField: "conn"},
		{name: "missing edges", data: `{"conn":{"nodes":[]}}`, field: "conn", wantField: "conn"},
		{name: "edges not an array", data: `{"conn":{"edges":{"node":{}}}}`, field: "conn", wantField: "conn"},
		{name: "field is null", data: `{"conn":null}`, field: "conn", wantField: "conn"},
		{name: "edge without node", data: `{"conn":{"edges":[{"node":{"id":1}},{"cursor":"x"}]}}`, field: "conn", wantField: "conn.edges.1.node"},
		{name: "node not an object", data: `{"conn":{"edges":[{"node":"id"}]}}`, field: "conn", wantField: "conn.edges.0.node"},
		{name: "null data", data: `null`, field: "conn"},
		{name: "data not an object", data: `[1]`, field: "conn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &Envelope{Data: json.RawMessage(tt.data), operation: "Test"}

			records, err := Normalize(env, []string{tt.field})
			assert.Nil(t, records)

			var mismatch *SchemaMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, "Test", mismatch.Operation)
			assert.Equal(t, tt.wantField, mismatch.Field)
		})
	}
}

func TestNormalizeWithoutConnections(t *testing.T) {
	records, err := Normalize(&Envelope{}, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestClientNormalizeUsesCatalog(t *testing.T) {
	client := newTestClient(t, testutil.NewMockServer())

	env := envelopeOf(t, testutil.Connection("globalSlaConnection",
		map[string]any{"id": "id-1", "name": "Gold"},
	))
	records, err := client.Normalize(env, keySLADomains)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = client.Normalize(env, "unknown")
	var catErr *CatalogError
	assert.ErrorAs(t, err, &catErr)
}
