package polaris

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

const slaDoc = `query SLADomains { globalSlaConnection { edges { node { id name } } } }`

func TestLoadCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"query_sla_domains.graphql": {Data: []byte(slaDoc)},
		"nested/mutation_on_demand.graphql": {Data: []byte(
			`mutation OnDemand($ids: [UUID!]!) { onDemand: takeOnDemandSnapshot(ids: $ids) { errors { error } } }`)},
		"query_multi.graphql": {Data: []byte(`query Multi {
			a: first { edges { node { id } } }
			count
			second { edges { cursor node { id } } }
			notAConnection { edges { cursor } }
		}`)},
		"README.md":     {Data: []byte("ignored")},
		"other.graphql": {Data: []byte("query Ignored { x }")},
	}

	catalog, err := LoadCatalog(fsys)
	require.NoError(t, err)

	assert.Equal(t, []string{"multi", "on_demand", "sla_domains"}, catalog.Keys())
	assert.Equal(t, 3, catalog.Len())

	sla, err := catalog.Get("sla_domains")
	require.NoError(t, err)
	assert.Equal(t, ast.Query, sla.Operation)
	assert.Equal(t, "SLADomains", sla.OperationName)
	assert.Equal(t, slaDoc, sla.Text)
	assert.Equal(t, []string{"globalSlaConnection"}, sla.Connections)

	onDemand, err := catalog.Get("on_demand")
	require.NoError(t, err)
	assert.Equal(t, ast.Mutation, onDemand.Operation)
	assert.Empty(t, onDemand.Connections)

	conns, err := catalog.Connections("multi")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "second"}, conns)

	conns[0] = "mutated"
	again, _ := catalog.Connections("multi")
	assert.Equal(t, "a", again[0], "Connections must return a copy")
}

func TestLoadCatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantKey string
	}{
		{
			name: "duplicate key across directories",
			fsys: fstest.MapFS{
				"query_sla_domains.graphql":    {Data: []byte(slaDoc)},
				"v2/query_sla_domains.graphql": {Data: []byte(slaDoc)},
			},
			wantKey: "sla_domains",
		},
		{
			name: "duplicate key across operation types",
			fsys: fstest.MapFS{
				"query_assign.graphql":    {Data: []byte(`query Assign { x }`)},
				"mutation_assign.graphql": {Data: []byte(`mutation Assign { x }`)},
			},
			wantKey: "assign",
		},
		{
			name:    "unparseable document",
			fsys:    fstest.MapFS{"query_broken.graphql": {Data: []byte(`query Broken { edges {`)}},
			wantKey: "broken",
		},
		{
			name:    "prefix disagrees with operation type",
			fsys:    fstest.MapFS{"query_wrong.graphql": {Data: []byte(`mutation Wrong { x }`)}},
			wantKey: "wrong",
		},
		{
			name:    "no operation",
			fsys:    fstest.MapFS{"query_fragment.graphql": {Data: []byte(`fragment F on T { id }`)}},
			wantKey: "fragment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(tt.fsys)
			require.Error(t, err)

			var catErr *CatalogError
			require.True(t, errors.As(err, &catErr), "expected *CatalogError, got %T: %v", err, err)
			assert.Equal(t, tt.wantKey, catErr.Key)
		})
	}
}

func TestCatalogGetUnknown(t *testing.T) {
	catalog, err := LoadCatalog(fstest.MapFS{})
	require.NoError(t, err)

	_, err = catalog.Get("nope")
	var catErr *CatalogError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, "nope", catErr.Key)

	_, err = catalog.Connections("nope")
	assert.ErrorAs(t, err, &catErr)
}

func TestDefaultCatalog(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	want := map[string]struct {
		op          ast.Operation
		name        string
		connections []string
	}{
		keySLADomains:      {ast.Query, "SLADomains", []string{"globalSlaConnection"}},
		keyOnDemand:        {ast.Mutation, "OnDemandSnapshot", nil},
		keySLAAssign:       {ast.Mutation, "AssignSLA", nil},
		keyTaskChainStatus: {ast.Query, "TaskChainStatus", nil},
		keySnapshots:       {ast.Query, "SnappableSnapshots", []string{"snapshots"}},
		keyEvents:          {ast.Query, "EventSeriesList", []string{"activitySeriesConnection"}},
		keyReports:         {ast.Query, "ReportData", []string{"snappableConnection"}},
		keyAWSInstances:    {ast.Query, "AWSEC2Instances", []string{"instances"}},
		keyAzureVMs:        {ast.Query, "AzureVirtualMachines", []string{"instances"}},
		keyGCPInstances:    {ast.Query, "GCPInstances", []string{"instances"}},
	}

	assert.Equal(t, len(want), catalog.Len())
	for key, w := range want {
		entry, err := catalog.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, w.op, entry.Operation, key)
		assert.Equal(t, w.name, entry.OperationName, key)
		if w.connections == nil {
			assert.Empty(t, entry.Connections, key)
		} else {
			assert.Equal(t, w.connections, entry.Connections, key)
		}
	}
}
