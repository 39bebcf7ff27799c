package polaris

import (
	"context"

	"github.com/fjacquet/rubrik_polaris/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Catalog keys of the bundled documents.
const (
	keySLADomains      = "sla_domains"
	keyOnDemand        = "on_demand"
	keySLAAssign       = "sla_assign"
	keyTaskChainStatus = "taskchain_status"
	keySnapshots       = "snappable_snapshots"
	keyEvents          = "event_series_list"
	keyReports         = "report_data"
	keyAWSInstances    = "aws_ec2_instances"
	keyAzureVMs        = "azure_vms"
	keyGCPInstances    = "gcp_instances"
)

// run executes a catalog operation for a domain call. Any envelope error
// fails the call, even when partial data came back.
func (c *Client) run(ctx context.Context, key string, variables map[string]any) (*Envelope, error) {
	env, err := c.Query(ctx, key, variables)
	if err != nil {
		return nil, err
	}

	if gerr := env.Err(); gerr != nil {
		return nil, gerr
	}

	return env, nil
}

// list runs a catalog operation and normalizes its connections.
func (c *Client) list(ctx context.Context, key string, variables map[string]any) ([]Record, error) {
	ctx, span := c.tracing.StartSpan(ctx, "polaris.list", trace.SpanKindInternal,
		attribute.String(telemetry.AttrPolarisCatalogKey, key),
	)
	defer span.End()

	env, err := c.run(ctx, key, variables)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	records, err := c.Normalize(env, key)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int(telemetry.AttrPolarisRecordCount, len(records)))
	return records, nil
}

// stringList returns s, or an empty non-nil slice, so filters encode as [].
func stringList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
