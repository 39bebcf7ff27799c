// Package exporter provides health check functionality for the Polaris exporter.
package exporter

import (
	"context"
	"fmt"
	"time"
)

// healthCheckTimeout is the default timeout for connectivity tests.
const healthCheckTimeout = 5 * time.Second

// TestConnectivity verifies the Polaris GraphQL API is reachable with the
// current session. It lists SLA domains, a read-only call, and bypasses the
// cache.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	if err := collector.TestConnectivity(ctx); err != nil {
//	    log.Warnf("Polaris connectivity failed: %v", err)
//	}
func (c *PolarisCollector) TestConnectivity(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
	}

	if _, err := c.api().SLADomains(ctx); err != nil {
		return fmt.Errorf("polaris connectivity test failed: %w", err)
	}
	return nil
}

// IsHealthy returns true if the last scrape succeeded.
// This is a quick check without making an API call.
func (c *PolarisCollector) IsHealthy() bool {
	c.scrapeMu.RLock()
	defer c.scrapeMu.RUnlock()
	return !c.lastSuccess.IsZero() && !c.lastFailure.After(c.lastSuccess)
}
