// Package exporter provides interfaces for Polaris API client abstraction.
// These interfaces enable better testability and allow for mock implementations
// in unit tests without requiring a reachable Polaris tenant.
package exporter

import (
	"context"

	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/fjacquet/rubrik_polaris/internal/polaris"
)

// PolarisAPI is the part of the Polaris client the collector reads from.
//
// The primary implementation is *polaris.Client.
type PolarisAPI interface {
	// SLADomains returns every global SLA domain.
	SLADomains(ctx context.Context) ([]models.SLADomain, error)

	// Events lists activity series matching the filter.
	Events(ctx context.Context, f polaris.EventFilter) ([]models.Event, error)

	// Close releases idle connections.
	Close()
}

var _ PolarisAPI = (*polaris.Client)(nil)
