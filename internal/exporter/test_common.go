// Package exporter provides shared test constants and utilities.
// This file contains common constants used across multiple test files
// to avoid duplication and ensure consistency.
package exporter

import "github.com/fjacquet/rubrik_polaris/internal/testutil"

// Shared test constants - aliased from testutil
const (
	testPathMetrics    = testutil.TestPathMetrics
	testOTELEndpoint   = testutil.TestOTELEndpoint
	testServiceName    = testutil.TestServiceName
	testServiceVersion = testutil.TestServiceVersion
	testGoldID         = testutil.TestSLAGoldID
	testSilverID       = testutil.TestSLASilverID
)
