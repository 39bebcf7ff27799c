// Package models provides shared test constants for model tests.
package models

import "github.com/fjacquet/rubrik_polaris/internal/testutil"

// Shared test constants aliased from testutil
const (
	testErrorValidateUnexpected      = testutil.TestErrorValidateUnexpected
	testErrorExpectedError           = testutil.TestErrorExpectedError
	testErrorUnexpected              = testutil.TestErrorUnexpected
	testErrorExpectedErrorContaining = testutil.TestErrorExpectedErrorContaining

	testDomain       = testutil.TestDomain
	testUsername     = testutil.TestUsername
	testPassword     = testutil.TestPassword
	testOTELEndpoint = testutil.TestOTELEndpoint
	testLogName      = testutil.TestLogName
)
